// Package qrimage checks that a QR image URL serves a decodable image.
package qrimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qsc591/seatboard/go/clients"
)

var ErrEmptyImage = errors.New("empty image url")

// Prober fetches QR images the way a browser image element would and
// reports whether they decode. Relative URLs resolve against the board
// server.
type Prober struct {
	client *clients.BaseClient
}

func NewProber(serverURL string, timeout time.Duration) *Prober {
	client := clients.NewBaseClient(serverURL)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("Accept", "image/png,image/jpeg,image/gif,image/*")
	return &Prober{client: client}
}

// Probe returns nil when url serves an image with non-zero dimensions.
func (p *Prober) Probe(ctx context.Context, url string) error {
	if url == "" {
		return ErrEmptyImage
	}

	body, err := p.client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch qr image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to decode qr image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("qr image has no pixels: %dx%d %s", cfg.Width, cfg.Height, format)
	}

	log.Debug().
		Str("url", url).
		Str("format", format).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("qr image loaded")
	return nil
}
