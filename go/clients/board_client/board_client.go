package board_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qsc591/seatboard/go/clients"
	"github.com/qsc591/seatboard/go/internal/board"
)

// ErrEmptySeatKey is returned by Advance when no seat is given.
var ErrEmptySeatKey = errors.New("seat key is required")

type BoardClient struct {
	*clients.BaseClient
	endpoints Endpoints
}

func NewBoardClient(baseURL string, endpoints Endpoints) *BoardClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &BoardClient{
		BaseClient: clients.NewBaseClient(baseURL),
		endpoints:  endpoints,
	}
	client.SetHeader("Accept", "application/json")
	return client
}

func (c *BoardClient) Endpoints() Endpoints {
	return c.endpoints
}

// FetchSnapshot reads the current board state.
func (c *BoardClient) FetchSnapshot(ctx context.Context) (*board.Snapshot, error) {
	body, err := c.Get(ctx, c.endpoints.State)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	snap, err := board.DecodeSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return snap, nil
}

type advanceRequest struct {
	SeatKey string `json:"seat_key"`
}

type advanceResponse struct {
	OK          bool    `json:"ok"`
	NextSeatKey *string `json:"next_seat_key"`
}

// Advance marks the current QR of seatKey as scanned and returns the seat
// the server wants selected next, which may be empty.
func (c *BoardClient) Advance(ctx context.Context, seatKey string) (string, error) {
	seatKey = strings.TrimSpace(seatKey)
	if seatKey == "" {
		return "", ErrEmptySeatKey
	}

	payload, err := json.Marshal(advanceRequest{SeatKey: seatKey})
	if err != nil {
		return "", fmt.Errorf("failed to marshal advance request: %w", err)
	}

	body, err := c.Post(ctx, c.endpoints.Advance, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to advance seat %s: %w", seatKey, err)
	}

	var response advanceResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal advance response: %w, raw response: %s", err, string(body))
	}
	if response.NextSeatKey == nil {
		return "", nil
	}
	return *response.NextSeatKey, nil
}

// DownloadCSV returns the raw scan log.
func (c *BoardClient) DownloadCSV(ctx context.Context) ([]byte, error) {
	body, err := c.Get(ctx, c.endpoints.CSV)
	if err != nil {
		return nil, fmt.Errorf("failed to download csv: %w", err)
	}
	return body, nil
}

type GroupStats struct {
	PendingTotal   int `json:"pending_total"`
	CompletedSeats int `json:"completed_seats"`
	TotalSeats     int `json:"total_seats"`
}

type Group struct {
	GroupID   string          `json:"group_id"`
	Name      string          `json:"name"`
	CreatedAt board.EpochTime `json:"created_at"`
	Kind      string          `json:"kind"`
	Locked    bool            `json:"locked"`
	Stats     GroupStats      `json:"stats"`
}

type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

// ListGroups returns every group known to a multi-group server, oldest first.
func (c *BoardClient) ListGroups(ctx context.Context) ([]Group, error) {
	body, err := c.Get(ctx, GroupsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	var response GroupsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal groups: %w, raw response: %s", err, string(body))
	}
	return response.Groups, nil
}

// WithTimeout sets the per request timeout and returns the client.
func (c *BoardClient) WithTimeout(timeout time.Duration) *BoardClient {
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}
