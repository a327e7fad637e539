package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/qsc591/seatboard/go/internal/board"
	"github.com/qsc591/seatboard/go/internal/board/engine"
)

// Controller is the slice of the board engine the mirror drives.
type Controller interface {
	Frame() board.Frame
	Select(ctx context.Context, seatKey string) error
	Advance(ctx context.Context) error
	Subscribe(sink engine.FrameSink) func()
}

// BoardHandler serves the frame and intent endpoints.
type BoardHandler struct {
	control Controller
	cm      *ConnectionManager
}

func NewBoardHandler(control Controller, cm *ConnectionManager) *BoardHandler {
	return &BoardHandler{control: control, cm: cm}
}

type selectRequest struct {
	SeatKey string `json:"seat_key"`
}

// HandleGetFrame handles GET /api/board/frame
func (h *BoardHandler) HandleGetFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.control.Frame())
}

// HandleSelect handles POST /api/board/select
func (h *BoardHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SeatKey == "" {
		http.Error(w, "seat_key is required", http.StatusBadRequest)
		return
	}

	if err := h.control.Select(r.Context(), req.SeatKey); err != nil {
		h.intentFailed(w, "select", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleAdvance handles POST /api/board/advance. The outcome shows up in the
// next frame.
func (h *BoardHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.control.Advance(r.Context()); err != nil {
		h.intentFailed(w, "advance", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *BoardHandler) intentFailed(w http.ResponseWriter, intent string, err error) {
	log.Error().Err(err).Str("intent", intent).Msg("failed to forward intent")
	status := http.StatusInternalServerError
	if errors.Is(err, engine.ErrStopped) {
		status = http.StatusServiceUnavailable
	}
	http.Error(w, "Board unavailable", status)
}

// HandleBoardConnection handles GET /ws/board
func (h *BoardHandler) HandleBoardConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.cm.UpgradeConnection(w, r); err != nil {
		// the upgrader has already answered the request
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats handles GET /ws/stats
func (h *BoardHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cm.GetConnectionStats())
}

func (h *BoardHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

func (h *BoardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/board/frame", h.HandleGetFrame)
	mux.HandleFunc("/api/board/select", h.HandleSelect)
	mux.HandleFunc("/api/board/advance", h.HandleAdvance)
	mux.HandleFunc("/ws/board", h.HandleBoardConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("/health", h.HandleHealth)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
