package mirror

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsc591/seatboard/go/internal/board"
	"github.com/qsc591/seatboard/go/internal/board/engine"
)

type fakeController struct {
	mu       sync.Mutex
	frame    board.Frame
	selected []string
	advances int
	sinks    []engine.FrameSink
	err      error
}

func (f *fakeController) Frame() board.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fakeController) Select(_ context.Context, seatKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, seatKey)
	return f.err
}

func (f *fakeController) Advance(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances++
	return f.err
}

func (f *fakeController) Subscribe(sink engine.FrameSink) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
	return func() {}
}

func (f *fakeController) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.selected...), f.advances
}

func testFrame(selected string) board.Frame {
	return board.Frame{
		Stats: board.StatsLine{Text: "Pending 1 | Completed seats 1/2"},
		Seats: []board.SeatRow{
			{SeatKey: "A1", Selected: selected == "A1"},
			{SeatKey: "A2", Selected: selected == "A2"},
		},
		Advance: board.AdvanceControl{Enabled: true},
	}
}

func TestBoardHandler(t *testing.T) {
	t.Parallel()

	control := &fakeController{frame: testFrame("A1")}
	svc := NewService(DefaultConfig(), control)
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	t.Run("frame", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/board/frame")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got board.Frame
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, control.Frame(), got)
	})

	t.Run("frame wrong method", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/board/frame", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("select", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/board/select", "application/json", strings.NewReader(`{"seat_key":"A2"}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		selected, _ := control.snapshot()
		assert.Contains(t, selected, "A2")
	})

	t.Run("select without seat", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/board/select", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("advance", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/board/advance", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		_, advances := control.snapshot()
		assert.Equal(t, 1, advances)
	})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestBoardHandler_StoppedEngine(t *testing.T) {
	t.Parallel()

	control := &fakeController{err: engine.ErrStopped}
	srv := httptest.NewServer(NewService(DefaultConfig(), control).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/board/advance", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestService_WebSocket(t *testing.T) {
	t.Parallel()

	control := &fakeController{frame: testFrame("A1")}
	svc := NewService(DefaultConfig(), control)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	url := "ws://" + ln.Addr().String() + "/ws/board"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	require.Equal(t, MessageTypeFrame, first.Type)
	require.NotNil(t, first.Data)
	assert.Equal(t, 0, first.Data.SelectedRow())

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSelect, SeatKey: "A2"}))
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeAdvance}))
	require.Eventually(t, func() bool {
		selected, advances := control.snapshot()
		return len(selected) == 1 && selected[0] == "A2" && advances == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSelect}))
	reply := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, reply.Type)

	// the service subscribed its connection manager as a frame sink
	require.Eventually(t, func() bool {
		control.mu.Lock()
		defer control.mu.Unlock()
		return len(control.sinks) == 1
	}, 2*time.Second, 5*time.Millisecond)
	control.mu.Lock()
	sink := control.sinks[0]
	control.mu.Unlock()

	sink.PushFrame(testFrame("A2"))
	pushed := readMessage(t, conn)
	require.Equal(t, MessageTypeFrame, pushed.Type)
	assert.Equal(t, 1, pushed.Data.SelectedRow())

	require.Eventually(t, func() bool {
		return svc.GetStats().TotalConnections == 1 && svc.GetStats().FramesBroadcast == 1
	}, 2*time.Second, 5*time.Millisecond)
}

type registeringController struct {
	*fakeController
	onFrame func()
}

func (c *registeringController) Frame() board.Frame {
	if c.onFrame != nil {
		c.onFrame()
	}
	return c.fakeController.Frame()
}

func TestConnectionManager_RegisterQueuesCurrentFrame(t *testing.T) {
	t.Parallel()

	control := &registeringController{fakeController: &fakeController{frame: testFrame("A1")}}
	cm := NewConnectionManager(DefaultConnectionConfig(), control)
	conn := &Connection{ID: "c1", Send: make(chan []byte, 4), Manager: cm}

	registeredAtRead := false
	control.onFrame = func() { registeredAtRead = cm.connections[conn] }

	cm.registerConnection(conn)
	assert.True(t, registeredAtRead, "current frame must be read after the connection is visible to broadcasts")

	data, err := encodeFrame(testFrame("A2"))
	require.NoError(t, err)
	cm.handleBroadcast(data)

	require.Len(t, conn.Send, 2)
	var first, second Message
	require.NoError(t, json.Unmarshal(<-conn.Send, &first))
	require.NoError(t, json.Unmarshal(<-conn.Send, &second))
	assert.Equal(t, 0, first.Data.SelectedRow())
	assert.Equal(t, 1, second.Data.SelectedRow())
}
