// Package tui is the terminal rendition of the seat board. It paints frames
// produced by the engine and turns key presses into board intents.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/qsc591/seatboard/go/internal/board"
)

const intentTimeout = 5 * time.Second

// Controller is what the model needs from the engine.
type Controller interface {
	Frame() board.Frame
	Select(ctx context.Context, seatKey string) error
	Advance(ctx context.Context) error
}

type frameMsg struct {
	frame board.Frame
}

type intentErrMsg struct {
	err error
}

// Model is the bubbletea model for the board.
type Model struct {
	control Controller
	frames  <-chan board.Frame
	theme   Theme
	keys    KeyMap
	title   string

	width  int
	height int

	frame     board.Frame
	intentErr string
}

func NewModel(control Controller, frames <-chan board.Frame, title string) Model {
	return Model{
		control: control,
		frames:  frames,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		title:   title,
		frame:   control.Frame(),
	}
}

func (m Model) Init() tea.Cmd {
	return listenForFrame(m.frames)
}

// listenForFrame blocks until the engine renders again.
func listenForFrame(frames <-chan board.Frame) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-frames
		if !ok {
			return nil
		}
		return frameMsg{frame: frame}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		m.frame = msg.frame
		return m, listenForFrame(m.frames)

	case intentErrMsg:
		m.intentErr = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		m.intentErr = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			return m, m.moveSelection(-1)
		case key.Matches(msg, m.keys.Down):
			return m, m.moveSelection(1)
		case key.Matches(msg, m.keys.Advance):
			return m, m.advance()
		}
	}
	return m, nil
}

// moveSelection selects the row delta steps away from the current one,
// clamped to the list.
func (m Model) moveSelection(delta int) tea.Cmd {
	rows := m.frame.Seats
	if len(rows) == 0 {
		return nil
	}
	current := m.frame.SelectedRow()
	next := current + delta
	if current < 0 {
		next = 0
	}
	next = max(0, min(next, len(rows)-1))
	if next == current {
		return nil
	}

	control := m.control
	seatKey := rows[next].SeatKey
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		if err := control.Select(ctx, seatKey); err != nil {
			return intentErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) advance() tea.Cmd {
	if !m.frame.Advance.Enabled {
		return nil
	}
	control := m.control
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		if err := control.Advance(ctx); err != nil {
			return intentErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) View() string {
	t := m.theme
	f := m.frame

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		t.Title.Render(m.title),
		"  ",
		t.Stats.Render(f.Stats.Text),
	)

	list := m.renderSeats()
	detail := m.renderDetail()
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, " ", detail)

	var footer []string
	if f.Toast.Visible {
		style := t.ToastOK
		if f.Toast.Kind == board.ToastError {
			style = t.ToastErr
		}
		footer = append(footer, style.Render(f.Toast.Message))
	}
	if m.intentErr != "" {
		footer = append(footer, t.Expired.Render(m.intentErr))
	}
	footer = append(footer, m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", strings.Join(footer, "\n"))
}

func (m Model) renderSeats() string {
	t := m.theme
	if len(m.frame.Seats) == 0 {
		return t.Panel.Render(t.Muted.Render("No seats yet"))
	}

	lines := make([]string, 0, len(m.frame.Seats))
	for _, row := range m.frame.Seats {
		pill := t.Empty
		switch row.Status {
		case board.SeatStatusPending:
			pill = t.Pending
		case board.SeatStatusScanned:
			pill = t.Scanned
		}
		timer := t.Muted.Render(row.Timer)
		if row.Expired {
			timer = t.Expired.Render(row.Timer)
		}

		label := row.Label.Primary
		if row.Label.Secondary != "" {
			label += " " + row.Label.Secondary
		}
		line := fmt.Sprintf("%-8s %-32s %s  %s  %s", row.SeatKey, label, pill.Render(row.Pill), timer, row.Tally)

		style := t.Row
		if row.Selected {
			style = t.Selected
		}
		lines = append(lines, style.Render(line))
	}
	return t.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderDetail() string {
	t := m.theme
	d := m.frame.Detail
	qr := m.frame.QR

	field := func(name, value string) string {
		return t.Label.Render(name) + value
	}

	lines := []string{
		field("Seat", strings.ReplaceAll(d.Seat, "\n", " ")),
		field("Captured", d.CapturedAt),
		field("Account", d.Account),
	}
	if d.LinkURL != "" {
		lines = append(lines, field("Message", d.LinkText+" "+t.Muted.Render(d.LinkURL)))
	} else {
		lines = append(lines, field("Message", d.LinkText))
	}
	if d.SourceDetails {
		lines = append(lines,
			field("Date", d.Date),
			field("Seat info", d.SeatDetail),
			field("Price", d.Price),
			field("Quantity", d.Quantity),
		)
	}
	if d.BannerVisible {
		lines = append(lines, t.Banner.Render(d.Banner))
	}

	lines = append(lines, "")
	switch {
	case qr.Visible && qr.Switching:
		lines = append(lines, t.Switching.Render("QR "+qr.URL))
	case qr.Visible:
		lines = append(lines, "QR "+qr.URL)
	}
	if qr.Hint != "" {
		lines = append(lines, t.Muted.Render(qr.Hint))
	}

	button := "Next QR"
	if m.frame.Advance.Loading {
		button = "Working…"
	}
	if m.frame.Advance.Enabled {
		lines = append(lines, "", t.Button.Render(button))
	} else {
		lines = append(lines, "", t.Disabled.Render(button))
	}

	return t.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.help()))
	for _, b := range m.keys.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.theme.Muted.Render(strings.Join(parts, " • "))
}

// Run starts the terminal board and blocks until the operator quits or ctx
// is done.
func Run(ctx context.Context, control Controller, sink *FrameSink, title string) error {
	program := tea.NewProgram(
		NewModel(control, sink.Frames(), title),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal board: %w", err)
	}
	return nil
}
