package console

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/repository"
	"github.com/rocketscienceinc/tictactoe-local/internal/usecase"
)

func newTestUI(t *testing.T) (*UI, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 20)
	t.Cleanup(screen.Fini)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, repository.NewMemorySessionRepository())

	return New(logger, manager, screen), screen
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func char(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

// press feeds events to the UI and redraws, failing on any error or unexpected quit.
func press(t *testing.T, ui *UI, events ...tcell.Event) {
	t.Helper()

	for _, ev := range events {
		quit, err := ui.handleEvent(context.Background(), ev)
		require.NoError(t, err)
		require.False(t, quit)
	}

	ui.draw()
}

func line(screen tcell.SimulationScreen, y int) string {
	cells, width, _ := screen.GetContents()

	var b strings.Builder
	for x := range width {
		runes := cells[y*width+x].Runes
		if len(runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(runes[0])
	}

	return strings.TrimRight(b.String(), " ")
}

func styleAt(screen tcell.SimulationScreen, x, y int) tcell.Style {
	cells, width, _ := screen.GetContents()
	return cells[y*width+x].Style
}

func statusY() int {
	return originY + entity.BoardSize*cellHeight
}

func TestUI_InitialScreen(t *testing.T) {
	// Given: a fresh console game
	ui, screen := newTestUI(t)
	require.NoError(t, ui.start(context.Background()))

	// When: it is drawn
	ui.draw()

	// Then: an empty grid, X's turn and the help line are shown
	assert.Equal(t, "  Tic Tac Toe", line(screen, 1))
	assert.Equal(t, "     |   |", line(screen, originY))
	assert.Equal(t, "  ---+---+---", line(screen, originY+1))
	assert.Equal(t, "  Player 1 (X)'s turn", line(screen, statusY()))
	assert.Contains(t, line(screen, statusY()+3), "r: restart")

	// the cursor starts on the center cell
	assert.Equal(t, styleCursor, styleAt(screen, originX+cellWidth, originY+cellHeight))
}

func TestUI_KeyboardWin(t *testing.T) {
	// Given: a started game with the cursor in the center
	ui, screen := newTestUI(t)
	require.NoError(t, ui.start(context.Background()))

	// When: X(1,1) O(0,0) X(1,0) O(0,1) X(1,2) are played with the keyboard
	press(t, ui, key(tcell.KeyEnter))
	press(t, ui, key(tcell.KeyUp), key(tcell.KeyLeft), char(' '))
	press(t, ui, key(tcell.KeyDown), key(tcell.KeyEnter))
	press(t, ui, key(tcell.KeyUp), key(tcell.KeyRight), key(tcell.KeyEnter))
	press(t, ui, key(tcell.KeyDown), key(tcell.KeyRight), key(tcell.KeyEnter))

	// Then: X wins with the middle row and the line is highlighted
	assert.Equal(t, "  Player 1 (X) wins!", line(screen, statusY()))
	assert.Equal(t, "   O | O |", line(screen, originY))
	assert.Equal(t, "   X | X | X", line(screen, originY+cellHeight))
	for col := range entity.BoardSize {
		assert.Equal(t, styleWinning, styleAt(screen, originX+col*cellWidth+1, originY+cellHeight))
	}
	assert.Equal(t, styleDefault, styleAt(screen, originX+1, originY))

	// When: a further move is attempted
	press(t, ui, key(tcell.KeyDown), key(tcell.KeyEnter))

	// Then: it is rejected and the board is unchanged
	assert.Equal(t, "  game is already finished", line(screen, statusY()+1))
	assert.Equal(t, "     |   |", line(screen, originY+2*cellHeight))
}

func TestUI_OccupiedCell(t *testing.T) {
	ui, screen := newTestUI(t)
	require.NoError(t, ui.start(context.Background()))

	press(t, ui, key(tcell.KeyEnter), key(tcell.KeyEnter))

	assert.Equal(t, "  Player 2 (O)'s turn", line(screen, statusY()))
	assert.Equal(t, "  cell is already occupied", line(screen, statusY()+1))

	// the message is cleared by the next successful move
	press(t, ui, key(tcell.KeyUp), key(tcell.KeyEnter))
	assert.Empty(t, line(screen, statusY()+1))
}

func TestUI_CursorStaysOnBoard(t *testing.T) {
	ui, _ := newTestUI(t)
	require.NoError(t, ui.start(context.Background()))

	press(t, ui, key(tcell.KeyUp), key(tcell.KeyUp), key(tcell.KeyUp), key(tcell.KeyLeft), key(tcell.KeyLeft))
	assert.Equal(t, entity.Coord{Row: 0, Col: 0}, ui.cursor)

	press(t, ui, key(tcell.KeyDown), key(tcell.KeyDown), key(tcell.KeyDown), key(tcell.KeyRight), key(tcell.KeyRight), key(tcell.KeyRight))
	assert.Equal(t, entity.Coord{Row: 2, Col: 2}, ui.cursor)
}

func TestUI_MouseAndRestart(t *testing.T) {
	// Given: a started game
	ui, screen := newTestUI(t)
	require.NoError(t, ui.start(context.Background()))

	// When: the bottom right cell is clicked
	press(t, ui, tcell.NewEventMouse(originX+2*cellWidth+1, originY+2*cellHeight, tcell.Button1, tcell.ModNone))

	// Then: X is placed there
	assert.Equal(t, "     |   | X", line(screen, originY+2*cellHeight))
	assert.Equal(t, "  Player 2 (O)'s turn", line(screen, statusY()))

	// When: a separator is clicked
	press(t, ui, tcell.NewEventMouse(originX+cellWidth-1, originY, tcell.Button1, tcell.ModNone))

	// Then: nothing happens
	assert.Equal(t, "  Player 2 (O)'s turn", line(screen, statusY()))

	// When: r is pressed
	press(t, ui, char('r'))

	// Then: the board is cleared and X moves first
	assert.Equal(t, "     |   |", line(screen, originY+2*cellHeight))
	assert.Equal(t, "  Player 1 (X)'s turn", line(screen, statusY()))
	assert.Equal(t, entity.Coord{Row: 1, Col: 1}, ui.cursor)
}

func TestUI_Quit(t *testing.T) {
	for _, ev := range []*tcell.EventKey{char('q'), key(tcell.KeyEscape), key(tcell.KeyCtrlC)} {
		ui, _ := newTestUI(t)
		require.NoError(t, ui.start(context.Background()))

		quit, err := ui.handleEvent(context.Background(), ev)

		require.NoError(t, err)
		assert.True(t, quit, ev.Name())
	}
}

func TestUI_Run(t *testing.T) {
	t.Run("Quits on q", func(t *testing.T) {
		ui, screen := newTestUI(t)

		errCh := make(chan error, 1)
		go func() { errCh <- ui.Run(context.Background()) }()

		screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("console did not quit")
		}

		// the terminal session is dropped on exit
		requireSessionEnded(t, ui)
	})

	t.Run("Stops with the context", func(t *testing.T) {
		ui, _ := newTestUI(t)
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- ui.Run(ctx) }()

		cancel()

		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("console did not stop")
		}

		requireSessionEnded(t, ui)
	})
}

func requireSessionEnded(t *testing.T, ui *UI) {
	t.Helper()

	manager, ok := ui.uGame.(*usecase.GameManager)
	require.True(t, ok)
	require.NotEmpty(t, ui.sessionID)

	_, err := manager.GetSession(context.Background(), ui.sessionID)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestCellAt(t *testing.T) {
	tests := []struct {
		name string
		x, y int
		want entity.Coord
		ok   bool
	}{
		{name: "Top left", x: originX, y: originY, want: entity.Coord{Row: 0, Col: 0}, ok: true},
		{name: "Center mark", x: originX + cellWidth + 1, y: originY + cellHeight, want: entity.Coord{Row: 1, Col: 1}, ok: true},
		{name: "Bottom right edge", x: originX + 2*cellWidth + 2, y: originY + 2*cellHeight, want: entity.Coord{Row: 2, Col: 2}, ok: true},
		{name: "Column separator", x: originX + cellWidth - 1, y: originY},
		{name: "Row separator", x: originX, y: originY + 1},
		{name: "Left of grid", x: originX - 1, y: originY},
		{name: "Below grid", x: originX, y: originY + 3*cellHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cellAt(tt.x, tt.y)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
