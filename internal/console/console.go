package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/view"
)

const (
	originX = 2
	originY = 3

	cellWidth  = 4
	cellHeight = 2

	helpText = "arrows: move  enter/space: place  r: restart  q: quit"
)

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = styleDefault.Bold(true)
	styleCursor  = styleDefault.Reverse(true)
	styleWinning = styleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack).Bold(true)
	styleError   = styleDefault.Foreground(tcell.ColorRed)
	styleHelp    = styleDefault.Foreground(tcell.ColorGray)
)

type gameUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error)
	MakeMove(ctx context.Context, id string, row, col int) (*entity.Session, error)
	Restart(ctx context.Context, id string) (*entity.Session, error)
	EndSession(ctx context.Context, id string) error
}

// UI plays one local game in the terminal. Both players share the keyboard and the mouse.
type UI struct {
	logger *slog.Logger
	uGame  gameUseCase
	screen tcell.Screen

	sessionID string
	game      view.Game
	cursor    entity.Coord
	message   string
}

// New returns a UI drawing on screen. The screen must already be initialized; the caller owns it.
func New(logger *slog.Logger, uGame gameUseCase, screen tcell.Screen) *UI {
	return &UI{
		logger: logger.With("component", "console"),
		uGame:  uGame,
		screen: screen,
		cursor: entity.Coord{Row: 1, Col: 1},
	}
}

// Run starts a new game and processes input until the player quits or ctx is canceled.
func (that *UI) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	if err := that.start(ctx); err != nil {
		return err
	}
	defer that.end(ctx)

	that.screen.EnableMouse()
	defer that.screen.DisableMouse()

	events := make(chan tcell.Event)
	quit := make(chan struct{})
	defer close(quit)
	go that.screen.ChannelEvents(events, quit)

	log.Info("console game started", "session", that.sessionID)
	that.draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			done, err := that.handleEvent(ctx, ev)
			if err != nil {
				return err
			}
			if done {
				log.Info("console game closed", "session", that.sessionID)
				return nil
			}

			that.draw()
		}
	}
}

func (that *UI) start(ctx context.Context) error {
	session, err := that.uGame.GetOrCreateSession(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	that.update(session)

	return nil
}

// end drops the session: a terminal game cannot be resumed once the UI exits.
func (that *UI) end(ctx context.Context) {
	if err := that.uGame.EndSession(context.WithoutCancel(ctx), that.sessionID); err != nil {
		that.logger.Error("failed to end session", "method", "end", "session", that.sessionID, "error", err)
	}
}

// handleEvent applies one input event. It reports true when the player asked to quit.
func (that *UI) handleEvent(ctx context.Context, ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		that.screen.Sync()
	case *tcell.EventKey:
		return that.handleKey(ctx, ev)
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			return false, nil
		}

		coord, ok := cellAt(ev.Position())
		if !ok {
			return false, nil
		}

		that.cursor = coord
		return false, that.play(ctx)
	}

	return false, nil
}

func (that *UI) handleKey(ctx context.Context, ev *tcell.EventKey) (bool, error) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true, nil
	case tcell.KeyUp:
		that.moveCursor(-1, 0)
	case tcell.KeyDown:
		that.moveCursor(1, 0)
	case tcell.KeyLeft:
		that.moveCursor(0, -1)
	case tcell.KeyRight:
		that.moveCursor(0, 1)
	case tcell.KeyEnter:
		return false, that.play(ctx)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true, nil
		case ' ':
			return false, that.play(ctx)
		case 'r', 'R':
			return false, that.restart(ctx)
		}
	}

	return false, nil
}

func (that *UI) moveCursor(dRow, dCol int) {
	that.cursor.Row = clamp(that.cursor.Row+dRow, 0, entity.BoardSize-1)
	that.cursor.Col = clamp(that.cursor.Col+dCol, 0, entity.BoardSize-1)
}

func (that *UI) play(ctx context.Context) error {
	session, err := that.uGame.MakeMove(ctx, that.sessionID, that.cursor.Row, that.cursor.Col)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidMove) {
			that.update(session)
			that.message = view.ErrorText(err)
			return nil
		}
		return fmt.Errorf("failed to make move: %w", err)
	}

	that.update(session)

	return nil
}

func (that *UI) restart(ctx context.Context) error {
	session, err := that.uGame.Restart(ctx, that.sessionID)
	if err != nil {
		return fmt.Errorf("failed to restart game: %w", err)
	}

	that.update(session)
	that.cursor = entity.Coord{Row: 1, Col: 1}

	return nil
}

func (that *UI) update(session *entity.Session) {
	that.sessionID = session.ID
	that.game = view.FromSession(session)
	that.message = ""
}

func (that *UI) draw() {
	that.screen.Clear()

	drawText(that.screen, originX, 1, styleTitle, "Tic Tac Toe")

	for row := range entity.BoardSize {
		for col := range entity.BoardSize {
			that.drawCell(that.game.Cells[row][col])
		}
	}

	gridBottom := originY + entity.BoardSize*cellHeight
	drawText(that.screen, originX, gridBottom, styleDefault, that.game.Status)
	drawText(that.screen, originX, gridBottom+1, styleError, that.message)
	drawText(that.screen, originX, gridBottom+3, styleHelp, helpText)

	that.screen.Show()
}

func (that *UI) drawCell(cell view.CellView) {
	x := originX + cell.Col*cellWidth
	y := originY + cell.Row*cellHeight

	style := styleDefault
	if cell.Winning {
		style = styleWinning
	}
	if cell.Row == that.cursor.Row && cell.Col == that.cursor.Col && !that.game.GameOver {
		style = styleCursor
	}

	mark := " "
	if cell.Value != entity.EmptyCell {
		mark = string(cell.Value)
	}
	drawText(that.screen, x, y, style, " "+mark+" ")

	if cell.Col < entity.BoardSize-1 {
		that.screen.SetContent(x+cellWidth-1, y, '|', nil, styleDefault)
	}
	if cell.Row < entity.BoardSize-1 {
		separator := "---+"
		if cell.Col == entity.BoardSize-1 {
			separator = "---"
		}
		drawText(that.screen, x, y+1, styleDefault, separator)
	}
}

// cellAt maps a screen position onto the grid. Separators do not belong to any cell.
func cellAt(x, y int) (entity.Coord, bool) {
	dx, dy := x-originX, y-originY
	if dx < 0 || dy < 0 {
		return entity.Coord{}, false
	}

	if dx%cellWidth == cellWidth-1 || dy%cellHeight == cellHeight-1 {
		return entity.Coord{}, false
	}

	coord := entity.Coord{Row: dy / cellHeight, Col: dx / cellWidth}
	if coord.Row >= entity.BoardSize || coord.Col >= entity.BoardSize {
		return entity.Coord{}, false
	}

	return coord, true
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func clamp(value, lo, hi int) int {
	return max(lo, min(value, hi))
}
