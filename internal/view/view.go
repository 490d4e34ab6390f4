package view

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

// CellView is one rendered cell. Disabled cells must not accept input; Winning cells belong to the
// completed line.
type CellView struct {
	Row      int         `json:"row"`
	Col      int         `json:"col"`
	Value    entity.Cell `json:"value"`
	Disabled bool        `json:"disabled"`
	Winning  bool        `json:"winning"`
}

// Game is what every presentation layer draws: the grid, a status line and the raw outcome.
type Game struct {
	SessionID string                                       `json:"session_id,omitempty"`
	Cells     [entity.BoardSize][entity.BoardSize]CellView `json:"cells"`
	Turn      entity.Player                                `json:"turn"`
	Outcome   entity.Outcome                               `json:"outcome"`
	GameOver  bool                                         `json:"game_over"`
	Status    string                                       `json:"status"`
}

func New(game *entity.Game) Game {
	board := game.Board()
	outcome := game.Outcome()
	gameOver := outcome.IsTerminal()

	result := Game{
		Turn:     game.Turn(),
		Outcome:  outcome,
		GameOver: gameOver,
		Status:   StatusText(game.Turn(), outcome),
	}

	for row := range entity.BoardSize {
		for col := range entity.BoardSize {
			value := board[row][col]
			result.Cells[row][col] = CellView{
				Row:      row,
				Col:      col,
				Value:    value,
				Disabled: value != entity.EmptyCell || gameOver,
				Winning:  outcome.OnLine(entity.Coord{Row: row, Col: col}),
			}
		}
	}

	return result
}

func FromSession(session *entity.Session) Game {
	result := New(session.Game)
	result.SessionID = session.ID

	return result
}

// PlayerLabel names a player the way the status line does: "Player 1 (X)" or "Player 2 (O)".
func PlayerLabel(player entity.Player) string {
	if player == entity.PlayerX {
		return "Player 1 (X)"
	}
	return "Player 2 (O)"
}

func StatusText(turn entity.Player, outcome entity.Outcome) string {
	switch outcome.Status {
	case entity.StatusWin:
		return fmt.Sprintf("%s wins!", PlayerLabel(outcome.Winner))
	case entity.StatusDraw:
		return "It's a draw!"
	default:
		return fmt.Sprintf("%s's turn", PlayerLabel(turn))
	}
}

// ErrorText turns an engine error into a short message for the player.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, apperror.ErrCellOccupied):
		return "cell is already occupied"
	case errors.Is(err, apperror.ErrOutOfRange):
		return "cell is out of range"
	case errors.Is(err, apperror.ErrGameFinished):
		return "game is already finished"
	case errors.Is(err, apperror.ErrInvalidMove):
		return "invalid move"
	default:
		return "something went wrong"
	}
}
