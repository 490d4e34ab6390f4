package entity

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
)

// BoardSize is the number of rows and columns on the board.
const BoardSize = 3

type Cell string

const (
	EmptyCell Cell = ""
	CellX     Cell = "X"
	CellO     Cell = "O"
)

type Player string

const (
	PlayerX Player = "X"
	PlayerO Player = "O"
)

// Mark returns the cell value the player writes on the board.
func (that Player) Mark() Cell {
	return Cell(that)
}

func (that Player) Opponent() Player {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// Board is indexed as Board[row][col].
type Board [BoardSize][BoardSize]Cell

// Count returns how many cells hold the given value.
func (that Board) Count(value Cell) int {
	count := 0
	for _, row := range that {
		for _, cell := range row {
			if cell == value {
				count++
			}
		}
	}
	return count
}

func (that Board) IsFull() bool {
	return that.Count(EmptyCell) == 0
}

// Game is the game-state engine: it owns the board and the current player and derives the outcome
// after every accepted move. A Game is not safe for concurrent use.
type Game struct {
	board   Board
	turn    Player
	outcome Outcome
}

// NewGame returns a game with an empty board and X to move.
func NewGame() *Game {
	game := &Game{}
	game.Reset()

	return game
}

// RestoreGame rebuilds a game from a board snapshot. The current player and the outcome are derived
// from the board, which must be reachable by sequential play from an empty board.
func RestoreGame(board Board) (*Game, error) {
	for row := range BoardSize {
		for col := range BoardSize {
			switch board[row][col] {
			case EmptyCell, CellX, CellO:
			default:
				return nil, fmt.Errorf("%w: unknown mark %q at (%d, %d)", apperror.ErrInvalidBoard, board[row][col], row, col)
			}
		}
	}

	xCount, oCount := board.Count(CellX), board.Count(CellO)
	if oCount > xCount || xCount > oCount+1 {
		return nil, fmt.Errorf("%w: %d X marks and %d O marks", apperror.ErrInvalidBoard, xCount, oCount)
	}

	lastMover := PlayerO
	if xCount > oCount {
		lastMover = PlayerX
	}

	if err := checkCompletedLines(board, lastMover); err != nil {
		return nil, err
	}

	outcome := DetermineOutcome(board)

	turn := lastMover.Opponent()
	if outcome.IsTerminal() {
		turn = lastMover
	}

	return &Game{
		board:   board,
		turn:    turn,
		outcome: outcome,
	}, nil
}

// checkCompletedLines rejects boards where play continued after a win. Every completed line must
// belong to the last mover, and all of them must meet in one cell: the move that closed them.
func checkCompletedLines(board Board, lastMover Player) error {
	var lines []Line
	for _, line := range WinLines {
		mark := board[line[0].Row][line[0].Col]
		if mark == EmptyCell || mark != board[line[1].Row][line[1].Col] || mark != board[line[2].Row][line[2].Col] {
			continue
		}

		if Player(mark) != lastMover {
			return fmt.Errorf("%w: player %s moved after %s won", apperror.ErrInvalidBoard, lastMover, Player(mark))
		}

		lines = append(lines, line)
	}

	if len(lines) < 2 {
		return nil
	}

	for _, coord := range lines[0] {
		shared := true
		for _, line := range lines[1:] {
			if !slices.Contains(line[:], coord) {
				shared = false
				break
			}
		}
		if shared {
			return nil
		}
	}

	return fmt.Errorf("%w: player %s completed %d lines without a common cell", apperror.ErrInvalidBoard, lastMover, len(lines))
}

// Reset returns the game to its initial state.
func (that *Game) Reset() {
	that.board = Board{}
	that.turn = PlayerX
	that.outcome = InProgress()
}

// ApplyMove places the current player's mark at (row, col) and returns the new outcome. The turn
// passes to the opponent only while the game stays in progress. Rejected moves leave the game
// untouched and return an error wrapping apperror.ErrInvalidMove.
func (that *Game) ApplyMove(row, col int) (Outcome, error) {
	if that.outcome.IsTerminal() {
		return Outcome{}, apperror.ErrGameFinished
	}

	if !inBounds(row) || !inBounds(col) {
		return Outcome{}, fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfRange, row, col)
	}

	if that.board[row][col] != EmptyCell {
		return Outcome{}, fmt.Errorf("%w: (%d, %d)", apperror.ErrCellOccupied, row, col)
	}

	that.board[row][col] = that.turn.Mark()

	that.outcome = DetermineOutcome(that.board)
	if !that.outcome.IsTerminal() {
		that.turn = that.turn.Opponent()
	}

	return that.outcome.clone(), nil
}

func (that *Game) Outcome() Outcome {
	return that.outcome.clone()
}

// Board returns a copy of the board.
func (that *Game) Board() Board {
	return that.board
}

// Turn returns the player to move. Once the game is over it is the player who moved last.
func (that *Game) Turn() Player {
	return that.turn
}

func (that *Game) Cell(row, col int) (Cell, error) {
	if !inBounds(row) || !inBounds(col) {
		return EmptyCell, fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfRange, row, col)
	}

	return that.board[row][col], nil
}

type gameSnapshot struct {
	Board   Board   `json:"board"`
	Turn    Player  `json:"turn"`
	Outcome Outcome `json:"outcome"`
}

func (that *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameSnapshot{
		Board:   that.board,
		Turn:    that.turn,
		Outcome: that.outcome,
	})
}

// UnmarshalJSON restores the game from its board only; turn and outcome are always re-derived.
func (that *Game) UnmarshalJSON(data []byte) error {
	var snapshot gameSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal game: %w", err)
	}

	restored, err := RestoreGame(snapshot.Board)
	if err != nil {
		return err
	}

	*that = *restored

	return nil
}

func inBounds(index int) bool {
	return index >= 0 && index < BoardSize
}
