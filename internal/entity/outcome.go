package entity

import (
	"encoding/json"
	"fmt"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWin        Status = "win"
	StatusDraw       Status = "draw"
)

// Coord addresses a cell. It is encoded in JSON as [row, col].
type Coord struct {
	Row int
	Col int
}

func (that Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{that.Row, that.Col})
}

func (that *Coord) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to unmarshal coord: %w", err)
	}

	that.Row, that.Col = pair[0], pair[1]

	return nil
}

// Line is one of the eight winning triples.
type Line [BoardSize]Coord

// WinLines lists every line in scan order: rows, then columns, then the main and anti diagonal.
var WinLines = [...]Line{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Outcome is the game result derived from the board. Winner and Line are set only for StatusWin.
type Outcome struct {
	Status Status  `json:"status"`
	Winner Player  `json:"winner,omitempty"`
	Line   []Coord `json:"line,omitempty"`
}

func InProgress() Outcome {
	return Outcome{Status: StatusInProgress}
}

func Win(winner Player, line Line) Outcome {
	return Outcome{
		Status: StatusWin,
		Winner: winner,
		Line:   []Coord{line[0], line[1], line[2]},
	}
}

func Draw() Outcome {
	return Outcome{Status: StatusDraw}
}

// IsTerminal reports whether the game is over.
func (that Outcome) IsTerminal() bool {
	return that.Status == StatusWin || that.Status == StatusDraw
}

// OnLine reports whether coord belongs to the winning line.
func (that Outcome) OnLine(coord Coord) bool {
	for _, c := range that.Line {
		if c == coord {
			return true
		}
	}
	return false
}

func (that Outcome) clone() Outcome {
	if that.Line != nil {
		that.Line = append([]Coord(nil), that.Line...)
	}
	return that
}

// DetermineOutcome scans the board in WinLines order and reports the first complete line, a draw
// when the board is full, or in progress otherwise.
func DetermineOutcome(board Board) Outcome {
	for _, line := range WinLines {
		a := board[line[0].Row][line[0].Col]
		b := board[line[1].Row][line[1].Col]
		c := board[line[2].Row][line[2].Col]

		if a != EmptyCell && a == b && b == c {
			return Win(Player(a), line)
		}
	}

	// the game continues until all the cells are filled
	if !board.IsFull() {
		return InProgress()
	}

	return Draw()
}
