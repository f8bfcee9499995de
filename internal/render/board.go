package render

import (
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

const winnerPrefixLen = 16

type Square struct {
	Row   int
	Col   int
	Label string
}

// BoardView - what the board shows: a status line and nine squares.
type BoardView struct {
	Status  string
	Squares [entity.BoardSize][entity.BoardSize]Square

	onPlay func(row, col int)
}

// Board - renders the board. A nil board renders empty squares.
func Board(board *entity.Board, outcome entity.Outcome, nextPlayer string, onPlay func(row, col int)) BoardView {
	view := BoardView{
		Status: Status(outcome, nextPlayer),
		onPlay: onPlay,
	}

	for row := range view.Squares {
		for col := range view.Squares[row] {
			square := Square{Row: row, Col: col}
			if board != nil {
				square.Label = board[row][col].Mark()
			}
			view.Squares[row][col] = square
		}
	}

	return view
}

// Click - hands (row, col) to the callback whatever the square holds.
func (that BoardView) Click(row, col int) {
	if that.onPlay != nil {
		that.onPlay(row, col)
	}
}

// Status - the line above the board.
func Status(outcome entity.Outcome, nextPlayer string) string {
	switch outcome := outcome.(type) {
	case entity.Won:
		return "Winner: " + truncate(outcome.Winner.String(), winnerPrefixLen) + "..."
	case entity.Tie:
		return "Tie!"
	case entity.Active, nil:
		return "Next player: " + nextPlayer
	}

	return "Next player: " + nextPlayer
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
