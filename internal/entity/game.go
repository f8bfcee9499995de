package entity

import (
	"github.com/gagliardetto/solana-go"
)

const BoardSize = 3

type Cell uint8

const (
	EmptyCell Cell = iota
	CellX
	CellO
)

const (
	PlayerX = "X"
	PlayerO = "O"
)

// Mark - returns the text shown for the cell.
func (that Cell) Mark() string {
	switch that {
	case CellX:
		return PlayerX
	case CellO:
		return PlayerO
	default:
		return ""
	}
}

type Board [BoardSize][BoardSize]Cell

// Outcome is one of Active, Tie or Won.
type Outcome interface {
	isOutcome()
}

type Active struct{}

type Tie struct{}

type Won struct {
	Winner solana.PublicKey
}

func (Active) isOutcome() {}
func (Tie) isOutcome()    {}
func (Won) isOutcome()    {}

// Game is a read-only snapshot of the on-chain game account.
type Game struct {
	Players [2]solana.PublicKey
	Turn    uint8
	Board   Board
	Outcome Outcome
}

// IsFinished - reports whether the program has decided the game.
func (that *Game) IsFinished() bool {
	switch that.Outcome.(type) {
	case Won, Tie:
		return true
	default:
		return false
	}
}

// NextPlayerIndex - index of the player expected to move: 0 on odd turns, 1 on even ones.
// Without a game the turn counts as 0.
func NextPlayerIndex(game *Game) int {
	var turn uint8
	if game != nil {
		turn = game.Turn
	}

	if turn%2 == 0 {
		return 1
	}

	return 0
}
