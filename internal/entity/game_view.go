package entity

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnknownGameState = errors.New("unknown game state")
	ErrUnknownMark      = errors.New("unknown cell mark")
)

// ToView - converts a game snapshot into its stored form.
func ToView(game *Game) *GameView {
	if game == nil {
		return nil
	}

	view := &GameView{
		Players: [2]string{game.Players[0].String(), game.Players[1].String()},
		Turn:    game.Turn,
	}

	for row := range game.Board {
		for col, cell := range game.Board[row] {
			view.Board[row][col] = cell.Mark()
		}
	}

	switch outcome := game.Outcome.(type) {
	case Won:
		view.State = StateWon
		view.Winner = outcome.Winner.String()
	case Tie:
		view.State = StateTie
	default:
		view.State = StateActive
	}

	return view
}

// FromView - restores a game snapshot from its stored form.
func FromView(view *GameView) (*Game, error) {
	if view == nil {
		return nil, nil
	}

	game := &Game{Turn: view.Turn}

	for i, key := range view.Players {
		pubkey, err := solana.PublicKeyFromBase58(key)
		if err != nil {
			return nil, fmt.Errorf("invalid player %d key: %w", i, err)
		}
		game.Players[i] = pubkey
	}

	for row := range view.Board {
		for col, mark := range view.Board[row] {
			switch mark {
			case "":
				game.Board[row][col] = EmptyCell
			case PlayerX:
				game.Board[row][col] = CellX
			case PlayerO:
				game.Board[row][col] = CellO
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownMark, mark)
			}
		}
	}

	switch view.State {
	case StateActive:
		game.Outcome = Active{}
	case StateTie:
		game.Outcome = Tie{}
	case StateWon:
		winner, err := solana.PublicKeyFromBase58(view.Winner)
		if err != nil {
			return nil, fmt.Errorf("invalid winner key: %w", err)
		}
		game.Outcome = Won{Winner: winner}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownGameState, view.State)
	}

	return game, nil
}
