package entity

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Keys - the game account and both players of one session.
type Keys struct {
	Game      solana.PrivateKey
	PlayerOne solana.PrivateKey
	PlayerTwo solana.PrivateKey
}

// NewKeys - generates fresh keypairs.
func NewKeys() (*Keys, error) {
	keys := &Keys{}

	for _, key := range []*solana.PrivateKey{&keys.Game, &keys.PlayerOne, &keys.PlayerTwo} {
		generated, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate keypair: %w", err)
		}
		*key = generated
	}

	return keys, nil
}

// KeysOf - parses the keys stored in the session.
func KeysOf(session *Session) (*Keys, error) {
	game, err := solana.PrivateKeyFromBase58(session.GameKey)
	if err != nil {
		return nil, fmt.Errorf("invalid game key: %w", err)
	}

	playerOne, err := solana.PrivateKeyFromBase58(session.PlayerOneKey)
	if err != nil {
		return nil, fmt.Errorf("invalid player one key: %w", err)
	}

	playerTwo, err := solana.PrivateKeyFromBase58(session.PlayerTwoKey)
	if err != nil {
		return nil, fmt.Errorf("invalid player two key: %w", err)
	}

	return &Keys{Game: game, PlayerOne: playerOne, PlayerTwo: playerTwo}, nil
}

// Player - returns the key of player 0 or 1.
func (that *Keys) Player(index int) solana.PrivateKey {
	if index == 1 {
		return that.PlayerTwo
	}

	return that.PlayerOne
}

// Accounts - public keys of both players and the game, in that order.
func (that *Keys) Accounts() []solana.PublicKey {
	return []solana.PublicKey{
		that.PlayerOne.PublicKey(),
		that.PlayerTwo.PublicKey(),
		that.Game.PublicKey(),
	}
}
