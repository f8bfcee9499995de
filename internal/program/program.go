// Package program encodes and decodes the tic-tac-toe program's accounts and instructions.
//
// The program is an Anchor program, so every account starts with the 8 byte
// discriminator sha256("account:<Name>")[:8] and every instruction with
// sha256("global:<name>")[:8], followed by borsh encoded fields.
package program

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

// GameAccountSize is the allocated size of a game account, discriminator included.
const GameAccountSize = 8 + 32*2 + 1 + entity.BoardSize*entity.BoardSize*2 + (1 + 32)

const (
	signX uint8 = 0
	signO uint8 = 1

	stateActive uint8 = 0
	stateTie    uint8 = 1
	stateWon    uint8 = 2
)

var (
	ErrBadDiscriminator = errors.New("account discriminator mismatch")
	ErrEmptyOutcome     = errors.New("game outcome is not set")

	gameDiscriminator      = bin.Sighash("account", "Game")
	setupGameDiscriminator = bin.Sighash("global", "setup_game")
	playDiscriminator      = bin.Sighash("global", "play")
)

// DecodeGame - decodes raw account data into a game snapshot.
func DecodeGame(data []byte) (*entity.Game, error) {
	if len(data) < len(gameDiscriminator) || !bytes.Equal(data[:len(gameDiscriminator)], gameDiscriminator) {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidAccount, ErrBadDiscriminator)
	}

	dec := bin.NewBorshDecoder(data[len(gameDiscriminator):])
	game := &entity.Game{}

	for i := range game.Players {
		key, err := readPublicKey(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: player %d: %w", apperror.ErrInvalidAccount, i, err)
		}
		game.Players[i] = key
	}

	turn, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: turn: %w", apperror.ErrInvalidAccount, err)
	}
	game.Turn = turn

	for row := range game.Board {
		for col := range game.Board[row] {
			cell, err := readCell(dec)
			if err != nil {
				return nil, fmt.Errorf("%w: cell (%d,%d): %w", apperror.ErrInvalidAccount, row, col, err)
			}
			game.Board[row][col] = cell
		}
	}

	outcome, err := readOutcome(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: state: %w", apperror.ErrInvalidAccount, err)
	}
	game.Outcome = outcome

	return game, nil
}

// EncodeGame - encodes a game snapshot into raw account data padded to GameAccountSize.
func EncodeGame(game *entity.Game) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(gameDiscriminator)
	enc := bin.NewBorshEncoder(buf)

	for _, player := range game.Players {
		if err := enc.WriteBytes(player.Bytes(), false); err != nil {
			return nil, fmt.Errorf("failed to write player: %w", err)
		}
	}

	if err := enc.WriteUint8(game.Turn); err != nil {
		return nil, fmt.Errorf("failed to write turn: %w", err)
	}

	for row := range game.Board {
		for _, cell := range game.Board[row] {
			if err := writeCell(enc, cell); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	if err := writeOutcome(enc, game.Outcome); err != nil {
		return nil, fmt.Errorf("failed to write state: %w", err)
	}

	data := buf.Bytes()
	if len(data) < GameAccountSize {
		data = append(data, make([]byte, GameAccountSize-len(data))...)
	}

	return data, nil
}

// NewSetupGameInstruction - builds setup_game(player_two) creating the game account.
func NewSetupGameInstruction(programID, game, playerOne, playerTwo solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, len(setupGameDiscriminator)+solana.PublicKeyLength)
	data = append(data, setupGameDiscriminator...)
	data = append(data, playerTwo.Bytes()...)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(game, true, true),
		solana.NewAccountMeta(playerOne, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return solana.NewInstruction(programID, accounts, data)
}

// NewPlayInstruction - builds play(tile) for the given player. Row and column are sent as is.
func NewPlayInstruction(programID, game, player solana.PublicKey, row, column uint8) solana.Instruction {
	data := make([]byte, 0, len(playDiscriminator)+2)
	data = append(data, playDiscriminator...)
	data = append(data, row, column)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(game, true, false),
		solana.NewAccountMeta(player, false, true),
	}

	return solana.NewInstruction(programID, accounts, data)
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}

	return solana.PublicKeyFromBytes(raw), nil
}

func readCell(dec *bin.Decoder) (entity.Cell, error) {
	present, err := dec.ReadUint8()
	if err != nil {
		return entity.EmptyCell, err
	}

	if present == 0 {
		return entity.EmptyCell, nil
	}

	sign, err := dec.ReadUint8()
	if err != nil {
		return entity.EmptyCell, err
	}

	switch sign {
	case signX:
		return entity.CellX, nil
	case signO:
		return entity.CellO, nil
	default:
		return entity.EmptyCell, fmt.Errorf("unknown sign %d", sign)
	}
}

func writeCell(enc *bin.Encoder, cell entity.Cell) error {
	switch cell {
	case entity.CellX:
		return writeUint8s(enc, 1, signX)
	case entity.CellO:
		return writeUint8s(enc, 1, signO)
	default:
		return enc.WriteUint8(0)
	}
}

func readOutcome(dec *bin.Decoder) (entity.Outcome, error) {
	variant, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}

	switch variant {
	case stateActive:
		return entity.Active{}, nil
	case stateTie:
		return entity.Tie{}, nil
	case stateWon:
		winner, err := readPublicKey(dec)
		if err != nil {
			return nil, err
		}
		return entity.Won{Winner: winner}, nil
	default:
		return nil, fmt.Errorf("unknown state variant %d", variant)
	}
}

func writeOutcome(enc *bin.Encoder, outcome entity.Outcome) error {
	switch outcome := outcome.(type) {
	case entity.Active:
		return enc.WriteUint8(stateActive)
	case entity.Tie:
		return enc.WriteUint8(stateTie)
	case entity.Won:
		if err := enc.WriteUint8(stateWon); err != nil {
			return err
		}
		return enc.WriteBytes(outcome.Winner.Bytes(), false)
	default:
		return ErrEmptyOutcome
	}
}

func writeUint8s(enc *bin.Encoder, values ...uint8) error {
	for _, v := range values {
		if err := enc.WriteUint8(v); err != nil {
			return err
		}
	}

	return nil
}
