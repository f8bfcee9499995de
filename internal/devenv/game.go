package devenv

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/program"
)

type sdk interface {
	CloneAccount(ctx context.Context, cluster Cluster, address string) error
	ModifyAccount(ctx context.Context, modification AccountModification) error
	CreateSnapshot(ctx context.Context, label string, accounts []string, opts SnapshotOptions) (*Snapshot, error)
	RestoreAccountsFromLastUpdatedSnapshot(ctx context.Context, opts RestoreOptions) (*RestoreResult, error)
	DeleteSnapshotsMatching(ctx context.Context, filter SnapshotFilter) (int, error)
	LabelTransaction(ctx context.Context, signature, label string) error
	RestartValidator(ctx context.Context) error
}

type chainReader interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	Version(ctx context.Context) (string, error)
}

// GameTools - development environment actions scoped to the tic-tac-toe game.
type GameTools struct {
	sdk   sdk
	chain chainReader

	programID     solana.PublicKey
	snapshotGroup string
}

func NewGameTools(sdk sdk, chain chainReader, programID solana.PublicKey, snapshotGroup string) *GameTools {
	return &GameTools{
		sdk:           sdk,
		chain:         chain,
		programID:     programID,
		snapshotGroup: snapshotGroup,
	}
}

// CloneProgram - clones the program from devnet and reports whether it is now present locally.
func (that *GameTools) CloneProgram(ctx context.Context) (bool, error) {
	if err := that.sdk.CloneAccount(ctx, ClusterDevnet, that.programID.String()); err != nil {
		return false, fmt.Errorf("failed to clone program: %w", err)
	}

	exists, err := that.chain.AccountExists(ctx, that.programID)
	if err != nil {
		return false, fmt.Errorf("failed to read cloned program: %w", err)
	}

	return exists, nil
}

// RestartValidator - restarts the validator and returns its version once it answers again.
func (that *GameTools) RestartValidator(ctx context.Context) (string, error) {
	if err := that.sdk.RestartValidator(ctx); err != nil {
		return "", fmt.Errorf("failed to restart validator: %w", err)
	}

	return that.chain.Version(ctx)
}

// TakeSnapshot - snapshots both players and the game account. number is the session's snapshot counter.
func (that *GameTools) TakeSnapshot(ctx context.Context, keys *entity.Keys, number int) (*Snapshot, error) {
	accounts := keys.Accounts()
	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.String())
	}

	snapshot, err := that.sdk.CreateSnapshot(ctx, fmt.Sprintf("Snapshot %d", number), ids, SnapshotOptions{
		Description: fmt.Sprintf("Game: TicTacToe (%s)", keys.Game.PublicKey()),
		Group:       that.snapshotGroup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take snapshot: %w", err)
	}

	return snapshot, nil
}

// RestoreLastSnapshot - restores the last updated snapshot of the app and deletes it.
func (that *GameTools) RestoreLastSnapshot(ctx context.Context) (*RestoreResult, error) {
	result, err := that.sdk.RestoreAccountsFromLastUpdatedSnapshot(ctx, RestoreOptions{
		DeleteSnapshotAfterRestore: true,
		Filter:                     SnapshotFilter{Group: that.snapshotGroup},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	return result, nil
}

// ModifyGameState - overwrites the game account with state. Missing players are taken from keys.
func (that *GameTools) ModifyGameState(ctx context.Context, keys *entity.Keys, state *entity.Game) error {
	game := *state
	if game.Players[0].IsZero() && game.Players[1].IsZero() {
		game.Players = [2]solana.PublicKey{keys.PlayerOne.PublicKey(), keys.PlayerTwo.PublicKey()}
	}

	data, err := program.EncodeGame(&game)
	if err != nil {
		return fmt.Errorf("failed to encode game: %w", err)
	}

	modification := ForAddr(keys.Game.PublicKey().String()).SetData(data, program.GameAccountSize)
	if err = that.sdk.ModifyAccount(ctx, modification); err != nil {
		return fmt.Errorf("failed to modify game account: %w", err)
	}

	return nil
}

// DeleteAppSnapshots - deletes every snapshot of the app's group.
func (that *GameTools) DeleteAppSnapshots(ctx context.Context) (int, error) {
	deleted, err := that.sdk.DeleteSnapshotsMatching(ctx, SnapshotFilter{Group: that.snapshotGroup})
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}

	return deleted, nil
}

func (that *GameTools) LabelTransaction(ctx context.Context, signature solana.Signature, label string) error {
	if err := that.sdk.LabelTransaction(ctx, signature.String(), label); err != nil {
		return fmt.Errorf("failed to label transaction: %w", err)
	}

	return nil
}
