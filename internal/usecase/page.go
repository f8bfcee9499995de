package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/chain"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/devenv"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/metrics"
)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

type gameClient interface {
	FetchGameState(ctx context.Context, game solana.PublicKey) (*entity.Game, error)
	SetupGame(ctx context.Context, keys *entity.Keys) (*chain.Result, error)
	Play(ctx context.Context, keys *entity.Keys, player solana.PrivateKey, row, col uint8) (*chain.Result, error)
	FundAccount(ctx context.Context, account solana.PublicKey) (solana.Signature, error)
	AccountFunds(ctx context.Context, account solana.PublicKey) (uint64, error)
}

type devTools interface {
	CloneProgram(ctx context.Context) (bool, error)
	RestartValidator(ctx context.Context) (string, error)
	TakeSnapshot(ctx context.Context, keys *entity.Keys, number int) (*devenv.Snapshot, error)
	RestoreLastSnapshot(ctx context.Context) (*devenv.RestoreResult, error)
	ModifyGameState(ctx context.Context, keys *entity.Keys, state *entity.Game) error
	DeleteAppSnapshots(ctx context.Context) (int, error)
	LabelTransaction(ctx context.Context, signature solana.Signature, label string) error
}

type publisher interface {
	Publish(session *entity.Session)
}

type action func(ctx context.Context, session *entity.Session, keys *entity.Keys) error

// Page - the page controller. Every action loads the session, marks it in flight,
// runs its remote calls one after another, stores the new view and publishes it.
// Actions of one session are not serialized: whichever finishes last wins.
type Page struct {
	logger    *slog.Logger
	sessions  sessionRepo
	chain     gameClient
	tools     devTools
	publisher publisher
	metrics   *metrics.Metrics
}

// NewPage - tools may be nil when the development environment is disabled.
func NewPage(logger *slog.Logger, sessions sessionRepo, chain gameClient, tools devTools, publisher publisher, m *metrics.Metrics) *Page {
	return &Page{
		logger:    logger.With("component", "page"),
		sessions:  sessions,
		chain:     chain,
		tools:     tools,
		publisher: publisher,
		metrics:   m,
	}
}

// DevEnvEnabled - reports whether dev actions are available.
func (that *Page) DevEnvEnabled() bool {
	return that.tools != nil
}

// Mount - creates the session of a new page load with fresh keypairs.
func (that *Page) Mount(ctx context.Context) (*entity.Session, error) {
	keys, err := entity.NewKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to create keys: %w", err)
	}

	session := &entity.Session{
		ID:           uuid.NewString(),
		GameKey:      keys.Game.String(),
		PlayerOneKey: keys.PlayerOne.String(),
		PlayerTwoKey: keys.PlayerTwo.String(),
		Phase:        entity.PhaseNotMounted,
		CreatedAt:    time.Now().UTC(),
	}

	setGame(session, nil)
	session.Phase = entity.PhaseIdle
	if err = that.sessions.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	that.logger.Info("session mounted", "session", session.ID, "game", keys.Game.PublicKey().String())

	return session, nil
}

// Session - returns the stored session.
func (that *Page) Session(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// Unmount - drops the session and its keys.
func (that *Page) Unmount(ctx context.Context, id string) error {
	if err := that.sessions.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	that.logger.Info("session unmounted", "session", id)

	return nil
}

// FundPlayer - airdrops one SOL to player one.
func (that *Page) FundPlayer(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.run(ctx, sessionID, "fund", func(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
		signature, err := that.chain.FundAccount(ctx, keys.PlayerOne.PublicKey())
		if err != nil {
			return err
		}

		session.View.LastSignature = signature.String()
		session.View.Notice = "Player Funded"

		return that.refreshFunds(ctx, session, keys)
	})
}

// CreateGame - sets up a new game between both players.
func (that *Page) CreateGame(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.run(ctx, sessionID, "create", func(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
		result, err := that.chain.SetupGame(ctx, keys)
		if result != nil {
			session.View.LastSignature = result.Signature.String()
		}
		if err != nil {
			return err
		}

		setGame(session, result.Game)
		that.label(ctx, result.Signature, "Setup Game")
		session.View.Notice = "Game Created"

		return that.refreshFunds(ctx, session, keys)
	})
}

// Play - plays (row, col) for the player whose turn the last fetched state shows.
// The move is not checked here.
func (that *Page) Play(ctx context.Context, sessionID string, row, col uint8) (*entity.Session, error) {
	return that.run(ctx, sessionID, "play", func(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
		game, err := entity.FromView(session.View.Game)
		if err != nil {
			return fmt.Errorf("failed to read displayed game: %w", err)
		}

		player := keys.Player(entity.NextPlayerIndex(game))

		result, err := that.chain.Play(ctx, keys, player, row, col)
		if result != nil {
			session.View.LastSignature = result.Signature.String()
		}
		if err != nil {
			return err
		}

		setGame(session, result.Game)
		that.label(ctx, result.Signature, fmt.Sprintf("Play (%d,%d)", row, col))

		if result.Game != nil && result.Game.IsFinished() {
			session.View.Notice = "Game Over"
		}

		return that.refreshFunds(ctx, session, keys)
	})
}

// Refresh - reloads the game state and the balances.
func (that *Page) Refresh(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.run(ctx, sessionID, "refresh", that.refresh)
}

// CloneProgram - clones the game program into the local validator.
func (that *Page) CloneProgram(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "clone", func(ctx context.Context, session *entity.Session, _ *entity.Keys) error {
		exists, err := that.tools.CloneProgram(ctx)
		if err != nil {
			return err
		}

		if exists {
			session.View.Notice = "Program cloned"
		} else {
			session.View.Notice = "Program not found after cloning"
		}

		return nil
	})
}

// RestartValidator - restarts the validator.
func (that *Page) RestartValidator(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "restart", func(ctx context.Context, session *entity.Session, _ *entity.Keys) error {
		version, err := that.tools.RestartValidator(ctx)
		if err != nil {
			return err
		}

		session.View.Notice = "Validator restarted (" + version + ")"

		return nil
	})
}

// TakeSnapshot - snapshots the session accounts.
func (that *Page) TakeSnapshot(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "snapshot", func(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
		number := session.SnapshotCount
		session.SnapshotCount++

		if _, err := that.tools.TakeSnapshot(ctx, keys, number); err != nil {
			return err
		}

		session.View.Notice = fmt.Sprintf("Snapshot %d taken", number)

		return nil
	})
}

// RestoreSnapshot - restores the last snapshot and reloads the page state.
func (that *Page) RestoreSnapshot(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "restore", func(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
		if _, err := that.tools.RestoreLastSnapshot(ctx); err != nil {
			return err
		}

		session.View.Notice = "Snapshot restored"

		return that.refresh(ctx, session, keys)
	})
}

// SetPreset - forces the named game state onto the game account.
func (that *Page) SetPreset(ctx context.Context, sessionID, name string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "preset", func(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
		preset, err := devenv.Preset(name)
		if err != nil {
			return err
		}

		if err = that.tools.ModifyGameState(ctx, keys, preset); err != nil {
			return err
		}

		session.View.Notice = "Game state set to " + name

		return that.refresh(ctx, session, keys)
	})
}

// DeleteSnapshots - deletes all snapshots of the app.
func (that *Page) DeleteSnapshots(ctx context.Context, sessionID string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "delete-snapshots", func(ctx context.Context, session *entity.Session, _ *entity.Keys) error {
		deleted, err := that.tools.DeleteAppSnapshots(ctx)
		if err != nil {
			return err
		}

		session.View.Notice = fmt.Sprintf("Deleted %d snapshots", deleted)

		return nil
	})
}

// LabelTransaction - labels a transaction in the development environment.
func (that *Page) LabelTransaction(ctx context.Context, sessionID string, signature solana.Signature, label string) (*entity.Session, error) {
	return that.runDev(ctx, sessionID, "label", func(ctx context.Context, session *entity.Session, _ *entity.Keys) error {
		if err := that.tools.LabelTransaction(ctx, signature, label); err != nil {
			return err
		}

		session.View.Notice = "Transaction labelled " + label

		return nil
	})
}

func (that *Page) runDev(ctx context.Context, sessionID, name string, fn action) (*entity.Session, error) {
	if that.tools == nil {
		return nil, apperror.ErrDevEnvDisabled
	}

	return that.run(ctx, sessionID, name, fn)
}

func (that *Page) run(ctx context.Context, sessionID, name string, fn action) (*entity.Session, error) {
	log := that.logger.With("method", name, "session", sessionID)

	session, err := that.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	keys, err := entity.KeysOf(session)
	if err != nil {
		return nil, fmt.Errorf("failed to read session keys: %w", err)
	}

	session.Phase = entity.PhaseInFlight
	session.View.LastError = ""
	session.View.Notice = ""
	if err = that.sessions.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	actionErr := fn(ctx, session, keys)
	that.metrics.ObserveAction(name, actionErr)
	if actionErr != nil {
		log.Error("action failed", "error", actionErr)
		session.View.LastError = actionErr.Error()
	}

	session.Phase = entity.PhaseIdle
	if err = that.sessions.CreateOrUpdate(context.WithoutCancel(ctx), session); err != nil {
		return nil, errors.Join(actionErr, fmt.Errorf("failed to update session: %w", err))
	}

	if that.publisher != nil {
		that.publisher.Publish(session)
	}

	if actionErr != nil {
		return session, fmt.Errorf("%s failed: %w", name, actionErr)
	}

	log.Debug("action done", "notice", session.View.Notice)

	return session, nil
}

func (that *Page) refresh(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
	game, err := that.chain.FetchGameState(ctx, keys.Game.PublicKey())
	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		setGame(session, nil)
	case err != nil:
		return err
	default:
		setGame(session, game)
	}

	return that.refreshFunds(ctx, session, keys)
}

func (that *Page) refreshFunds(ctx context.Context, session *entity.Session, keys *entity.Keys) error {
	targets := []struct {
		account solana.PublicKey
		funds   *uint64
	}{
		{keys.Game.PublicKey(), &session.View.GameFunds},
		{keys.PlayerOne.PublicKey(), &session.View.PlayerOneFunds},
		{keys.PlayerTwo.PublicKey(), &session.View.PlayerTwoFunds},
	}

	for _, target := range targets {
		funds, err := that.chain.AccountFunds(ctx, target.account)
		if err != nil {
			return fmt.Errorf("failed to update funds: %w", err)
		}
		*target.funds = funds
	}

	return nil
}

// label - labels the transaction when the development environment is on. Failures are only logged.
func (that *Page) label(ctx context.Context, signature solana.Signature, label string) {
	if that.tools == nil {
		return
	}

	if err := that.tools.LabelTransaction(ctx, signature, label); err != nil {
		that.logger.Warn("failed to label transaction", "signature", signature.String(), "error", err)
	}
}

func setGame(session *entity.Session, game *entity.Game) {
	session.View.Game = entity.ToView(game)
	session.View.CurrentPlayer = entity.NextPlayerIndex(game)
}
