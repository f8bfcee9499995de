// Package chain talks to the validator: it reads the game account, sends
// setup and play transactions and funds accounts. It never checks moves;
// the program is the only judge of turn order, occupied cells and results.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/metrics"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/program"
)

const (
	commitment          = rpc.CommitmentConfirmed
	defaultPollInterval = 500 * time.Millisecond
	metricsTarget       = "rpc"
)

var errNotConfirmed = errors.New("transaction not confirmed yet")

type rpcClient interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetVersion(ctx context.Context) (*rpc.GetVersionResult, error)
}

// Result - signature of a confirmed transaction and the game state read after it.
type Result struct {
	Signature solana.Signature
	Game      *entity.Game
}

type Client struct {
	logger  *slog.Logger
	rpc     rpcClient
	metrics *metrics.Metrics

	programID      solana.PublicKey
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// New - creates a client for the validator at rpcURL.
func New(logger *slog.Logger, rpcURL string, programID solana.PublicKey, confirmTimeout time.Duration, m *metrics.Metrics) *Client {
	return newClient(logger, rpc.New(rpcURL), programID, confirmTimeout, m)
}

func newClient(logger *slog.Logger, client rpcClient, programID solana.PublicKey, confirmTimeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		logger:         logger.With("component", "chain"),
		rpc:            client,
		metrics:        m,
		programID:      programID,
		confirmTimeout: confirmTimeout,
		pollInterval:   defaultPollInterval,
	}
}

// FetchGameState - reads and decodes the game account.
func (that *Client) FetchGameState(ctx context.Context, game solana.PublicKey) (*entity.Game, error) {
	account, err := that.accountInfo(ctx, game)
	if err != nil {
		return nil, err
	}

	if account == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, game)
	}

	state, err := program.DecodeGame(account.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode game %s: %w", game, err)
	}

	return state, nil
}

// SetupGame - creates the game account for both players and returns the new state.
func (that *Client) SetupGame(ctx context.Context, keys *entity.Keys) (*Result, error) {
	instruction := program.NewSetupGameInstruction(
		that.programID,
		keys.Game.PublicKey(),
		keys.PlayerOne.PublicKey(),
		keys.PlayerTwo.PublicKey(),
	)

	signature, err := that.sendAndConfirm(ctx, instruction, keys.PlayerOne, keys.Game)
	if err != nil {
		return nil, fmt.Errorf("failed to setup game: %w", err)
	}

	return that.resultOf(ctx, keys, signature)
}

// Play - submits a move for player. Player one pays the fee.
func (that *Client) Play(ctx context.Context, keys *entity.Keys, player solana.PrivateKey, row, col uint8) (*Result, error) {
	instruction := program.NewPlayInstruction(that.programID, keys.Game.PublicKey(), player.PublicKey(), row, col)

	signature, err := that.sendAndConfirm(ctx, instruction, keys.PlayerOne, player)
	if err != nil {
		return nil, fmt.Errorf("failed to play (%d,%d): %w", row, col, err)
	}

	return that.resultOf(ctx, keys, signature)
}

// FundAccount - airdrops one SOL to the account and waits for confirmation.
func (that *Client) FundAccount(ctx context.Context, account solana.PublicKey) (solana.Signature, error) {
	latest, err := that.latestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	started := time.Now()
	signature, err := that.rpc.RequestAirdrop(ctx, account, solana.LAMPORTS_PER_SOL, commitment)
	that.metrics.ObserveRemote(metricsTarget, "requestAirdrop", started, err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to request airdrop: %w", err)
	}

	if err = that.confirm(ctx, signature, latest.LastValidBlockHeight); err != nil {
		return signature, fmt.Errorf("failed to confirm airdrop: %w", err)
	}

	return signature, nil
}

// AccountFunds - lamports held by the account, zero when it does not exist.
func (that *Client) AccountFunds(ctx context.Context, account solana.PublicKey) (uint64, error) {
	info, err := that.accountInfo(ctx, account)
	if err != nil {
		return 0, err
	}

	if info == nil {
		return 0, nil
	}

	return info.Lamports, nil
}

// AccountExists - reports whether the account is present, used after cloning the program.
func (that *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := that.accountInfo(ctx, account)
	if err != nil {
		return false, err
	}

	return info != nil, nil
}

// Version - version of the validator.
func (that *Client) Version(ctx context.Context) (string, error) {
	started := time.Now()
	version, err := that.rpc.GetVersion(ctx)
	that.metrics.ObserveRemote(metricsTarget, "getVersion", started, err)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}

	return version.SolanaCore, nil
}

func (that *Client) resultOf(ctx context.Context, keys *entity.Keys, signature solana.Signature) (*Result, error) {
	game, err := that.FetchGameState(ctx, keys.Game.PublicKey())
	if err != nil {
		return &Result{Signature: signature}, err
	}

	return &Result{Signature: signature, Game: game}, nil
}

func (that *Client) accountInfo(ctx context.Context, account solana.PublicKey) (*rpc.Account, error) {
	started := time.Now()
	result, err := that.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		that.metrics.ObserveRemote(metricsTarget, "getAccountInfo", started, nil)
		return nil, nil
	}
	that.metrics.ObserveRemote(metricsTarget, "getAccountInfo", started, err)

	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", account, err)
	}

	return result.Value, nil
}

func (that *Client) latestBlockhash(ctx context.Context) (*rpc.LatestBlockhashResult, error) {
	started := time.Now()
	latest, err := that.rpc.GetLatestBlockhash(ctx, commitment)
	that.metrics.ObserveRemote(metricsTarget, "getLatestBlockhash", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	return latest.Value, nil
}

// sendAndConfirm - signs with payer and the other signers, sends without preflight and awaits confirmation.
func (that *Client) sendAndConfirm(ctx context.Context, instruction solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (solana.Signature, error) {
	log := that.logger.With("method", "sendAndConfirm")

	latest, err := that.latestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		latest.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	all := append([]solana.PrivateKey{payer}, signers...)
	if _, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range all {
			if all[i].PublicKey().Equals(key) {
				return &all[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	started := time.Now()
	signature, err := that.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: commitment,
	})
	that.metrics.ObserveRemote(metricsTarget, "sendTransaction", started, err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	log.Debug("transaction sent", "signature", signature.String())

	if err = that.confirm(ctx, signature, latest.LastValidBlockHeight); err != nil {
		return signature, err
	}

	return signature, nil
}

// confirm - polls the signature status until it is confirmed, fails, or its blockhash expires.
func (that *Client) confirm(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64) error {
	ctx, cancel := context.WithTimeout(ctx, that.confirmTimeout)
	defer cancel()

	poll := backoff.WithContext(backoff.NewConstantBackOff(that.pollInterval), ctx)

	err := backoff.Retry(func() error {
		started := time.Now()
		statuses, err := that.rpc.GetSignatureStatuses(ctx, false, signature)
		that.metrics.ObserveRemote(metricsTarget, "getSignatureStatuses", started, err)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get signature status: %w", err))
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return backoff.Permanent(fmt.Errorf("%w: %s: %v", apperror.ErrTransactionFailed, signature, status.Err))
			}

			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		height, err := that.rpc.GetBlockHeight(ctx, commitment)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get block height: %w", err))
		}

		if height > lastValidBlockHeight {
			return backoff.Permanent(fmt.Errorf("%w: %s: blockhash expired", apperror.ErrConfirmTimeout, signature))
		}

		return errNotConfirmed
	}, poll)

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", apperror.ErrConfirmTimeout, signature)
	}

	return err
}
