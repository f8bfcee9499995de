package usecase

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/chain"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/devenv"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

// memorySessions keeps copies of sessions and every phase it was stored with.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
	phases   []entity.Phase
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]entity.Session{}}
}

func (that *memorySessions) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = *session
	that.phases = append(that.phases, session.Phase)

	return nil
}

func (that *memorySessions) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	return &session, nil
}

func (that *memorySessions) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[id]; !ok {
		return apperror.ErrSessionNotFound
	}
	delete(that.sessions, id)

	return nil
}

type recordingPublisher struct {
	published []entity.Session
}

func (that *recordingPublisher) Publish(session *entity.Session) {
	that.published = append(that.published, *session)
}

type mockGameClient struct {
	mock.Mock
}

func (m *mockGameClient) FetchGameState(ctx context.Context, game solana.PublicKey) (*entity.Game, error) {
	args := m.Called(ctx, game)
	state, _ := args.Get(0).(*entity.Game)
	return state, args.Error(1)
}

func (m *mockGameClient) SetupGame(ctx context.Context, keys *entity.Keys) (*chain.Result, error) {
	args := m.Called(ctx, keys)
	result, _ := args.Get(0).(*chain.Result)
	return result, args.Error(1)
}

func (m *mockGameClient) Play(ctx context.Context, keys *entity.Keys, player solana.PrivateKey, row, col uint8) (*chain.Result, error) {
	args := m.Called(ctx, keys, player, row, col)
	result, _ := args.Get(0).(*chain.Result)
	return result, args.Error(1)
}

func (m *mockGameClient) FundAccount(ctx context.Context, account solana.PublicKey) (solana.Signature, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockGameClient) AccountFunds(ctx context.Context, account solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

type mockDevTools struct {
	mock.Mock
}

func (m *mockDevTools) CloneProgram(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockDevTools) RestartValidator(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockDevTools) TakeSnapshot(ctx context.Context, keys *entity.Keys, number int) (*devenv.Snapshot, error) {
	args := m.Called(ctx, keys, number)
	snapshot, _ := args.Get(0).(*devenv.Snapshot)
	return snapshot, args.Error(1)
}

func (m *mockDevTools) RestoreLastSnapshot(ctx context.Context) (*devenv.RestoreResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*devenv.RestoreResult)
	return result, args.Error(1)
}

func (m *mockDevTools) ModifyGameState(ctx context.Context, keys *entity.Keys, state *entity.Game) error {
	return m.Called(ctx, keys, state).Error(0)
}

func (m *mockDevTools) DeleteAppSnapshots(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockDevTools) LabelTransaction(ctx context.Context, signature solana.Signature, label string) error {
	return m.Called(ctx, signature, label).Error(0)
}
