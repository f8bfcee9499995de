package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
)

type mockRPC struct {
	mock.Mock
}

func (m *mockRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, account, opts)
	result, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return result, args.Error(1)
}

func (m *mockRPC) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error) {
	args := m.Called(ctx, account, lamports, commitment)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	args := m.Called(ctx, commitment)
	result, _ := args.Get(0).(*rpc.GetLatestBlockhashResult)
	return result, args.Error(1)
}

func (m *mockRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, searchTransactionHistory, transactionSignatures)
	result, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return result, args.Error(1)
}

func (m *mockRPC) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	args := m.Called(ctx, transaction, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockRPC) GetVersion(ctx context.Context) (*rpc.GetVersionResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*rpc.GetVersionResult)
	return result, args.Error(1)
}
