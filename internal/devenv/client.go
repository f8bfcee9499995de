// Package devenv drives the local development environment tool: account
// cloning and mutation, snapshots, transaction labels and validator restarts.
package devenv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/metrics"
)

const (
	codecName     = "json"
	metricsTarget = "devenv"

	methodCloneAccount     = "/devenv.mutator.Mutator/CloneAccount"
	methodModifyAccount    = "/devenv.mutator.Mutator/ModifyAccount"
	methodCreateSnapshot   = "/devenv.snapshot.Snapshot/CreateSnapshot"
	methodRestoreSnapshot  = "/devenv.snapshot.Snapshot/RestoreAccountsFromLastUpdatedSnapshot"
	methodDeleteSnapshots  = "/devenv.snapshot.Snapshot/DeleteSnapshotsMatching"
	methodLabelTransaction = "/devenv.transaction.Transaction/LabelTransaction"
	methodRestartValidator = "/devenv.validator.Validator/Restart"
)

type Cluster string

const (
	ClusterDevnet      Cluster = "devnet"
	ClusterTestnet     Cluster = "testnet"
	ClusterMainnetBeta Cluster = "mainnet-beta"
	ClusterDevelopment Cluster = "development"
)

type SnapshotOptions struct {
	Description string `json:"description,omitempty"`
	Group       string `json:"group,omitempty"`
}

type SnapshotFilter struct {
	Group string `json:"group,omitempty"`
}

type RestoreOptions struct {
	DeleteSnapshotAfterRestore bool           `json:"deleteSnapshotAfterRestore"`
	Filter                     SnapshotFilter `json:"filter"`
}

// AccountModification - overwrites the data of one account.
type AccountModification struct {
	Address string `json:"address"`
	Data    []byte `json:"data,omitempty"`
	Size    int    `json:"size,omitempty"`
}

// ForAddr - starts a modification of the account at address.
func ForAddr(address string) AccountModification {
	return AccountModification{Address: address}
}

// SetData - sets account data, size is the size the account is allocated with.
func (that AccountModification) SetData(data []byte, size int) AccountModification {
	that.Data = data
	that.Size = size

	return that
}

type Snapshot struct {
	ID    string `json:"snapshotId"`
	Label string `json:"label"`
}

type RestoreResult struct {
	SnapshotID string   `json:"snapshotId"`
	Accounts   []string `json:"accounts"`
}

type cloneAccountRequest struct {
	Cluster Cluster `json:"cluster"`
	Address string  `json:"address"`
}

type createSnapshotRequest struct {
	Label    string          `json:"label"`
	Accounts []string        `json:"accounts"`
	Options  SnapshotOptions `json:"options"`
}

type deleteSnapshotsRequest struct {
	Filter SnapshotFilter `json:"filter"`
}

type deleteSnapshotsResponse struct {
	Deleted int `json:"deleted"`
}

type labelTransactionRequest struct {
	Signature string `json:"signature"`
	Label     string `json:"label"`
}

type empty struct{}

// jsonCodec carries the tool's messages as JSON over gRPC.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Client struct {
	conn    *grpc.ClientConn
	metrics *metrics.Metrics
}

// New - connects to the development environment at addr.
func New(addr string, m *metrics.Metrics, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create devenv client: %w", err)
	}

	return &Client{conn: conn, metrics: m}, nil
}

func (that *Client) Close() error {
	return that.conn.Close()
}

// CloneAccount - copies an account, e.g. a program, from a public cluster.
func (that *Client) CloneAccount(ctx context.Context, cluster Cluster, address string) error {
	return that.invoke(ctx, methodCloneAccount, &cloneAccountRequest{Cluster: cluster, Address: address}, &empty{})
}

// ModifyAccount - overwrites account data.
func (that *Client) ModifyAccount(ctx context.Context, modification AccountModification) error {
	return that.invoke(ctx, methodModifyAccount, &modification, &empty{})
}

// CreateSnapshot - snapshots the given accounts.
func (that *Client) CreateSnapshot(ctx context.Context, label string, accounts []string, opts SnapshotOptions) (*Snapshot, error) {
	snapshot := &Snapshot{}

	err := that.invoke(ctx, methodCreateSnapshot, &createSnapshotRequest{
		Label:    label,
		Accounts: accounts,
		Options:  opts,
	}, snapshot)
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// RestoreAccountsFromLastUpdatedSnapshot - restores the most recently updated snapshot matching the filter.
func (that *Client) RestoreAccountsFromLastUpdatedSnapshot(ctx context.Context, opts RestoreOptions) (*RestoreResult, error) {
	result := &RestoreResult{}

	if err := that.invoke(ctx, methodRestoreSnapshot, &opts, result); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteSnapshotsMatching - deletes all snapshots matching the filter and returns how many were deleted.
func (that *Client) DeleteSnapshotsMatching(ctx context.Context, filter SnapshotFilter) (int, error) {
	resp := &deleteSnapshotsResponse{}

	if err := that.invoke(ctx, methodDeleteSnapshots, &deleteSnapshotsRequest{Filter: filter}, resp); err != nil {
		return 0, err
	}

	return resp.Deleted, nil
}

// LabelTransaction - attaches a label to the transaction with the given signature.
func (that *Client) LabelTransaction(ctx context.Context, signature, label string) error {
	return that.invoke(ctx, methodLabelTransaction, &labelTransactionRequest{Signature: signature, Label: label}, &empty{})
}

// RestartValidator - restarts the validator.
func (that *Client) RestartValidator(ctx context.Context) error {
	return that.invoke(ctx, methodRestartValidator, &empty{}, &empty{})
}

func (that *Client) invoke(ctx context.Context, method string, req, resp any) error {
	started := time.Now()
	err := that.conn.Invoke(ctx, method, req, resp)
	that.metrics.ObserveRemote(metricsTarget, method, started, err)

	if err != nil {
		return fmt.Errorf("devenv call %s failed: %w", method, err)
	}

	return nil
}
