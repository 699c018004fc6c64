package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"hot-potato/internal/config"
)

// Client is the slice of the RPC surface the game needs. Settlement and
// refunds run against this so tests can use a fake.
type Client interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature) error
	Balance(ctx context.Context, key solana.PublicKey) (uint64, error)
}

type RPCClient struct {
	rpc          *rpc.Client
	confirmEvery time.Duration
}

// NewClient picks the endpoint the way the app always has: explicit
// override first, otherwise the public endpoint for the configured network.
func NewClient(cfg config.ChainConfig) *RPCClient {
	endpoint := cfg.RPCEndpoint
	if endpoint == "" {
		if cfg.Network == "mainnet-beta" {
			endpoint = rpc.MainNetBeta_RPC
		} else {
			endpoint = rpc.DevNet_RPC
		}
	} else {
		log.Info().Str("endpoint", endpoint).Msg("using custom rpc endpoint")
	}
	return &RPCClient{
		rpc:          rpc.New(endpoint),
		confirmEvery: 500 * time.Millisecond,
	}
}

func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

func (c *RPCClient) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// Confirm polls signature status until the cluster reports the transaction
// confirmed or the context runs out.
func (c *RPCClient) Confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.confirmEvery)
	defer ticker.Stop()
	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			st := out.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, st.Err)
			}
			switch st.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), fmt.Errorf("transaction %s not confirmed", sig))
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) Balance(ctx context.Context, key solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, key, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}
