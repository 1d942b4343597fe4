// Package solana implements the balance verifier over the Solana JSON-RPC API.
package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/tokenmarket/soldex/pkg/dex"
)

// Verifier answers the two read-only balance queries the execute pre-check
// needs. It never submits or signs anything.
type Verifier struct {
	client *rpc.Client
}

func NewVerifier(endpoint string) *Verifier {
	return &Verifier{client: rpc.New(endpoint)}
}

// Ping checks that the RPC node is reachable and reports itself healthy.
func (v *Verifier) Ping(ctx context.Context) error {
	out, err := v.client.GetHealth(ctx)
	if err != nil {
		return err
	}
	if out != rpc.HealthOk {
		return fmt.Errorf("rpc node unhealthy: %s", out)
	}
	return nil
}

// NativeBalance returns the account's SOL balance in lamports.
func (v *Verifier) NativeBalance(ctx context.Context, account solanago.PublicKey) (uint64, error) {
	out, err := v.client.GetBalance(ctx, account, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get balance of %s: %w", account, err)
	}
	return out.Value, nil
}

// AssetBalance returns the owner's balance of the mint, in base units, read
// from the associated token account. An owner who never created the token
// account holds zero: "account not found" is a balance, not a failure. Every
// other RPC failure propagates.
func (v *Verifier) AssetBalance(ctx context.Context, owner, mint solanago.PublicKey) (uint64, error) {
	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account for %s: %w", owner, err)
	}

	out, err := v.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		if isAccountNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get token balance of %s: %w", ata, err)
	}
	if out.Value == nil {
		return 0, fmt.Errorf("token balance of %s: empty response", ata)
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token balance of %s: parse %q: %w", ata, out.Value.Amount, err)
	}
	return amount, nil
}

// isAccountNotFound matches the RPC node's reply for a token account that was
// never created, which must read as a zero balance.
func isAccountNotFound(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "could not find account")
}

var _ dex.BalanceVerifier = (*Verifier)(nil)
