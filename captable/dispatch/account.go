package dispatch

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/opencaptable/ocp-solana/captable/accounts"
)

// FetchAccount reads the raw data of a program account. A missing account
// yields accounts.ErrAccountNotFound.
func (d *Dispatcher) FetchAccount(ctx context.Context, pk solana.PublicKey) ([]byte, error) {
	err := d.wait(ctx)
	if err != nil {
		return nil, &UnavailableError{Instruction: "fetch account", Op: "wait for rate limit", Err: err}
	}

	res, err := d.rpc.GetAccountInfoWithOpts(ctx, pk, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: d.opts.Commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, accounts.ErrAccountNotFound
	}
	if err != nil {
		return nil, &UnavailableError{Instruction: "fetch account", Op: "get account " + pk.String(), Err: err}
	}
	if res == nil || res.Value == nil {
		return nil, accounts.ErrAccountNotFound
	}
	if !res.Value.Owner.Equals(d.opts.ProgramID) || res.Value.Data == nil {
		return nil, accounts.ErrAccountNotFound
	}
	return res.Value.Data.GetBinary(), nil
}
