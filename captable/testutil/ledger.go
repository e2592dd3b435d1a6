package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/opencaptable/ocp-solana/captable/address"
)

// blockhashValidity is how many blocks a blockhash stays usable.
const blockhashValidity = 150

type landedTx struct {
	slot uint64
	logs []string
	err  any
}

// Ledger is an in-memory stand-in for a validator running the cap table
// program. It implements dispatch.LedgerRPC. Every accepted transaction is
// confirmed immediately in its own slot.
type Ledger struct {
	mu sync.Mutex

	programID solana.PublicKey
	deriver   address.Deriver
	height    uint64
	accounts  map[solana.PublicKey][]byte
	txs       map[solana.Signature]*landedTx

	// sendErr, when set, is returned by the next SendTransactionWithOpts.
	sendErr error
	sent    int
}

func NewLedger(programID solana.PublicKey) *Ledger {
	return &Ledger{
		programID: programID,
		deriver:   address.NewDeriver(programID),
		height:    1,
		accounts:  map[solana.PublicKey][]byte{},
		txs:       map[solana.Signature]*landedTx{},
	}
}

// FailNextSend makes the next submission fail with err before it reaches
// the program.
func (l *Ledger) FailNextSend(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// Sent is the number of submissions the ledger received.
func (l *Ledger) Sent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

// Account returns the raw data stored at pk.
func (l *Ledger) Account(pk solana.PublicKey) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.accounts[pk]
	return data, ok
}

func (l *Ledger) blockhash() solana.Hash {
	return solana.Hash(sha256.Sum256(binary.LittleEndian.AppendUint64([]byte("blockhash"), l.height)))
}

func (l *Ledger) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &rpc.GetLatestBlockhashResult{
		RPCContext: rpc.RPCContext{Context: rpc.Context{Slot: l.height}},
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            l.blockhash(),
			LastValidBlockHeight: l.height + blockhashValidity,
		},
	}, nil
}

func (l *Ledger) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height, nil
}

func (l *Ledger) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent++
	if l.sendErr != nil {
		err := l.sendErr
		l.sendErr = nil
		return solana.Signature{}, err
	}

	err := tx.VerifySignatures()
	if err != nil {
		return solana.Signature{}, &jsonrpc.RPCError{
			Code:    -32003,
			Message: fmt.Sprintf("Transaction signature verification failure: %v", err),
		}
	}
	sig := tx.Signatures[0]
	if _, seen := l.txs[sig]; seen {
		return solana.Signature{}, &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: This transaction has already been processed"}
	}

	exec, err := l.run(tx)
	if err != nil {
		failure := exec.failure(err)
		if !opts.SkipPreflight {
			return solana.Signature{}, &jsonrpc.RPCError{
				Code:    -32002,
				Message: "Transaction simulation failed: Error processing Instruction 0: " + failure.text,
				Data: map[string]any{
					"err":  failure.status,
					"logs": anySlice(exec.logs),
				},
			}
		}
		l.land(sig, exec.logs, failure.status)
		return sig, nil
	}

	for pk, data := range exec.writes {
		l.accounts[pk] = data
	}
	l.land(sig, exec.logs, nil)
	return sig, nil
}

func (l *Ledger) land(sig solana.Signature, logs []string, err any) {
	l.height++
	l.txs[sig] = &landedTx{slot: l.height, logs: logs, err: err}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (l *Ledger) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := &rpc.GetSignatureStatusesResult{Value: make([]*rpc.SignatureStatusesResult, len(sigs))}
	for i, sig := range sigs {
		tx, ok := l.txs[sig]
		if !ok {
			continue
		}
		out.Value[i] = &rpc.SignatureStatusesResult{
			Slot:               tx.slot,
			Err:                tx.err,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		}
	}
	return out, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.txs[sig]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetTransactionResult{
		Slot: tx.slot,
		Meta: &rpc.TransactionMeta{
			Err:         tx.err,
			LogMessages: append([]string(nil), tx.logs...),
		},
	}, nil
}

func (l *Ledger) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, ok := l.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		RPCContext: rpc.RPCContext{Context: rpc.Context{Slot: l.height}},
		Value: &rpc.Account{
			Lamports: 1_000_000,
			Owner:    l.programID,
			Data:     rpc.DataBytesOrJSONFromBytes(append([]byte(nil), data...)),
		},
	}, nil
}
