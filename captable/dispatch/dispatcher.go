// Package dispatch submits program instructions and waits for their
// confirmation. Each request is sent at most once; retrying a financial
// mutation is left to the caller.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/instruction"
	"golang.org/x/time/rate"
)

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 90 * time.Second
)

// LedgerRPC is the part of the Solana JSON-RPC API the dispatcher uses.
// *rpc.Client implements it.
type LedgerRPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

type Options struct {
	ProgramID solana.PublicKey
	// Commitment to wait for. Defaults to confirmed.
	Commitment     rpc.CommitmentType
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	// RequestsPerSecond throttles calls to the node. Zero means no limit.
	RequestsPerSecond float64
	SkipPreflight     bool
}

// Dispatcher holds only immutable state and may be shared by concurrent
// pipelines.
type Dispatcher struct {
	rpc     LedgerRPC
	signer  Signer
	opts    Options
	limiter *rate.Limiter
}

func New(client LedgerRPC, signer Signer, opts Options) *Dispatcher {
	if opts.ProgramID.IsZero() {
		opts.ProgramID = address.DefaultProgramID
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}

	d := &Dispatcher{
		rpc:    client,
		signer: signer,
		opts:   opts,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return d
}

func (d *Dispatcher) ProgramID() solana.PublicKey {
	return d.opts.ProgramID
}

func (d *Dispatcher) Authority() solana.PublicKey {
	return d.signer.PublicKey()
}

// Request is a built, not yet submitted call.
type Request struct {
	Instruction *instruction.Instruction
	submitted   atomic.Bool
}

// Pending is a submitted call awaiting confirmation.
type Pending struct {
	Instruction          *instruction.Instruction
	Signature            solana.Signature
	LastValidBlockHeight uint64
}

// Outcome is a confirmed call.
type Outcome struct {
	Instruction *instruction.Instruction
	Signature   solana.Signature
	Slot        uint64
	Logs        []string
}

func (d *Dispatcher) Build(ix *instruction.Instruction) *Request {
	return &Request{Instruction: ix}
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

// Submit signs and sends the request once. It returns as soon as the node
// accepts the transaction.
func (d *Dispatcher) Submit(ctx context.Context, req *Request) (*Pending, error) {
	if !req.submitted.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubmitted
	}
	name := req.Instruction.Name

	err := d.wait(ctx)
	if err != nil {
		return nil, &UnavailableError{Instruction: name, Op: "wait for rate limit", Err: err}
	}

	bh, err := d.rpc.GetLatestBlockhash(ctx, d.opts.Commitment)
	if err != nil {
		return nil, &UnavailableError{Instruction: name, Op: "get latest blockhash", Err: err}
	}
	if bh == nil || bh.Value == nil {
		return nil, &UnavailableError{Instruction: name, Op: "get latest blockhash", Err: errors.New("empty response")}
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{req.Instruction.Build(d.opts.ProgramID)},
		bh.Value.Blockhash,
		solana.TransactionPayer(d.signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s transaction: %w", name, err)
	}

	err = d.signer.Sign(tx)
	if err != nil {
		return nil, err
	}

	err = d.wait(ctx)
	if err != nil {
		return nil, &UnavailableError{Instruction: name, Op: "wait for rate limit", Err: err}
	}

	noRetries := uint(0)
	sig, err := d.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       d.opts.SkipPreflight,
		PreflightCommitment: d.opts.Commitment,
		MaxRetries:          &noRetries,
	})
	if err != nil {
		err = classifySend(name, err)
		var unavailable *UnavailableError
		if errors.As(err, &unavailable) && len(tx.Signatures) > 0 {
			unavailable.Signature = tx.Signatures[0]
		}
		log.Debug("transaction not accepted", "ix", name, "err", err)
		return nil, err
	}

	log.Debug("transaction submitted", "ix", name, "signature", sig, "target", req.Instruction.Target)
	log.Trace("transaction accounts", "signature", sig, "ix", instruction.Describe(req.Instruction))

	return &Pending{
		Instruction:          req.Instruction,
		Signature:            sig,
		LastValidBlockHeight: bh.Value.LastValidBlockHeight,
	}, nil
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentProcessed:
		return status != ""
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

// Confirm polls the node until the transaction reaches the configured
// commitment, fails, or can no longer land. Cancelling ctx yields an
// UnavailableError: the transaction may still land.
func (d *Dispatcher) Confirm(ctx context.Context, p *Pending) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.ConfirmTimeout)
	defer cancel()

	name := p.Instruction.Name
	unavailable := func(op string, err error) error {
		return &UnavailableError{Instruction: name, Signature: p.Signature, Op: op, Err: err}
	}

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	var (
		lastErr   error
		confirmed bool
		slot      uint64
	)

	for {
		if !confirmed {
			status, err := d.signatureStatus(ctx, p.Signature)
			switch {
			case err != nil:
				lastErr = err
				log.Debug("signature status unavailable", "ix", name, "signature", p.Signature, "err", err)
			case status == nil:
				expired, err := d.blockhashExpired(ctx, p.LastValidBlockHeight)
				if err != nil {
					lastErr = err
				} else if expired {
					return nil, unavailable("confirm transaction", errors.New("blockhash expired before the transaction was seen"))
				}
			case status.Err != nil:
				logs := d.transactionLogs(ctx, p.Signature)
				program := ParseProgramError(logs)
				if program == nil {
					program = programErrorFromStatus(status.Err)
				}
				return nil, &RejectedError{
					Instruction: name,
					Signature:   p.Signature,
					Message:     statusMessage(status.Err),
					Program:     program,
					Logs:        logs,
				}
			case reached(status.ConfirmationStatus, d.opts.Commitment):
				confirmed = true
				slot = status.Slot
			}
		}

		if confirmed {
			res, err := d.getTransaction(ctx, p.Signature)
			if err == nil && res != nil && res.Meta != nil {
				if res.Slot != 0 {
					slot = res.Slot
				}
				log.Debug("transaction confirmed", "ix", name, "signature", p.Signature, "slot", slot)
				return &Outcome{
					Instruction: p.Instruction,
					Signature:   p.Signature,
					Slot:        slot,
					Logs:        res.Meta.LogMessages,
				}, nil
			}
			if err != nil {
				lastErr = err
			}
		}

		select {
		case <-ctx.Done():
			err := ctx.Err()
			if lastErr != nil {
				err = errors.Join(err, lastErr)
			}
			return nil, unavailable("confirm transaction", err)
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	err := d.wait(ctx)
	if err != nil {
		return nil, err
	}
	res, err := d.rpc.GetSignatureStatuses(ctx, false, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

func (d *Dispatcher) blockhashExpired(ctx context.Context, lastValid uint64) (bool, error) {
	if lastValid == 0 {
		return false, nil
	}
	err := d.wait(ctx)
	if err != nil {
		return false, err
	}
	height, err := d.rpc.GetBlockHeight(ctx, d.opts.Commitment)
	if err != nil {
		return false, err
	}
	return height > lastValid, nil
}

func (d *Dispatcher) getTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	err := d.wait(ctx)
	if err != nil {
		return nil, err
	}
	maxVersion := uint64(0)
	commitment := d.opts.Commitment
	if commitment == rpc.CommitmentProcessed {
		// getTransaction does not accept processed.
		commitment = rpc.CommitmentConfirmed
	}
	res, err := d.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	return res, err
}

// transactionLogs fetches logs of a failed transaction for error reporting.
// Failure to fetch them is not fatal.
func (d *Dispatcher) transactionLogs(ctx context.Context, sig solana.Signature) []string {
	res, err := d.getTransaction(ctx, sig)
	if err != nil || res == nil || res.Meta == nil {
		return nil
	}
	return res.Meta.LogMessages
}

// Execute builds, submits and confirms ix.
func (d *Dispatcher) Execute(ctx context.Context, ix *instruction.Instruction) (*Outcome, error) {
	pending, err := d.Submit(ctx, d.Build(ix))
	if err != nil {
		return nil, err
	}
	return d.Confirm(ctx, pending)
}
