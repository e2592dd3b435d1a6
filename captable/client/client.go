// Package client is the cap table API: one call per business action, taking
// UUID and decimal strings and returning decoded results.
package client

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/amount"
	"github.com/opencaptable/ocp-solana/captable/config"
	"github.com/opencaptable/ocp-solana/captable/dispatch"
	"github.com/opencaptable/ocp-solana/captable/events"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/captable/instruction"
)

// Client holds no mutable state and may be used from several goroutines.
type Client struct {
	dispatcher  *dispatch.Dispatcher
	builder     instruction.Builder
	deriver     address.Deriver
	programID   solana.PublicKey
	concurrency int
}

func New(cfg config.Config, ledger dispatch.LedgerRPC, signer dispatch.Signer) (*Client, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	programID, err := cfg.ProgramPublicKey()
	if err != nil {
		return nil, err
	}

	d := dispatch.New(ledger, signer, dispatch.Options{
		ProgramID:         programID,
		Commitment:        cfg.CommitmentType(),
		PollInterval:      cfg.PollInterval,
		ConfirmTimeout:    cfg.ConfirmTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	return &Client{
		dispatcher:  d,
		builder:     instruction.NewBuilder(programID, signer.PublicKey()),
		deriver:     address.NewDeriver(programID),
		programID:   programID,
		concurrency: cfg.Concurrency,
	}, nil
}

func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

func (c *Client) Authority() solana.PublicKey {
	return c.dispatcher.Authority()
}

func (c *Client) Deriver() address.Deriver {
	return c.deriver
}

// Result describes a confirmed call.
type Result struct {
	// Address is the account the call created or changed.
	Address   address.Derived
	Signature solana.Signature
	Slot      uint64
	Events    []events.Record
}

// EventDecodeError is returned when a call was confirmed but the events it
// emitted could not be decoded. The ledger change itself took effect.
type EventDecodeError struct {
	Instruction string
	Address     address.Derived
	Signature   solana.Signature
	Slot        uint64
	Err         error
}

func (e *EventDecodeError) Error() string {
	return fmt.Sprintf("%s confirmed in %s but its events did not decode: %v", e.Instruction, e.Signature, e.Err)
}

func (e *EventDecodeError) Unwrap() error {
	return e.Err
}

func (c *Client) execute(ctx context.Context, ix *instruction.Instruction) (*Result, error) {
	out, err := c.dispatcher.Execute(ctx, ix)
	if err != nil {
		return nil, err
	}

	records, err := events.DecodeLogs(c.programID, out.Logs)
	if err != nil {
		log.Warn("failed to decode events", "ix", ix.Name, "signature", out.Signature, "err", err)
		return nil, &EventDecodeError{
			Instruction: ix.Name,
			Address:     ix.Target,
			Signature:   out.Signature,
			Slot:        out.Slot,
			Err:         err,
		}
	}

	log.Debug("call confirmed", "ix", ix.Name, "target", ix.Target, "events", len(records))

	return &Result{
		Address:   ix.Target,
		Signature: out.Signature,
		Slot:      out.Slot,
		Events:    records,
	}, nil
}

func parseID(field, s string) (ident.BinaryID, error) {
	id, err := ident.ToBinaryID(s)
	if err != nil {
		return ident.BinaryID{}, fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

func parseAmount(field, s string) (uint64, error) {
	v, err := amount.Wire(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// Event returns the first event of the given kind.
func (r *Result) Event(kind string) (events.Record, bool) {
	for _, ev := range r.Events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return events.Record{}, false
}
