// Package listener streams decoded program events from a websocket
// subscription.
package listener

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/events"
)

type Subscription interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

type Subscriber interface {
	SubscribeLogs(programID solana.PublicKey, commitment rpc.CommitmentType) (Subscription, error)
}

// WSSubscriber subscribes through a websocket connection.
type WSSubscriber struct {
	Client *ws.Client
}

func (s WSSubscriber) SubscribeLogs(programID solana.PublicKey, commitment rpc.CommitmentType) (Subscription, error) {
	sub, err := s.Client.LogsSubscribeMentions(programID, commitment)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Event is a decoded record together with the transaction that emitted it.
type Event struct {
	Signature solana.Signature
	Slot      uint64
	Record    events.Record
}

type Handler func(ctx context.Context, ev Event) error

type Options struct {
	ProgramID  solana.PublicKey
	Commitment rpc.CommitmentType
	// OnError receives decode failures. They never stop the stream.
	OnError func(sig solana.Signature, err error)
}

type Listener struct {
	sub  Subscriber
	opts Options
}

func New(sub Subscriber, opts Options) *Listener {
	if opts.ProgramID.IsZero() {
		opts.ProgramID = address.DefaultProgramID
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.OnError == nil {
		opts.OnError = func(sig solana.Signature, err error) {
			log.Warn("failed to decode event", "signature", sig, "err", err)
		}
	}
	return &Listener{sub: sub, opts: opts}
}

// Run delivers events to handler until ctx is cancelled, handler fails or
// the subscription breaks. Cancellation is a clean stop and returns nil.
func (l *Listener) Run(ctx context.Context, handler Handler) error {
	sub, err := l.sub.SubscribeLogs(l.opts.ProgramID, l.opts.Commitment)
	if err != nil {
		return fmt.Errorf("failed to subscribe to program logs: %w", err)
	}
	defer sub.Unsubscribe()

	log.Debug("listening for program events", "program", l.opts.ProgramID, "commitment", l.opts.Commitment)

	for {
		res, err := sub.Recv(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ws.ErrSubscriptionClosed) {
			return fmt.Errorf("subscription closed by node: %w", err)
		}
		if err != nil {
			return fmt.Errorf("failed to receive program logs: %w", err)
		}
		if res == nil {
			continue
		}

		// Events of failed transactions were rolled back.
		if res.Value.Err != nil {
			continue
		}

		records, err := events.DecodeLogs(l.opts.ProgramID, res.Value.Logs)
		if err != nil {
			l.opts.OnError(res.Value.Signature, err)
		}

		for _, r := range records {
			log.Trace("program event", "signature", res.Value.Signature, "event", r.Summary())
			err = handler(ctx, Event{
				Signature: res.Value.Signature,
				Slot:      res.Context.Slot,
				Record:    r,
			})
			if err != nil {
				return err
			}
		}
	}
}
