package listener_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/events"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/captable/listener"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSubscription struct {
	results      chan *ws.LogResult
	errs         chan error
	unsubscribed atomic.Int32
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		results: make(chan *ws.LogResult, 8),
		errs:    make(chan error, 1),
	}
}

func (s *fakeSubscription) Recv(ctx context.Context) (*ws.LogResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-s.results:
		return r, nil
	case err := <-s.errs:
		return nil, err
	}
}

func (s *fakeSubscription) Unsubscribe() {
	s.unsubscribed.Add(1)
}

type fakeSubscriber struct {
	sub *fakeSubscription
	err error
}

func (f *fakeSubscriber) SubscribeLogs(programID solana.PublicKey, commitment rpc.CommitmentType) (listener.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

const stakeholderUUID = "223e4567-e89b-12d3-a456-426614174001"

var issuerID = ident.MustBinaryID("123e4567-e89b-12d3-a456-426614174000")

func logResult(t *testing.T, slot uint64, evs ...events.RawEvent) *ws.LogResult {
	t.Helper()
	program := address.DefaultProgramID.String()

	r := &ws.LogResult{}
	r.Context.Slot = slot
	r.Value.Signature = solana.Signature{byte(slot)}
	r.Value.Logs = append(r.Value.Logs, "Program "+program+" invoke [1]")
	for _, ev := range evs {
		r.Value.Logs = append(r.Value.Logs, ev.Encode())
	}
	r.Value.Logs = append(r.Value.Logs, "Program "+program+" success")
	return r
}

func stakeholderCreated(t *testing.T) events.RawEvent {
	t.Helper()
	ev, err := events.EncodeEvent(events.SchemaStakeholderCreated, issuerID, map[string]string{
		"id":       stakeholderUUID,
		"issuerId": ident.ToUUID(issuerID),
	})
	require.NoError(t, err)
	return ev
}

func TestRunDeliversEventsUntilCancelled(t *testing.T) {
	sub := newFakeSubscription()
	l := listener.New(&fakeSubscriber{sub: sub}, listener.Options{})

	sub.results <- logResult(t, 7, stakeholderCreated(t))

	failed := logResult(t, 8, stakeholderCreated(t))
	failed.Value.Err = map[string]any{"InstructionError": []any{0, "Custom"}}
	sub.results <- failed

	sub.results <- logResult(t, 9, stakeholderCreated(t), stakeholderCreated(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []listener.Event
	err := l.Run(ctx, func(ctx context.Context, ev listener.Event) error {
		got = append(got, ev)
		if len(got) == 3 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, uint64(7), got[0].Slot)
	require.Equal(t, "StakeholderCreated", got[0].Record.Kind)
	require.Equal(t, stakeholderUUID, got[0].Record.Text("id"))
	require.Equal(t, uint64(9), got[2].Slot)
	require.Equal(t, int32(1), sub.unsubscribed.Load())
}

func TestRunReportsDecodeErrors(t *testing.T) {
	sub := newFakeSubscription()

	var reported []error
	l := listener.New(&fakeSubscriber{sub: sub}, listener.Options{
		OnError: func(sig solana.Signature, err error) {
			reported = append(reported, err)
		},
	})

	broken := events.RawEvent{Discriminator: events.StockPlanCreated, Data: []byte{1}}
	sub.results <- logResult(t, 1, broken, stakeholderCreated(t))

	handlerErr := errors.New("stop")
	err := l.Run(context.Background(), func(ctx context.Context, ev listener.Event) error {
		return handlerErr
	})
	require.ErrorIs(t, err, handlerErr)
	require.Len(t, reported, 1)
	require.ErrorIs(t, reported[0], events.ErrSchemaMismatch)
	require.Equal(t, int32(1), sub.unsubscribed.Load())
}

func TestRunStopsOnReceiveError(t *testing.T) {
	sub := newFakeSubscription()
	sub.errs <- ws.ErrSubscriptionClosed

	l := listener.New(&fakeSubscriber{sub: sub}, listener.Options{})
	err := l.Run(context.Background(), func(ctx context.Context, ev listener.Event) error {
		return nil
	})
	require.ErrorIs(t, err, ws.ErrSubscriptionClosed)
	require.Equal(t, int32(1), sub.unsubscribed.Load())
}

func TestRunSubscribeFailure(t *testing.T) {
	l := listener.New(&fakeSubscriber{err: errors.New("dial tcp: refused")}, listener.Options{})
	err := l.Run(context.Background(), func(ctx context.Context, ev listener.Event) error {
		return nil
	})
	require.ErrorContains(t, err, "refused")
}

func TestRunStopsWithDeadline(t *testing.T) {
	sub := newFakeSubscription()
	l := listener.New(&fakeSubscriber{sub: sub}, listener.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Run(ctx, func(ctx context.Context, ev listener.Event) error {
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), sub.unsubscribed.Load())
}
