package testutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/client"
	"github.com/opencaptable/ocp-solana/captable/config"
	"github.com/opencaptable/ocp-solana/captable/dispatch"
)

// World is the test world - it holds all the state that is shared between steps
type World struct {
	Ledger    *Ledger
	Authority solana.PublicKey
	Client    *client.Client

	// Entities created by earlier steps of the scenario.
	IssuerID      string
	StakeholderID string
	StockClassID  string

	LastResult *client.Result
	LastError  error
}

// Config is the client configuration used against the in-memory ledger.
func Config() config.Config {
	cfg := config.Default()
	cfg.PollInterval = time.Millisecond
	cfg.ConfirmTimeout = 5 * time.Second
	return cfg
}

func NewWorld() (*World, error) {
	cfg := Config()
	programID, err := cfg.ProgramPublicKey()
	if err != nil {
		return nil, err
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to create authority key: %w", err)
	}
	signer := dispatch.NewKeypairSigner(key)

	ledger := NewLedger(programID)
	c, err := client.New(cfg, ledger, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &World{
		Ledger:    ledger,
		Authority: signer.PublicKey(),
		Client:    c,
	}, nil
}

// Record keeps the outcome of the last operation for later steps.
func (w *World) Record(res *client.Result, err error) {
	w.LastResult = res
	w.LastError = err
}

// AddLogsToTestError appends the program logs of the last failed call.
func (w *World) AddLogsToTestError(err error) error {
	if err == nil {
		return nil
	}

	var rejected *dispatch.RejectedError
	if !errors.As(w.LastError, &rejected) || len(rejected.Logs) == 0 {
		return err
	}

	return fmt.Errorf("%w\n\nProgram Logs:\n%s", err, strings.Join(rejected.Logs, "\n"))
}
