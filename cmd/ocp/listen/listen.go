package listen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/opencaptable/ocp-solana/captable/events"
	"github.com/opencaptable/ocp-solana/captable/listener"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/output"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/session"
	"github.com/urfave/cli/v2"
)

type jsonEvent struct {
	Signature string         `json:"signature"`
	Slot      uint64         `json:"slot"`
	Kind      string         `json:"kind"`
	OCFType   string         `json:"ocfType,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Raw       []byte         `json:"raw,omitempty"`
}

func Listen() *cli.Command {
	cfg := struct {
		json bool
	}{}
	return &cli.Command{
		Name:  "listen",
		Usage: "Stream events emitted by the cap table program",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "Print one JSON object per event",
				Destination: &cfg.json,
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			conf, err := session.Config(c)
			if err != nil {
				return err
			}
			programID, err := conf.ProgramPublicKey()
			if err != nil {
				return err
			}
			wsURL, err := conf.WebsocketURL()
			if err != nil {
				return err
			}

			wsClient, err := ws.Connect(ctx, wsURL)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
			}
			defer wsClient.Close()

			log.Info("listening for events", "program", programID, "ws", wsURL, "commitment", conf.CommitmentType())

			l := listener.New(listener.WSSubscriber{Client: wsClient}, listener.Options{
				ProgramID:  programID,
				Commitment: conf.CommitmentType(),
			})

			enc := json.NewEncoder(os.Stdout)
			return l.Run(ctx, func(ctx context.Context, ev listener.Event) error {
				if cfg.json {
					return enc.Encode(jsonEvent{
						Signature: ev.Signature.String(),
						Slot:      ev.Slot,
						Kind:      ev.Record.Kind,
						OCFType:   ev.Record.OCFType,
						Fields:    ev.Record.Map(),
						Raw:       ev.Record.Raw,
					})
				}
				fmt.Printf("slot %d %s\n", ev.Slot, ev.Signature)
				output.Events(os.Stdout, []events.Record{ev.Record})
				return nil
			})
		},
	}
}
