package stakeholder

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/log"
	"github.com/opencaptable/ocp-solana/captable/client"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/output"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/session"
	"github.com/urfave/cli/v2"
)

func Stakeholder() *cli.Command {
	return &cli.Command{
		Name:  "stakeholder",
		Usage: "Manage stakeholders",
		Subcommands: []*cli.Command{
			create(),
			show(),
		},
	}
}

// create takes any number of stakeholder ids as arguments, or creates a
// single stakeholder with a fresh id when none are given.
func create() *cli.Command {
	cfg := struct {
		issuerID string
	}{}
	return &cli.Command{
		Name:      "create",
		Usage:     "Create stakeholders",
		ArgsUsage: "[stakeholder id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.Open(c)
			if err != nil {
				return err
			}
			defer s.Close()

			ids := c.Args().Slice()
			if len(ids) == 0 {
				ids = []string{ident.ToUUID(ident.New())}
			}

			if len(ids) == 1 {
				res, err := s.Client.CreateStakeholder(ctx, client.CreateStakeholderParams{
					IssuerID: cfg.issuerID,
					ID:       ids[0],
				})
				if err != nil {
					return fmt.Errorf("failed to create stakeholder: %w", err)
				}
				fmt.Println("Stakeholder:", ids[0])
				output.Result(os.Stdout, res)
				return nil
			}

			results, err := s.Client.CreateStakeholders(ctx, cfg.issuerID, ids)
			if results == nil {
				return fmt.Errorf("failed to create stakeholders: %w", err)
			}

			created := 0
			for i, res := range results {
				if res == nil {
					continue
				}
				created++
				fmt.Println(ids[i], res.Address.Address, res.Signature)
			}
			if err != nil {
				log.Error("some stakeholders were not created", "created", created, "requested", len(ids))
				return errors.Join(fmt.Errorf("failed to create %d of %d stakeholders", len(ids)-created, len(ids)), err)
			}
			return nil
		},
	}
}

func show() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a stakeholder account",
		ArgsUsage: "<stakeholder id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one stakeholder id")
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.OpenReadOnly(c)
			if err != nil {
				return err
			}
			defer s.Close()

			stakeholder, err := s.Client.GetStakeholder(ctx, c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get stakeholder: %w", err)
			}

			output.Fields(os.Stdout, [][2]string{
				{"ID", stakeholder.ID},
			})
			return nil
		},
	}
}
