package issuer

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/opencaptable/ocp-solana/captable/client"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/output"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/session"
	"github.com/urfave/cli/v2"
)

func Issuer() *cli.Command {
	return &cli.Command{
		Name:  "issuer",
		Usage: "Manage issuers",
		Subcommands: []*cli.Command{
			create(),
			adjust(),
			show(),
		},
	}
}

func create() *cli.Command {
	cfg := struct {
		id     string
		shares string
	}{}
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new issuer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Issuer UUID, generated when omitted",
				Destination: &cfg.id,
			},
			&cli.StringFlag{
				Name:        "shares-authorized",
				Usage:       "Number of shares authorized",
				Required:    true,
				Destination: &cfg.shares,
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

			if cfg.id == "" {
				cfg.id = ident.ToUUID(ident.New())
			}

			res, err := s.Client.CreateIssuer(ctx, client.CreateIssuerParams{
				ID:               cfg.id,
				SharesAuthorized: cfg.shares,
			})
			if err != nil {
				return fmt.Errorf("failed to create issuer: %w", err)
			}

			fmt.Println("Issuer:   ", cfg.id)
			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func adjust() *cli.Command {
	cfg := struct {
		id     string
		shares string
	}{}
	return &cli.Command{
		Name:  "adjust",
		Usage: "Change the number of shares an issuer has authorized",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.id,
			},
			&cli.StringFlag{
				Name:        "shares-authorized",
				Usage:       "New number of shares authorized",
				Required:    true,
				Destination: &cfg.shares,
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

			res, err := s.Client.AdjustIssuerAuthorizedShares(ctx, cfg.id, cfg.shares)
			if err != nil {
				return fmt.Errorf("failed to adjust authorized shares: %w", err)
			}

			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func show() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show an issuer account",
		ArgsUsage: "<issuer id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one issuer id")
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.OpenReadOnly(c)
			if err != nil {
				return err
			}
			defer s.Close()

			issuer, err := s.Client.GetIssuer(ctx, c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get issuer: %w", err)
			}

			output.Fields(os.Stdout, [][2]string{
				{"ID", issuer.ID},
				{"Shares issued", output.Amount(issuer.SharesIssued)},
				{"Shares authorized", output.Amount(issuer.SharesAuthorized)},
			})
			return nil
		},
	}
}
