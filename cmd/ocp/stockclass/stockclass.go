package stockclass

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

func StockClass() *cli.Command {
	return &cli.Command{
		Name:  "stock-class",
		Usage: "Manage stock classes",
		Subcommands: []*cli.Command{
			create(),
			adjust(),
			show(),
		},
	}
}

func create() *cli.Command {
	cfg := struct {
		issuerID  string
		id        string
		classType string
		price     string
		shares    string
	}{}
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new stock class",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Stock class UUID, generated when omitted",
				Destination: &cfg.id,
			},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "Class type, e.g. COMMON or PREFERRED",
				Value:       "COMMON",
				Destination: &cfg.classType,
			},
			&cli.StringFlag{
				Name:        "price-per-share",
				Usage:       "Price per share",
				Required:    true,
				Destination: &cfg.price,
			},
			&cli.StringFlag{
				Name:        "shares-authorized",
				Usage:       "Initial number of shares authorized",
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

			res, err := s.Client.CreateStockClass(ctx, client.CreateStockClassParams{
				IssuerID:                cfg.issuerID,
				ID:                      cfg.id,
				ClassType:               cfg.classType,
				PricePerShare:           cfg.price,
				InitialSharesAuthorized: cfg.shares,
			})
			if err != nil {
				return fmt.Errorf("failed to create stock class: %w", err)
			}

			fmt.Println("Stock class:", cfg.id)
			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func adjust() *cli.Command {
	cfg := struct {
		issuerID string
		id       string
		shares   string
	}{}
	return &cli.Command{
		Name:  "adjust",
		Usage: "Change the number of shares a stock class has authorized",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Stock class UUID",
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

			res, err := s.Client.AdjustStockClassShares(ctx, cfg.issuerID, cfg.id, cfg.shares)
			if err != nil {
				return fmt.Errorf("failed to adjust stock class: %w", err)
			}

			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func show() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a stock class account",
		ArgsUsage: "<stock class id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one stock class id")
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.OpenReadOnly(c)
			if err != nil {
				return err
			}
			defer s.Close()

			class, err := s.Client.GetStockClass(ctx, c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get stock class: %w", err)
			}

			output.Fields(os.Stdout, [][2]string{
				{"ID", class.ID},
				{"Class type", class.ClassType},
				{"Price per share", output.Amount(class.PricePerShare)},
				{"Shares issued", output.Amount(class.SharesIssued)},
				{"Shares authorized", output.Amount(class.SharesAuthorized)},
			})
			return nil
		},
	}
}
