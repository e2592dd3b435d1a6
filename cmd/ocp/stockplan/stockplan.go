package stockplan

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/opencaptable/ocp-solana/captable/client"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/output"
	"github.com/opencaptable/ocp-solana/cmd/ocp/pkg/session"
	"github.com/urfave/cli/v2"
)

func StockPlan() *cli.Command {
	return &cli.Command{
		Name:  "stock-plan",
		Usage: "Manage stock plans",
		Subcommands: []*cli.Command{
			create(),
			adjust(),
			show(),
		},
	}
}

func create() *cli.Command {
	cfg := struct {
		issuerID string
		id       string
		reserved string
	}{}
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new stock plan",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Stock plan UUID, generated when omitted",
				Destination: &cfg.id,
			},
			&cli.StringSliceFlag{
				Name:     "stock-class",
				Usage:    "Stock class UUID the plan draws from. Pass multiple instances of --stock-class as needed",
				Required: true,
			},
			&cli.StringFlag{
				Name:        "shares-reserved",
				Usage:       "Number of shares reserved",
				Required:    true,
				Destination: &cfg.reserved,
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

			res, err := s.Client.CreateStockPlan(ctx, client.CreateStockPlanParams{
				IssuerID:       cfg.issuerID,
				ID:             cfg.id,
				StockClassIDs:  c.StringSlice("stock-class"),
				SharesReserved: cfg.reserved,
			})
			if err != nil {
				return fmt.Errorf("failed to create stock plan: %w", err)
			}

			fmt.Println("Stock plan:", cfg.id)
			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func adjust() *cli.Command {
	cfg := struct {
		issuerID string
		id       string
		reserved string
	}{}
	return &cli.Command{
		Name:  "adjust",
		Usage: "Change the number of shares a stock plan reserves",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Stock plan UUID",
				Required:    true,
				Destination: &cfg.id,
			},
			&cli.StringFlag{
				Name:        "shares-reserved",
				Usage:       "New number of shares reserved",
				Required:    true,
				Destination: &cfg.reserved,
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

			res, err := s.Client.AdjustStockPlanShares(ctx, cfg.issuerID, cfg.id, cfg.reserved)
			if err != nil {
				return fmt.Errorf("failed to adjust stock plan: %w", err)
			}

			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func show() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a stock plan account",
		ArgsUsage: "<stock plan id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one stock plan id")
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.OpenReadOnly(c)
			if err != nil {
				return err
			}
			defer s.Close()

			plan, err := s.Client.GetStockPlan(ctx, c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get stock plan: %w", err)
			}

			output.Fields(os.Stdout, [][2]string{
				{"ID", plan.ID},
				{"Stock classes", strings.Join(plan.StockClassIDs, "\n")},
				{"Shares reserved", output.Amount(plan.SharesReserved)},
			})
			return nil
		},
	}
}
