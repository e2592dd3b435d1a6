package stock

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

func Stock() *cli.Command {
	return &cli.Command{
		Name:  "stock",
		Usage: "Issue and inspect stock positions",
		Subcommands: []*cli.Command{
			issue(),
			show(),
		},
	}
}

func issue() *cli.Command {
	cfg := struct {
		issuerID      string
		stockClassID  string
		stakeholderID string
		securityID    string
		quantity      string
		price         string
	}{}
	return &cli.Command{
		Name:  "issue",
		Usage: "Issue stock to a stakeholder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "stock-class",
				Usage:       "Stock class UUID",
				Required:    true,
				Destination: &cfg.stockClassID,
			},
			&cli.StringFlag{
				Name:        "stakeholder",
				Usage:       "Stakeholder UUID",
				Required:    true,
				Destination: &cfg.stakeholderID,
			},
			&cli.StringFlag{
				Name:        "security",
				Usage:       "Security UUID of the new position, generated when omitted",
				Destination: &cfg.securityID,
			},
			&cli.StringFlag{
				Name:        "quantity",
				Usage:       "Number of shares",
				Required:    true,
				Destination: &cfg.quantity,
			},
			&cli.StringFlag{
				Name:        "share-price",
				Usage:       "Price per share",
				Required:    true,
				Destination: &cfg.price,
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

			if cfg.securityID == "" {
				cfg.securityID = ident.ToUUID(ident.New())
			}

			res, err := s.Client.IssueStock(ctx, client.IssueStockParams{
				IssuerID:      cfg.issuerID,
				StockClassID:  cfg.stockClassID,
				StakeholderID: cfg.stakeholderID,
				SecurityID:    cfg.securityID,
				Quantity:      cfg.quantity,
				SharePrice:    cfg.price,
			})
			if err != nil {
				return fmt.Errorf("failed to issue stock: %w", err)
			}

			fmt.Println("Security: ", cfg.securityID)
			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func show() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a stock position",
		ArgsUsage: "<stakeholder id> <security id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("expected a stakeholder id and a security id")
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.OpenReadOnly(c)
			if err != nil {
				return err
			}
			defer s.Close()

			position, err := s.Client.GetStockPosition(ctx, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to get stock position: %w", err)
			}

			output.Fields(os.Stdout, [][2]string{
				{"Security", position.SecurityID},
				{"Stakeholder", position.StakeholderID},
				{"Stock class", position.StockClassID},
				{"Quantity", output.Amount(position.Quantity)},
				{"Share price", output.Amount(position.SharePrice)},
			})
			return nil
		},
	}
}
