package equitycomp

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

func EquityComp() *cli.Command {
	return &cli.Command{
		Name:  "equity-comp",
		Usage: "Grant, exercise and inspect equity compensation",
		Subcommands: []*cli.Command{
			issue(),
			exercise(),
			show(),
		},
	}
}

func issue() *cli.Command {
	cfg := struct {
		issuerID      string
		stakeholderID string
		stockClassID  string
		stockPlanID   string
		securityID    string
		quantity      string
	}{}
	return &cli.Command{
		Name:  "issue",
		Usage: "Grant equity compensation to a stakeholder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "stakeholder",
				Usage:       "Stakeholder UUID",
				Required:    true,
				Destination: &cfg.stakeholderID,
			},
			&cli.StringFlag{
				Name:        "stock-class",
				Usage:       "Stock class UUID",
				Required:    true,
				Destination: &cfg.stockClassID,
			},
			&cli.StringFlag{
				Name:        "stock-plan",
				Usage:       "Stock plan UUID, if the grant comes out of a plan",
				Destination: &cfg.stockPlanID,
			},
			&cli.StringFlag{
				Name:        "security",
				Usage:       "Security UUID, generated when omitted",
				Destination: &cfg.securityID,
			},
			&cli.StringFlag{
				Name:        "quantity",
				Usage:       "Number of options granted",
				Required:    true,
				Destination: &cfg.quantity,
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

			res, err := s.Client.IssueEquityCompensation(ctx, client.IssueEquityCompensationParams{
				IssuerID:      cfg.issuerID,
				StakeholderID: cfg.stakeholderID,
				StockClassID:  cfg.stockClassID,
				StockPlanID:   cfg.stockPlanID,
				SecurityID:    cfg.securityID,
				Quantity:      cfg.quantity,
			})
			if err != nil {
				return fmt.Errorf("failed to issue equity compensation: %w", err)
			}

			fmt.Println("Security: ", cfg.securityID)
			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func exercise() *cli.Command {
	cfg := struct {
		issuerID      string
		securityID    string
		stockClassID  string
		stakeholderID string
		resultingID   string
		quantity      string
	}{}
	return &cli.Command{
		Name:  "exercise",
		Usage: "Exercise equity compensation into an issued stock position",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "issuer",
				Usage:       "Issuer UUID",
				Required:    true,
				Destination: &cfg.issuerID,
			},
			&cli.StringFlag{
				Name:        "security",
				Usage:       "Security UUID of the grant",
				Required:    true,
				Destination: &cfg.securityID,
			},
			&cli.StringFlag{
				Name:        "stock-class",
				Usage:       "Stock class UUID of the grant",
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
				Name:        "resulting-security",
				Usage:       "Security UUID of the stock position the exercise produced",
				Required:    true,
				Destination: &cfg.resultingID,
			},
			&cli.StringFlag{
				Name:        "quantity",
				Usage:       "Number of options exercised",
				Required:    true,
				Destination: &cfg.quantity,
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

			res, err := s.Client.ExerciseEquityCompensation(ctx, client.ExerciseEquityCompensationParams{
				IssuerID:            cfg.issuerID,
				EquitySecurityID:    cfg.securityID,
				StockClassID:        cfg.stockClassID,
				StakeholderID:       cfg.stakeholderID,
				ResultingSecurityID: cfg.resultingID,
				Quantity:            cfg.quantity,
			})
			if err != nil {
				return fmt.Errorf("failed to exercise equity compensation: %w", err)
			}

			output.Result(os.Stdout, res)
			return nil
		},
	}
}

func show() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show an equity compensation position",
		ArgsUsage: "<security id> <stock class id> <stakeholder id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("expected a security id, a stock class id and a stakeholder id")
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()

			s, err := session.OpenReadOnly(c)
			if err != nil {
				return err
			}
			defer s.Close()

			position, err := s.Client.GetEquityCompensationPosition(ctx, c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
			if err != nil {
				return fmt.Errorf("failed to get equity compensation position: %w", err)
			}

			plan := position.StockPlanID
			if plan == "" {
				plan = "-"
			}
			output.Fields(os.Stdout, [][2]string{
				{"Security", position.SecurityID},
				{"Stakeholder", position.StakeholderID},
				{"Stock class", position.StockClassID},
				{"Stock plan", plan},
				{"Quantity", output.Amount(position.Quantity)},
			})
			return nil
		},
	}
}
