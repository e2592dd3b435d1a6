package convertible

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

func Convertible() *cli.Command {
	return &cli.Command{
		Name:  "convertible",
		Usage: "Issue and inspect convertibles",
		Subcommands: []*cli.Command{
			issue(),
			show(),
		},
	}
}

func issue() *cli.Command {
	cfg := struct {
		issuerID      string
		stakeholderID string
		securityID    string
		investment    string
	}{}
	return &cli.Command{
		Name:  "issue",
		Usage: "Issue a convertible to a stakeholder",
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
				Name:        "security",
				Usage:       "Security UUID, generated when omitted",
				Destination: &cfg.securityID,
			},
			&cli.StringFlag{
				Name:        "investment-amount",
				Usage:       "Amount invested",
				Required:    true,
				Destination: &cfg.investment,
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

			res, err := s.Client.IssueConvertible(ctx, client.IssueConvertibleParams{
				IssuerID:         cfg.issuerID,
				StakeholderID:    cfg.stakeholderID,
				SecurityID:       cfg.securityID,
				InvestmentAmount: cfg.investment,
			})
			if err != nil {
				return fmt.Errorf("failed to issue convertible: %w", err)
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
		Usage:     "Show a convertible position",
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

			position, err := s.Client.GetConvertiblePosition(ctx, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to get convertible position: %w", err)
			}

			output.Fields(os.Stdout, [][2]string{
				{"Security", position.SecurityID},
				{"Stakeholder", position.StakeholderID},
				{"Investment amount", output.Amount(position.InvestmentAmount)},
			})
			return nil
		},
	}
}
