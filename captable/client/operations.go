package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/captable/instruction"
	"golang.org/x/sync/errgroup"
)

type CreateIssuerParams struct {
	ID               string
	SharesAuthorized string
}

func (c *Client) CreateIssuer(ctx context.Context, p CreateIssuerParams) (*Result, error) {
	id, err := parseID("issuer id", p.ID)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("shares authorized", p.SharesAuthorized)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.InitializeIssuer(id, shares)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

func (c *Client) AdjustIssuerAuthorizedShares(ctx context.Context, issuerID, newSharesAuthorized string) (*Result, error) {
	id, err := parseID("issuer id", issuerID)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("new shares authorized", newSharesAuthorized)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.AdjustAuthorizedShares(id, shares)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type CreateStakeholderParams struct {
	IssuerID string
	ID       string
}

func (c *Client) CreateStakeholder(ctx context.Context, p CreateStakeholderParams) (*Result, error) {
	ix, err := c.createStakeholderIx(p.IssuerID, p.ID)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

func (c *Client) createStakeholderIx(issuerID, stakeholderID string) (*instruction.Instruction, error) {
	issuer, err := parseID("issuer id", issuerID)
	if err != nil {
		return nil, err
	}
	id, err := parseID("stakeholder id", stakeholderID)
	if err != nil {
		return nil, err
	}
	return c.builder.CreateStakeholder(issuer, id)
}

// CreateStakeholders creates several stakeholders, at most
// config.Concurrency at a time. Every id is validated before anything is
// sent. Results are in input order; entries of failed calls are nil and
// their errors are joined in the returned error.
func (c *Client) CreateStakeholders(ctx context.Context, issuerID string, ids []string) ([]*Result, error) {
	ixs := make([]*instruction.Instruction, len(ids))
	for i, id := range ids {
		ix, err := c.createStakeholderIx(issuerID, id)
		if err != nil {
			return nil, fmt.Errorf("stakeholder %d: %w", i, err)
		}
		ixs[i] = ix
	}

	results := make([]*Result, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, ix := range ixs {
		i, ix := i, ix
		g.Go(func() error {
			res, err := c.execute(ctx, ix)
			if err != nil {
				errs[i] = fmt.Errorf("stakeholder %s: %w", ids[i], err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

type CreateStockClassParams struct {
	IssuerID                string
	ID                      string
	ClassType               string
	PricePerShare           string
	InitialSharesAuthorized string
}

func (c *Client) CreateStockClass(ctx context.Context, p CreateStockClassParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	id, err := parseID("stock class id", p.ID)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("price per share", p.PricePerShare)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("initial shares authorized", p.InitialSharesAuthorized)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.CreateStockClass(instruction.StockClassParams{
		IssuerID:                issuer,
		ID:                      id,
		ClassType:               p.ClassType,
		PricePerShare:           price,
		InitialSharesAuthorized: shares,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

func (c *Client) AdjustStockClassShares(ctx context.Context, issuerID, stockClassID, newSharesAuthorized string) (*Result, error) {
	issuer, err := parseID("issuer id", issuerID)
	if err != nil {
		return nil, err
	}
	id, err := parseID("stock class id", stockClassID)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("new shares authorized", newSharesAuthorized)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.AdjustStockClassShares(issuer, id, shares)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type CreateStockPlanParams struct {
	IssuerID       string
	ID             string
	StockClassIDs  []string
	SharesReserved string
}

func (c *Client) CreateStockPlan(ctx context.Context, p CreateStockPlanParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	id, err := parseID("stock plan id", p.ID)
	if err != nil {
		return nil, err
	}
	classes := make([]ident.BinaryID, len(p.StockClassIDs))
	for i, s := range p.StockClassIDs {
		classes[i], err = parseID("stock class id", s)
		if err != nil {
			return nil, err
		}
	}
	reserved, err := parseAmount("shares reserved", p.SharesReserved)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.CreateStockPlan(instruction.StockPlanParams{
		IssuerID:       issuer,
		ID:             id,
		StockClassIDs:  classes,
		SharesReserved: reserved,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

func (c *Client) AdjustStockPlanShares(ctx context.Context, issuerID, stockPlanID, newSharesReserved string) (*Result, error) {
	issuer, err := parseID("issuer id", issuerID)
	if err != nil {
		return nil, err
	}
	id, err := parseID("stock plan id", stockPlanID)
	if err != nil {
		return nil, err
	}
	reserved, err := parseAmount("new shares reserved", newSharesReserved)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.AdjustStockPlanShares(issuer, id, reserved)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type IssueStockParams struct {
	IssuerID      string
	StockClassID  string
	StakeholderID string
	SecurityID    string
	Quantity      string
	SharePrice    string
}

func (c *Client) IssueStock(ctx context.Context, p IssueStockParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	stockClass, err := parseID("stock class id", p.StockClassID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := parseID("stakeholder id", p.StakeholderID)
	if err != nil {
		return nil, err
	}
	security, err := parseID("security id", p.SecurityID)
	if err != nil {
		return nil, err
	}
	quantity, err := parseAmount("quantity", p.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("share price", p.SharePrice)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.IssueStock(instruction.StockParams{
		IssuerID:      issuer,
		StockClassID:  stockClass,
		StakeholderID: stakeholder,
		SecurityID:    security,
		Quantity:      quantity,
		SharePrice:    price,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type IssueConvertibleParams struct {
	IssuerID         string
	StakeholderID    string
	SecurityID       string
	InvestmentAmount string
}

func (c *Client) IssueConvertible(ctx context.Context, p IssueConvertibleParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := parseID("stakeholder id", p.StakeholderID)
	if err != nil {
		return nil, err
	}
	security, err := parseID("security id", p.SecurityID)
	if err != nil {
		return nil, err
	}
	investment, err := parseAmount("investment amount", p.InvestmentAmount)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.IssueConvertible(instruction.ConvertibleParams{
		IssuerID:         issuer,
		StakeholderID:    stakeholder,
		SecurityID:       security,
		InvestmentAmount: investment,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type IssueEquityCompensationParams struct {
	IssuerID      string
	StakeholderID string
	StockClassID  string
	// StockPlanID may be empty.
	StockPlanID string
	SecurityID  string
	Quantity    string
}

func (c *Client) IssueEquityCompensation(ctx context.Context, p IssueEquityCompensationParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := parseID("stakeholder id", p.StakeholderID)
	if err != nil {
		return nil, err
	}
	stockClass, err := parseID("stock class id", p.StockClassID)
	if err != nil {
		return nil, err
	}
	var stockPlan *ident.BinaryID
	if p.StockPlanID != "" {
		id, err := parseID("stock plan id", p.StockPlanID)
		if err != nil {
			return nil, err
		}
		stockPlan = &id
	}
	security, err := parseID("security id", p.SecurityID)
	if err != nil {
		return nil, err
	}
	quantity, err := parseAmount("quantity", p.Quantity)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.IssueEquityCompensation(instruction.EquityCompensationParams{
		IssuerID:      issuer,
		StakeholderID: stakeholder,
		StockClassID:  stockClass,
		StockPlanID:   stockPlan,
		SecurityID:    security,
		Quantity:      quantity,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type ExerciseEquityCompensationParams struct {
	IssuerID            string
	EquitySecurityID    string
	StockClassID        string
	StakeholderID       string
	ResultingSecurityID string
	Quantity            string
}

func (c *Client) ExerciseEquityCompensation(ctx context.Context, p ExerciseEquityCompensationParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	equity, err := parseID("equity compensation security id", p.EquitySecurityID)
	if err != nil {
		return nil, err
	}
	stockClass, err := parseID("stock class id", p.StockClassID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := parseID("stakeholder id", p.StakeholderID)
	if err != nil {
		return nil, err
	}
	resulting, err := parseID("resulting security id", p.ResultingSecurityID)
	if err != nil {
		return nil, err
	}
	quantity, err := parseAmount("quantity", p.Quantity)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.ExerciseEquityCompensation(instruction.ExerciseParams{
		IssuerID:            issuer,
		EquitySecurityID:    equity,
		StockClassID:        stockClass,
		StakeholderID:       stakeholder,
		ResultingSecurityID: resulting,
		Quantity:            quantity,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}

type IssueWarrantParams struct {
	IssuerID      string
	StakeholderID string
	SecurityID    string
	Quantity      string
}

func (c *Client) IssueWarrant(ctx context.Context, p IssueWarrantParams) (*Result, error) {
	issuer, err := parseID("issuer id", p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := parseID("stakeholder id", p.StakeholderID)
	if err != nil {
		return nil, err
	}
	security, err := parseID("security id", p.SecurityID)
	if err != nil {
		return nil, err
	}
	quantity, err := parseAmount("quantity", p.Quantity)
	if err != nil {
		return nil, err
	}

	ix, err := c.builder.IssueWarrant(instruction.WarrantParams{
		IssuerID:      issuer,
		StakeholderID: stakeholder,
		SecurityID:    security,
		Quantity:      quantity,
	})
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, ix)
}
