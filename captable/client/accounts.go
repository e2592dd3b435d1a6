package client

import (
	"context"
	"fmt"

	"github.com/opencaptable/ocp-solana/captable/accounts"
	"github.com/opencaptable/ocp-solana/captable/address"
)

func fetch[T any](ctx context.Context, c *Client, what string, derive func() (address.Derived, error), decode func([]byte) (T, error)) (T, error) {
	var zero T

	addr, err := derive()
	if err != nil {
		return zero, err
	}
	data, err := c.dispatcher.FetchAccount(ctx, addr.Address)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", what, addr.Address, err)
	}
	v, err := decode(data)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", what, addr.Address, err)
	}
	return v, nil
}

func (c *Client) GetIssuer(ctx context.Context, issuerID string) (*accounts.Issuer, error) {
	id, err := parseID("issuer id", issuerID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "issuer", func() (address.Derived, error) {
		return c.deriver.Issuer(id)
	}, accounts.DecodeIssuer)
}

func (c *Client) GetStakeholder(ctx context.Context, stakeholderID string) (*accounts.Stakeholder, error) {
	id, err := parseID("stakeholder id", stakeholderID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "stakeholder", func() (address.Derived, error) {
		return c.deriver.Stakeholder(id)
	}, accounts.DecodeStakeholder)
}

func (c *Client) GetStockClass(ctx context.Context, stockClassID string) (*accounts.StockClass, error) {
	id, err := parseID("stock class id", stockClassID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "stock class", func() (address.Derived, error) {
		return c.deriver.StockClass(id)
	}, accounts.DecodeStockClass)
}

func (c *Client) GetStockPlan(ctx context.Context, stockPlanID string) (*accounts.StockPlan, error) {
	id, err := parseID("stock plan id", stockPlanID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "stock plan", func() (address.Derived, error) {
		return c.deriver.StockPlan(id)
	}, accounts.DecodeStockPlan)
}

func (c *Client) GetStockPosition(ctx context.Context, stakeholderID, securityID string) (*accounts.StockPosition, error) {
	stakeholder, err := parseID("stakeholder id", stakeholderID)
	if err != nil {
		return nil, err
	}
	security, err := parseID("security id", securityID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "stock position", func() (address.Derived, error) {
		return c.deriver.StockPosition(stakeholder, security)
	}, accounts.DecodeStockPosition)
}

func (c *Client) GetConvertiblePosition(ctx context.Context, stakeholderID, securityID string) (*accounts.ConvertiblePosition, error) {
	stakeholder, err := parseID("stakeholder id", stakeholderID)
	if err != nil {
		return nil, err
	}
	security, err := parseID("security id", securityID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "convertible position", func() (address.Derived, error) {
		return c.deriver.ConvertiblePosition(stakeholder, security)
	}, accounts.DecodeConvertiblePosition)
}

func (c *Client) GetWarrantPosition(ctx context.Context, stakeholderID, securityID string) (*accounts.WarrantPosition, error) {
	stakeholder, err := parseID("stakeholder id", stakeholderID)
	if err != nil {
		return nil, err
	}
	security, err := parseID("security id", securityID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "warrant position", func() (address.Derived, error) {
		return c.deriver.WarrantPosition(stakeholder, security)
	}, accounts.DecodeWarrantPosition)
}

func (c *Client) GetEquityCompensationPosition(ctx context.Context, securityID, stockClassID, stakeholderID string) (*accounts.EquityCompensationPosition, error) {
	security, err := parseID("security id", securityID)
	if err != nil {
		return nil, err
	}
	stockClass, err := parseID("stock class id", stockClassID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := parseID("stakeholder id", stakeholderID)
	if err != nil {
		return nil, err
	}
	return fetch(ctx, c, "equity compensation position", func() (address.Derived, error) {
		return c.deriver.EquityCompensationPosition(security, stockClass, stakeholder)
	}, accounts.DecodeEquityCompensationPosition)
}
