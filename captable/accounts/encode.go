package accounts

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/opencaptable/ocp-solana/captable/amount"
	"github.com/opencaptable/ocp-solana/captable/ident"
)

// The Encode methods produce account data in the program's layout. They are
// the inverse of the Decode functions and are used to seed local ledgers.

func encode(disc bin.TypeID, v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	err := bin.NewBorshEncoder(buf).Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode account: %w", err)
	}
	return buf.Bytes(), nil
}

// wire collects the first conversion error so the Encode methods can stay
// linear.
type wire struct {
	err error
}

func (w *wire) id(s string) ident.BinaryID {
	id, err := ident.ToBinaryID(s)
	if err != nil && w.err == nil {
		w.err = err
	}
	return id
}

// optionalID maps "" to the zero id.
func (w *wire) optionalID(s string) ident.BinaryID {
	if s == "" {
		return ident.BinaryID{}
	}
	return w.id(s)
}

func (w *wire) amount(s string) uint64 {
	v, err := amount.Wire(s)
	if err != nil && w.err == nil {
		w.err = err
	}
	return v
}

func (a *Issuer) Encode() ([]byte, error) {
	w := &wire{}
	raw := issuerLayout{
		ID:               w.id(a.ID),
		SharesIssued:     w.amount(a.SharesIssued),
		SharesAuthorized: w.amount(a.SharesAuthorized),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(IssuerDiscriminator, raw)
}

func (a *Stakeholder) Encode() ([]byte, error) {
	w := &wire{}
	raw := stakeholderLayout{ID: w.id(a.ID)}
	if w.err != nil {
		return nil, w.err
	}
	return encode(StakeholderDiscriminator, raw)
}

func (a *StockClass) Encode() ([]byte, error) {
	w := &wire{}
	raw := stockClassLayout{
		ID:               w.id(a.ID),
		ClassType:        a.ClassType,
		PricePerShare:    w.amount(a.PricePerShare),
		SharesIssued:     w.amount(a.SharesIssued),
		SharesAuthorized: w.amount(a.SharesAuthorized),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(StockClassDiscriminator, raw)
}

func (a *StockPlan) Encode() ([]byte, error) {
	w := &wire{}
	ids := make([]ident.BinaryID, len(a.StockClassIDs))
	for i, id := range a.StockClassIDs {
		ids[i] = w.id(id)
	}
	raw := stockPlanLayout{
		ID:             w.id(a.ID),
		StockClassIDs:  ids,
		SharesReserved: w.amount(a.SharesReserved),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(StockPlanDiscriminator, raw)
}

func (a *StockPosition) Encode() ([]byte, error) {
	w := &wire{}
	raw := stockPositionLayout{
		StakeholderID: w.id(a.StakeholderID),
		StockClassID:  w.id(a.StockClassID),
		SecurityID:    w.id(a.SecurityID),
		Quantity:      w.amount(a.Quantity),
		SharePrice:    w.amount(a.SharePrice),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(StockPositionDiscriminator, raw)
}

func (a *ConvertiblePosition) Encode() ([]byte, error) {
	w := &wire{}
	raw := convertiblePositionLayout{
		StakeholderID:    w.id(a.StakeholderID),
		SecurityID:       w.id(a.SecurityID),
		InvestmentAmount: w.amount(a.InvestmentAmount),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(ConvertiblePositionDiscriminator, raw)
}

func (a *WarrantPosition) Encode() ([]byte, error) {
	w := &wire{}
	raw := warrantPositionLayout{
		StakeholderID: w.id(a.StakeholderID),
		SecurityID:    w.id(a.SecurityID),
		Quantity:      w.amount(a.Quantity),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(WarrantPositionDiscriminator, raw)
}

func (a *EquityCompensationPosition) Encode() ([]byte, error) {
	w := &wire{}
	raw := equityCompensationPositionLayout{
		SecurityID:    w.id(a.SecurityID),
		StockClassID:  w.id(a.StockClassID),
		StakeholderID: w.id(a.StakeholderID),
		StockPlanID:   w.optionalID(a.StockPlanID),
		Quantity:      w.amount(a.Quantity),
	}
	if w.err != nil {
		return nil, w.err
	}
	return encode(EquityCompensationPositionDiscriminator, raw)
}
