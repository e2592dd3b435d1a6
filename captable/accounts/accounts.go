// Package accounts decodes the on-chain layout of cap table accounts.
package accounts

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/opencaptable/ocp-solana/captable/amount"
	"github.com/opencaptable/ocp-solana/captable/ident"
)

var (
	// ErrLayoutMismatch is returned for data that does not start with the
	// expected discriminator or is too short for the layout.
	ErrLayoutMismatch = errors.New("account layout mismatch")
	// ErrAccountNotFound is returned when no account exists at an address.
	ErrAccountNotFound = errors.New("account not found")
)

// Account discriminators: sha256("account:<Name>")[:8].
var (
	IssuerDiscriminator                     = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "Issuer")
	StakeholderDiscriminator                = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "Stakeholder")
	StockClassDiscriminator                 = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "StockClass")
	StockPlanDiscriminator                  = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "StockPlan")
	StockPositionDiscriminator              = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "StockActivePosition")
	ConvertiblePositionDiscriminator        = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "ConvertibleActivePosition")
	WarrantPositionDiscriminator            = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "WarrantActivePosition")
	EquityCompensationPositionDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "EquityCompensationActivePosition")
)

// decode checks the discriminator and borsh-decodes the rest of data into
// v. Accounts are allocated with slack, so trailing bytes are ignored.
func decode(name string, want bin.TypeID, data []byte, v any) error {
	dec := bin.NewBorshDecoder(data)
	got, err := dec.ReadDiscriminator()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLayoutMismatch, name, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s: discriminator %x, want %x", ErrLayoutMismatch, name, got[:], want[:])
	}
	err = dec.Decode(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLayoutMismatch, name, err)
	}
	return nil
}

type issuerLayout struct {
	ID               ident.BinaryID
	SharesIssued     uint64
	SharesAuthorized uint64
}

type Issuer struct {
	ID               string
	SharesIssued     string
	SharesAuthorized string
}

func DecodeIssuer(data []byte) (*Issuer, error) {
	var raw issuerLayout
	err := decode("Issuer", IssuerDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	return &Issuer{
		ID:               ident.ToUUID(raw.ID),
		SharesIssued:     amount.FromWire(raw.SharesIssued),
		SharesAuthorized: amount.FromWire(raw.SharesAuthorized),
	}, nil
}

type stakeholderLayout struct {
	ID ident.BinaryID
}

type Stakeholder struct {
	ID string
}

func DecodeStakeholder(data []byte) (*Stakeholder, error) {
	var raw stakeholderLayout
	err := decode("Stakeholder", StakeholderDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	return &Stakeholder{ID: ident.ToUUID(raw.ID)}, nil
}

type stockClassLayout struct {
	ID               ident.BinaryID
	ClassType        string
	PricePerShare    uint64
	SharesIssued     uint64
	SharesAuthorized uint64
}

type StockClass struct {
	ID               string
	ClassType        string
	PricePerShare    string
	SharesIssued     string
	SharesAuthorized string
}

func DecodeStockClass(data []byte) (*StockClass, error) {
	var raw stockClassLayout
	err := decode("StockClass", StockClassDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	return &StockClass{
		ID:               ident.ToUUID(raw.ID),
		ClassType:        raw.ClassType,
		PricePerShare:    amount.FromWire(raw.PricePerShare),
		SharesIssued:     amount.FromWire(raw.SharesIssued),
		SharesAuthorized: amount.FromWire(raw.SharesAuthorized),
	}, nil
}

type stockPlanLayout struct {
	ID             ident.BinaryID
	StockClassIDs  []ident.BinaryID
	SharesReserved uint64
}

type StockPlan struct {
	ID             string
	StockClassIDs  []string
	SharesReserved string
}

func DecodeStockPlan(data []byte) (*StockPlan, error) {
	var raw stockPlanLayout
	err := decode("StockPlan", StockPlanDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(raw.StockClassIDs))
	for i, id := range raw.StockClassIDs {
		ids[i] = ident.ToUUID(id)
	}
	return &StockPlan{
		ID:             ident.ToUUID(raw.ID),
		StockClassIDs:  ids,
		SharesReserved: amount.FromWire(raw.SharesReserved),
	}, nil
}

type stockPositionLayout struct {
	StakeholderID ident.BinaryID
	StockClassID  ident.BinaryID
	SecurityID    ident.BinaryID
	Quantity      uint64
	SharePrice    uint64
}

type StockPosition struct {
	StakeholderID string
	StockClassID  string
	SecurityID    string
	Quantity      string
	SharePrice    string
}

func DecodeStockPosition(data []byte) (*StockPosition, error) {
	var raw stockPositionLayout
	err := decode("StockActivePosition", StockPositionDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	return &StockPosition{
		StakeholderID: ident.ToUUID(raw.StakeholderID),
		StockClassID:  ident.ToUUID(raw.StockClassID),
		SecurityID:    ident.ToUUID(raw.SecurityID),
		Quantity:      amount.FromWire(raw.Quantity),
		SharePrice:    amount.FromWire(raw.SharePrice),
	}, nil
}

type convertiblePositionLayout struct {
	StakeholderID    ident.BinaryID
	SecurityID       ident.BinaryID
	InvestmentAmount uint64
}

type ConvertiblePosition struct {
	StakeholderID    string
	SecurityID       string
	InvestmentAmount string
}

func DecodeConvertiblePosition(data []byte) (*ConvertiblePosition, error) {
	var raw convertiblePositionLayout
	err := decode("ConvertibleActivePosition", ConvertiblePositionDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	return &ConvertiblePosition{
		StakeholderID:    ident.ToUUID(raw.StakeholderID),
		SecurityID:       ident.ToUUID(raw.SecurityID),
		InvestmentAmount: amount.FromWire(raw.InvestmentAmount),
	}, nil
}

type warrantPositionLayout struct {
	StakeholderID ident.BinaryID
	SecurityID    ident.BinaryID
	Quantity      uint64
}

type WarrantPosition struct {
	StakeholderID string
	SecurityID    string
	Quantity      string
}

func DecodeWarrantPosition(data []byte) (*WarrantPosition, error) {
	var raw warrantPositionLayout
	err := decode("WarrantActivePosition", WarrantPositionDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	return &WarrantPosition{
		StakeholderID: ident.ToUUID(raw.StakeholderID),
		SecurityID:    ident.ToUUID(raw.SecurityID),
		Quantity:      amount.FromWire(raw.Quantity),
	}, nil
}

// The program sizes this account as
// security, stock class, stakeholder, stock plan, quantity.
type equityCompensationPositionLayout struct {
	SecurityID    ident.BinaryID
	StockClassID  ident.BinaryID
	StakeholderID ident.BinaryID
	StockPlanID   ident.BinaryID
	Quantity      uint64
}

type EquityCompensationPosition struct {
	SecurityID    string
	StockClassID  string
	StakeholderID string
	// StockPlanID is empty when the grant is not tied to a plan.
	StockPlanID string
	Quantity    string
}

func DecodeEquityCompensationPosition(data []byte) (*EquityCompensationPosition, error) {
	var raw equityCompensationPositionLayout
	err := decode("EquityCompensationActivePosition", EquityCompensationPositionDiscriminator, data, &raw)
	if err != nil {
		return nil, err
	}
	pos := &EquityCompensationPosition{
		SecurityID:    ident.ToUUID(raw.SecurityID),
		StockClassID:  ident.ToUUID(raw.StockClassID),
		StakeholderID: ident.ToUUID(raw.StakeholderID),
		Quantity:      amount.FromWire(raw.Quantity),
	}
	if raw.StockPlanID != (ident.BinaryID{}) {
		pos.StockPlanID = ident.ToUUID(raw.StockPlanID)
	}
	return pos, nil
}
