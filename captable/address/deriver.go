// Package address derives the program addresses of cap table accounts.
package address

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/ident"
)

// ErrDerivationExhausted is returned when no bump seed yields an address off
// the ed25519 curve, or when the seeds themselves are unusable.
var ErrDerivationExhausted = errors.New("address derivation exhausted")

// Namespace is the leading seed that separates account kinds.
type Namespace string

const (
	NamespaceIssuer                     Namespace = "issuer"
	NamespaceStakeholder                Namespace = "stakeholder"
	NamespaceStockClass                 Namespace = "stock_class"
	NamespaceStockPlan                  Namespace = "stock_plan"
	NamespaceStockPosition              Namespace = "stock_position"
	NamespaceConvertiblePosition        Namespace = "convertible_position"
	NamespaceWarrantPosition            Namespace = "warrant_position"
	NamespaceEquityCompensationPosition Namespace = "equity_compensation_position"
)

// Namespaces lists every namespace known to the program.
var Namespaces = []Namespace{
	NamespaceIssuer,
	NamespaceStakeholder,
	NamespaceStockClass,
	NamespaceStockPlan,
	NamespaceStockPosition,
	NamespaceConvertiblePosition,
	NamespaceWarrantPosition,
	NamespaceEquityCompensationPosition,
}

// Derived is a program derived address together with the bump seed that
// pushed it off the curve.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
}

func (d Derived) String() string {
	return d.Address.String()
}

// Deriver computes addresses owned by ProgramID. It holds no other state and
// is safe for concurrent use.
type Deriver struct {
	ProgramID solana.PublicKey
}

func NewDeriver(programID solana.PublicKey) Deriver {
	return Deriver{ProgramID: programID}
}

// Derive folds the namespace and ids, in the given order, into a program
// address. Order matters: swapping two ids yields a different address.
func (d Deriver) Derive(ns Namespace, ids ...ident.BinaryID) (Derived, error) {
	if len(ids) == 0 {
		return Derived{}, fmt.Errorf("%w: %s: no id components", ErrDerivationExhausted, ns)
	}
	if len(ns) > solana.MaxSeedLength {
		return Derived{}, fmt.Errorf("%w: namespace %q longer than %d bytes", ErrDerivationExhausted, ns, solana.MaxSeedLength)
	}

	seeds := make([][]byte, 0, len(ids)+1)
	seeds = append(seeds, []byte(ns))
	for _, id := range ids {
		id := id
		seeds = append(seeds, id[:])
	}

	addr, bump, err := solana.FindProgramAddress(seeds, d.ProgramID)
	if err != nil {
		return Derived{}, fmt.Errorf("%w: %s: %v", ErrDerivationExhausted, ns, err)
	}

	return Derived{Address: addr, Bump: bump}, nil
}

func (d Deriver) Issuer(issuerID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceIssuer, issuerID)
}

func (d Deriver) Stakeholder(stakeholderID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceStakeholder, stakeholderID)
}

func (d Deriver) StockClass(stockClassID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceStockClass, stockClassID)
}

func (d Deriver) StockPlan(stockPlanID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceStockPlan, stockPlanID)
}

// StockPosition is keyed by stakeholder, then security.
func (d Deriver) StockPosition(stakeholderID, securityID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceStockPosition, stakeholderID, securityID)
}

// ConvertiblePosition is keyed by stakeholder, then security.
func (d Deriver) ConvertiblePosition(stakeholderID, securityID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceConvertiblePosition, stakeholderID, securityID)
}

// WarrantPosition is keyed by stakeholder, then security.
func (d Deriver) WarrantPosition(stakeholderID, securityID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceWarrantPosition, stakeholderID, securityID)
}

// EquityCompensationPosition is keyed by security, stock class, then
// stakeholder. This differs from the other position kinds.
func (d Deriver) EquityCompensationPosition(securityID, stockClassID, stakeholderID ident.BinaryID) (Derived, error) {
	return d.Derive(NamespaceEquityCompensationPosition, securityID, stockClassID, stakeholderID)
}

// ParseNamespace accepts any of the known namespace tags.
func ParseNamespace(s string) (Namespace, error) {
	for _, ns := range Namespaces {
		if string(ns) == s {
			return ns, nil
		}
	}
	return "", fmt.Errorf("unknown namespace %q", s)
}
