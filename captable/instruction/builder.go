package instruction

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/ident"
)

// ErrNoStockClass is returned when a stock plan is built without any stock
// class; the program needs the first class as an account.
var ErrNoStockClass = errors.New("stock plan needs at least one stock class")

// Builder resolves program addresses and assembles instructions. The
// authority pays for new accounts and signs every call.
type Builder struct {
	Deriver   address.Deriver
	Authority solana.PublicKey
}

func NewBuilder(programID, authority solana.PublicKey) Builder {
	return Builder{
		Deriver:   address.NewDeriver(programID),
		Authority: authority,
	}
}

func (b Builder) payer() *solana.AccountMeta {
	return solana.Meta(b.Authority).WRITE().SIGNER()
}

func (b Builder) signer() *solana.AccountMeta {
	return solana.Meta(b.Authority).SIGNER()
}

func systemProgram() *solana.AccountMeta {
	return solana.Meta(solana.SystemProgramID)
}

type initializeIssuerArgs struct {
	ID                      ident.BinaryID
	InitialSharesAuthorized uint64
}

func (b Builder) InitializeIssuer(issuerID ident.BinaryID, sharesAuthorized uint64) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(issuerID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(InitializeIssuer, initializeIssuerArgs{
		ID:                      issuerID,
		InitialSharesAuthorized: sharesAuthorized,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: InitializeIssuer,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: issuer,
	}, nil
}

type adjustSharesArgs struct {
	NewShares uint64
}

func (b Builder) AdjustAuthorizedShares(issuerID ident.BinaryID, newSharesAuthorized uint64) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(issuerID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(AdjustAuthorizedShares, adjustSharesArgs{NewShares: newSharesAuthorized})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: AdjustAuthorizedShares,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address).WRITE(),
			b.signer(),
		},
		Target: issuer,
	}, nil
}

type StockClassParams struct {
	IssuerID                ident.BinaryID
	ID                      ident.BinaryID
	ClassType               string
	PricePerShare           uint64
	InitialSharesAuthorized uint64
}

type createStockClassArgs struct {
	ID                      ident.BinaryID
	ClassType               string
	PricePerShare           uint64
	InitialSharesAuthorized uint64
}

func (b Builder) CreateStockClass(p StockClassParams) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	stockClass, err := b.Deriver.StockClass(p.ID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(CreateStockClass, createStockClassArgs{
		ID:                      p.ID,
		ClassType:               p.ClassType,
		PricePerShare:           p.PricePerShare,
		InitialSharesAuthorized: p.InitialSharesAuthorized,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: CreateStockClass,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(stockClass.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: stockClass,
	}, nil
}

func (b Builder) AdjustStockClassShares(issuerID, stockClassID ident.BinaryID, newSharesAuthorized uint64) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(issuerID)
	if err != nil {
		return nil, err
	}
	stockClass, err := b.Deriver.StockClass(stockClassID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(AdjustStockClassShares, adjustSharesArgs{NewShares: newSharesAuthorized})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: AdjustStockClassShares,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(stockClass.Address).WRITE(),
			b.signer(),
		},
		Target: stockClass,
	}, nil
}

type idArgs struct {
	ID ident.BinaryID
}

func (b Builder) CreateStakeholder(issuerID, stakeholderID ident.BinaryID) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(issuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := b.Deriver.Stakeholder(stakeholderID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(CreateStakeholder, idArgs{ID: stakeholderID})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: CreateStakeholder,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(stakeholder.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: stakeholder,
	}, nil
}

type StockPlanParams struct {
	IssuerID       ident.BinaryID
	ID             ident.BinaryID
	StockClassIDs  []ident.BinaryID
	SharesReserved uint64
}

type createStockPlanArgs struct {
	ID             ident.BinaryID
	StockClassIDs  []ident.BinaryID
	SharesReserved uint64
}

// CreateStockPlan passes the first stock class as the plan's class account.
func (b Builder) CreateStockPlan(p StockPlanParams) (*Instruction, error) {
	if len(p.StockClassIDs) == 0 {
		return nil, ErrNoStockClass
	}

	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	stockPlan, err := b.Deriver.StockPlan(p.ID)
	if err != nil {
		return nil, err
	}
	stockClass, err := b.Deriver.StockClass(p.StockClassIDs[0])
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(CreateStockPlan, createStockPlanArgs{
		ID:             p.ID,
		StockClassIDs:  p.StockClassIDs,
		SharesReserved: p.SharesReserved,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: CreateStockPlan,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(stockPlan.Address).WRITE(),
			solana.Meta(stockClass.Address),
			b.payer(),
			systemProgram(),
		},
		Target: stockPlan,
	}, nil
}

func (b Builder) AdjustStockPlanShares(issuerID, stockPlanID ident.BinaryID, newSharesReserved uint64) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(issuerID)
	if err != nil {
		return nil, err
	}
	stockPlan, err := b.Deriver.StockPlan(stockPlanID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(AdjustStockPlanShares, adjustSharesArgs{NewShares: newSharesReserved})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: AdjustStockPlanShares,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(stockPlan.Address).WRITE(),
			b.signer(),
		},
		Target: stockPlan,
	}, nil
}

type StockParams struct {
	IssuerID      ident.BinaryID
	StockClassID  ident.BinaryID
	StakeholderID ident.BinaryID
	SecurityID    ident.BinaryID
	Quantity      uint64
	SharePrice    uint64
}

type issueStockArgs struct {
	SecurityID ident.BinaryID
	Quantity   uint64
	SharePrice uint64
}

// IssueStock does not carry the stock class id as an argument; the program
// reads it from the stock class account.
func (b Builder) IssueStock(p StockParams) (*Instruction, error) {
	stockClass, err := b.Deriver.StockClass(p.StockClassID)
	if err != nil {
		return nil, err
	}
	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := b.Deriver.Stakeholder(p.StakeholderID)
	if err != nil {
		return nil, err
	}
	position, err := b.Deriver.StockPosition(p.StakeholderID, p.SecurityID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(IssueStock, issueStockArgs{
		SecurityID: p.SecurityID,
		Quantity:   p.Quantity,
		SharePrice: p.SharePrice,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: IssueStock,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(stockClass.Address).WRITE(),
			solana.Meta(issuer.Address).WRITE(),
			solana.Meta(stakeholder.Address),
			solana.Meta(position.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: position,
	}, nil
}

type ConvertibleParams struct {
	IssuerID         ident.BinaryID
	StakeholderID    ident.BinaryID
	SecurityID       ident.BinaryID
	InvestmentAmount uint64
}

type securityAmountArgs struct {
	SecurityID ident.BinaryID
	Amount     uint64
}

func (b Builder) IssueConvertible(p ConvertibleParams) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := b.Deriver.Stakeholder(p.StakeholderID)
	if err != nil {
		return nil, err
	}
	position, err := b.Deriver.ConvertiblePosition(p.StakeholderID, p.SecurityID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(IssueConvertible, securityAmountArgs{
		SecurityID: p.SecurityID,
		Amount:     p.InvestmentAmount,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: IssueConvertible,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(stakeholder.Address),
			solana.Meta(position.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: position,
	}, nil
}

type EquityCompensationParams struct {
	IssuerID      ident.BinaryID
	StakeholderID ident.BinaryID
	StockClassID  ident.BinaryID
	// StockPlanID is optional.
	StockPlanID *ident.BinaryID
	SecurityID  ident.BinaryID
	Quantity    uint64
}

func (b Builder) IssueEquityCompensation(p EquityCompensationParams) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := b.Deriver.Stakeholder(p.StakeholderID)
	if err != nil {
		return nil, err
	}
	stockClass, err := b.Deriver.StockClass(p.StockClassID)
	if err != nil {
		return nil, err
	}

	// Anchor marks an absent optional account with the program id.
	stockPlan := solana.Meta(b.Deriver.ProgramID)
	if p.StockPlanID != nil {
		plan, err := b.Deriver.StockPlan(*p.StockPlanID)
		if err != nil {
			return nil, err
		}
		stockPlan = solana.Meta(plan.Address)
	}

	position, err := b.Deriver.EquityCompensationPosition(p.SecurityID, p.StockClassID, p.StakeholderID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(IssueEquityCompensation, securityAmountArgs{
		SecurityID: p.SecurityID,
		Amount:     p.Quantity,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: IssueEquityCompensation,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address).WRITE(),
			solana.Meta(stakeholder.Address),
			solana.Meta(stockClass.Address),
			stockPlan,
			solana.Meta(position.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: position,
	}, nil
}

type ExerciseParams struct {
	IssuerID ident.BinaryID
	// Equity compensation position being exercised.
	EquitySecurityID ident.BinaryID
	StockClassID     ident.BinaryID
	StakeholderID    ident.BinaryID
	// Stock position that receives the shares, owned by the same stakeholder.
	ResultingSecurityID ident.BinaryID
	Quantity            uint64
}

type quantityArgs struct {
	Quantity uint64
}

func (b Builder) ExerciseEquityCompensation(p ExerciseParams) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	equityPosition, err := b.Deriver.EquityCompensationPosition(p.EquitySecurityID, p.StockClassID, p.StakeholderID)
	if err != nil {
		return nil, err
	}
	stockPosition, err := b.Deriver.StockPosition(p.StakeholderID, p.ResultingSecurityID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(ExerciseEquityCompensation, quantityArgs{Quantity: p.Quantity})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: ExerciseEquityCompensation,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address),
			solana.Meta(equityPosition.Address).WRITE(),
			solana.Meta(stockPosition.Address).WRITE(),
			b.payer(),
		},
		Target: equityPosition,
	}, nil
}

type WarrantParams struct {
	IssuerID      ident.BinaryID
	StakeholderID ident.BinaryID
	SecurityID    ident.BinaryID
	Quantity      uint64
}

func (b Builder) IssueWarrant(p WarrantParams) (*Instruction, error) {
	issuer, err := b.Deriver.Issuer(p.IssuerID)
	if err != nil {
		return nil, err
	}
	stakeholder, err := b.Deriver.Stakeholder(p.StakeholderID)
	if err != nil {
		return nil, err
	}
	position, err := b.Deriver.WarrantPosition(p.StakeholderID, p.SecurityID)
	if err != nil {
		return nil, err
	}

	args, err := encodeArgs(IssueWarrant, securityAmountArgs{
		SecurityID: p.SecurityID,
		Amount:     p.Quantity,
	})
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name: IssueWarrant,
		Args: args,
		Accounts: solana.AccountMetaSlice{
			solana.Meta(issuer.Address).WRITE(),
			solana.Meta(stakeholder.Address),
			solana.Meta(position.Address).WRITE(),
			b.payer(),
			systemProgram(),
		},
		Target: position,
	}, nil
}

// Describe renders the account list for logs.
func Describe(ix *Instruction) string {
	s := ix.Name + "("
	for i, m := range ix.Accounts {
		if i > 0 {
			s += " "
		}
		flags := ""
		if m.IsWritable {
			flags += "w"
		}
		if m.IsSigner {
			flags += "s"
		}
		s += fmt.Sprintf("%s:%s", m.PublicKey.Short(4), flags)
	}
	return s + ")"
}
