// Package instruction encodes calls to the cap table program: the Anchor
// method discriminator, borsh arguments and the ordered account list.
package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/address"
)

// Method names as exported by the program.
const (
	InitializeIssuer           = "initialize_issuer"
	AdjustAuthorizedShares     = "adjust_authorized_shares"
	CreateStockClass           = "create_stock_class"
	AdjustStockClassShares     = "adjust_stock_class_shares"
	CreateStakeholder          = "create_stakeholder"
	CreateStockPlan            = "create_stock_plan"
	AdjustStockPlanShares      = "adjust_stock_plan_shares"
	IssueStock                 = "issue_stock"
	IssueConvertible           = "issue_convertible"
	IssueEquityCompensation    = "issue_equity_compensation"
	ExerciseEquityCompensation = "exercise_equity_compensation"
	IssueWarrant               = "issue_warrant"
)

// Instruction is a single program call ready to be placed in a transaction.
type Instruction struct {
	Name     string
	Args     []byte
	Accounts solana.AccountMetaSlice

	// Target is the account created or changed by the call.
	Target address.Derived
}

// Discriminator is the 8-byte method selector: sha256("global:<name>")[:8].
func Discriminator(name string) bin.TypeID {
	return bin.TypeIDFromBytes(bin.Sighash(bin.SIGHASH_GLOBAL_NAMESPACE, name))
}

// Data returns the discriminator followed by the encoded arguments.
func (ix *Instruction) Data() []byte {
	disc := Discriminator(ix.Name)
	data := make([]byte, 0, len(disc)+len(ix.Args))
	data = append(data, disc[:]...)
	return append(data, ix.Args...)
}

// Build turns ix into a solana instruction addressed to programID.
func (ix *Instruction) Build(programID solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(programID, ix.Accounts, ix.Data())
}

func encodeArgs(name string, args any) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := bin.NewBorshEncoder(buf).Encode(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
	}
	return buf.Bytes(), nil
}
