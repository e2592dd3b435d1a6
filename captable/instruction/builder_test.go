package instruction_test

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/opencaptable/ocp-solana/captable/instruction"
	"github.com/stretchr/testify/require"
)

var (
	issuerID      = ident.MustBinaryID("123e4567-e89b-12d3-a456-426614174000")
	stakeholderID = ident.MustBinaryID("223e4567-e89b-12d3-a456-426614174001")
	stockClassID  = ident.MustBinaryID("323e4567-e89b-12d3-a456-426614174002")
	securityID    = ident.MustBinaryID("423e4567-e89b-12d3-a456-426614174003")
	stockPlanID   = ident.MustBinaryID("523e4567-e89b-12d3-a456-426614174004")

	authority = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

func newBuilder() instruction.Builder {
	return instruction.NewBuilder(address.DefaultProgramID, authority)
}

func le64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDiscriminators(t *testing.T) {
	tests := []struct {
		name string
		want [8]byte
	}{
		{name: instruction.InitializeIssuer, want: [8]byte{231, 164, 134, 90, 62, 217, 189, 118}},
		{name: instruction.AdjustAuthorizedShares, want: [8]byte{19, 10, 150, 157, 233, 241, 41, 218}},
		{name: instruction.CreateStockClass, want: [8]byte{172, 225, 224, 222, 176, 202, 190, 1}},
		{name: instruction.AdjustStockClassShares, want: [8]byte{176, 226, 80, 229, 215, 93, 16, 59}},
		{name: instruction.CreateStakeholder, want: [8]byte{245, 207, 101, 137, 54, 137, 35, 96}},
		{name: instruction.CreateStockPlan, want: [8]byte{79, 37, 226, 215, 180, 224, 50, 3}},
		{name: instruction.AdjustStockPlanShares, want: [8]byte{63, 122, 36, 101, 14, 60, 27, 168}},
		{name: instruction.IssueStock, want: [8]byte{74, 9, 217, 198, 6, 10, 78, 221}},
		{name: instruction.IssueConvertible, want: [8]byte{162, 34, 47, 43, 212, 247, 129, 93}},
		{name: instruction.IssueEquityCompensation, want: [8]byte{122, 209, 55, 252, 164, 114, 4, 156}},
		{name: instruction.ExerciseEquityCompensation, want: [8]byte{9, 212, 211, 86, 213, 97, 221, 125}},
		{name: instruction.IssueWarrant, want: [8]byte{172, 11, 129, 43, 159, 0, 44, 179}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, [8]byte(instruction.Discriminator(tt.name)))
		})
	}
}

func TestInitializeIssuer(t *testing.T) {
	b := newBuilder()
	ix, err := b.InitializeIssuer(issuerID, 1_000_000_000_000)
	require.NoError(t, err)

	require.Equal(t, concat(issuerID[:], le64(1_000_000_000_000)), ix.Args)
	require.Equal(t, concat([]byte{231, 164, 134, 90, 62, 217, 189, 118}, issuerID[:], le64(1_000_000_000_000)), ix.Data())

	issuer, err := b.Deriver.Issuer(issuerID)
	require.NoError(t, err)
	require.Equal(t, issuer, ix.Target)
	require.Equal(t, "HoMXQUxuLhVeN6Vc4spCKtYE23Ygv9ZjVnk5H2m6x9ZA", ix.Target.Address.String())

	require.Equal(t, solana.AccountMetaSlice{
		{PublicKey: issuer.Address, IsWritable: true},
		{PublicKey: authority, IsWritable: true, IsSigner: true},
		{PublicKey: solana.SystemProgramID},
	}, ix.Accounts)

	built := ix.Build(address.DefaultProgramID)
	require.Equal(t, address.DefaultProgramID, built.ProgramID())
	data, err := built.Data()
	require.NoError(t, err)
	require.Equal(t, ix.Data(), data)
}

func TestCreateStockClassEncodesString(t *testing.T) {
	b := newBuilder()
	ix, err := b.CreateStockClass(instruction.StockClassParams{
		IssuerID:                issuerID,
		ID:                      stockClassID,
		ClassType:               "COMMON",
		PricePerShare:           1_500_000,
		InitialSharesAuthorized: 100_000_000,
	})
	require.NoError(t, err)

	require.Equal(t, concat(
		stockClassID[:],
		le32(6), []byte("COMMON"),
		le64(1_500_000),
		le64(100_000_000),
	), ix.Args)
	require.Len(t, ix.Accounts, 4)
	require.False(t, ix.Accounts[0].IsWritable)
	require.True(t, ix.Accounts[1].IsWritable)
	require.Equal(t, ix.Target.Address, ix.Accounts[1].PublicKey)
}

func TestCreateStockPlanEncodesVector(t *testing.T) {
	b := newBuilder()
	other := ident.MustBinaryID("623e4567-e89b-12d3-a456-426614174005")
	ix, err := b.CreateStockPlan(instruction.StockPlanParams{
		IssuerID:       issuerID,
		ID:             stockPlanID,
		StockClassIDs:  []ident.BinaryID{stockClassID, other},
		SharesReserved: 5_000_000,
	})
	require.NoError(t, err)

	require.Equal(t, concat(
		stockPlanID[:],
		le32(2), stockClassID[:], other[:],
		le64(5_000_000),
	), ix.Args)

	firstClass, err := b.Deriver.StockClass(stockClassID)
	require.NoError(t, err)
	require.Equal(t, firstClass.Address, ix.Accounts[2].PublicKey)

	_, err = b.CreateStockPlan(instruction.StockPlanParams{IssuerID: issuerID, ID: stockPlanID})
	require.ErrorIs(t, err, instruction.ErrNoStockClass)
}

func TestIssueStock(t *testing.T) {
	b := newBuilder()
	ix, err := b.IssueStock(instruction.StockParams{
		IssuerID:      issuerID,
		StockClassID:  stockClassID,
		StakeholderID: stakeholderID,
		SecurityID:    securityID,
		Quantity:      100_000_000,
		SharePrice:    1_500_000,
	})
	require.NoError(t, err)

	require.Equal(t, concat(securityID[:], le64(100_000_000), le64(1_500_000)), ix.Args)
	require.Equal(t, "GRje7je86magTWJoAox6gNjforMemA9dTVnkhoFkyoZv", ix.Target.Address.String())

	stockClass, _ := b.Deriver.StockClass(stockClassID)
	issuer, _ := b.Deriver.Issuer(issuerID)
	stakeholder, _ := b.Deriver.Stakeholder(stakeholderID)
	require.Equal(t, solana.AccountMetaSlice{
		{PublicKey: stockClass.Address, IsWritable: true},
		{PublicKey: issuer.Address, IsWritable: true},
		{PublicKey: stakeholder.Address},
		{PublicKey: ix.Target.Address, IsWritable: true},
		{PublicKey: authority, IsWritable: true, IsSigner: true},
		{PublicKey: solana.SystemProgramID},
	}, ix.Accounts)
}

func TestIssueEquityCompensationOptionalPlan(t *testing.T) {
	b := newBuilder()
	params := instruction.EquityCompensationParams{
		IssuerID:      issuerID,
		StakeholderID: stakeholderID,
		StockClassID:  stockClassID,
		SecurityID:    securityID,
		Quantity:      10_000_000,
	}

	t.Run("without plan", func(t *testing.T) {
		ix, err := b.IssueEquityCompensation(params)
		require.NoError(t, err)
		require.Equal(t, address.DefaultProgramID, ix.Accounts[3].PublicKey)
		require.False(t, ix.Accounts[3].IsWritable)
		require.Equal(t, "EEEb6Dfb9DqNW8xs4cj5uUNNuyLyThoqiBL5NuNRNKEc", ix.Target.Address.String())
		require.Equal(t, concat(securityID[:], le64(10_000_000)), ix.Args)
	})

	t.Run("with plan", func(t *testing.T) {
		p := params
		p.StockPlanID = &stockPlanID
		ix, err := b.IssueEquityCompensation(p)
		require.NoError(t, err)
		plan, err := b.Deriver.StockPlan(stockPlanID)
		require.NoError(t, err)
		require.Equal(t, plan.Address, ix.Accounts[3].PublicKey)
	})
}

func TestExerciseEquityCompensation(t *testing.T) {
	b := newBuilder()
	resulting := ident.MustBinaryID("723e4567-e89b-12d3-a456-426614174006")
	ix, err := b.ExerciseEquityCompensation(instruction.ExerciseParams{
		IssuerID:            issuerID,
		EquitySecurityID:    securityID,
		StockClassID:        stockClassID,
		StakeholderID:       stakeholderID,
		ResultingSecurityID: resulting,
		Quantity:            1_000_000,
	})
	require.NoError(t, err)
	require.Equal(t, le64(1_000_000), ix.Args)

	stockPosition, err := b.Deriver.StockPosition(stakeholderID, resulting)
	require.NoError(t, err)
	require.Len(t, ix.Accounts, 4)
	require.Equal(t, ix.Target.Address, ix.Accounts[1].PublicKey)
	require.Equal(t, stockPosition.Address, ix.Accounts[2].PublicKey)
	require.True(t, ix.Accounts[3].IsSigner)
}

func TestPositionInstructions(t *testing.T) {
	b := newBuilder()

	conv, err := b.IssueConvertible(instruction.ConvertibleParams{
		IssuerID:         issuerID,
		StakeholderID:    stakeholderID,
		SecurityID:       securityID,
		InvestmentAmount: 250_000_000,
	})
	require.NoError(t, err)
	want, err := b.Deriver.ConvertiblePosition(stakeholderID, securityID)
	require.NoError(t, err)
	require.Equal(t, want, conv.Target)
	require.Equal(t, concat(securityID[:], le64(250_000_000)), conv.Args)
	require.False(t, conv.Accounts[0].IsWritable)

	warrant, err := b.IssueWarrant(instruction.WarrantParams{
		IssuerID:      issuerID,
		StakeholderID: stakeholderID,
		SecurityID:    securityID,
		Quantity:      7,
	})
	require.NoError(t, err)
	want, err = b.Deriver.WarrantPosition(stakeholderID, securityID)
	require.NoError(t, err)
	require.Equal(t, want, warrant.Target)
	require.True(t, warrant.Accounts[0].IsWritable)
}

func TestAdjustInstructions(t *testing.T) {
	b := newBuilder()

	ix, err := b.AdjustAuthorizedShares(issuerID, 42)
	require.NoError(t, err)
	require.Equal(t, le64(42), ix.Args)
	require.Equal(t, solana.AccountMetaSlice{
		{PublicKey: ix.Target.Address, IsWritable: true},
		{PublicKey: authority, IsSigner: true},
	}, ix.Accounts)

	ix, err = b.AdjustStockClassShares(issuerID, stockClassID, 43)
	require.NoError(t, err)
	require.Equal(t, le64(43), ix.Args)
	require.Equal(t, ix.Target.Address, ix.Accounts[1].PublicKey)

	ix, err = b.AdjustStockPlanShares(issuerID, stockPlanID, 44)
	require.NoError(t, err)
	require.Equal(t, le64(44), ix.Args)
	require.Equal(t, ix.Target.Address, ix.Accounts[1].PublicKey)
}

func TestCreateStakeholder(t *testing.T) {
	b := newBuilder()
	ix, err := b.CreateStakeholder(issuerID, stakeholderID)
	require.NoError(t, err)
	require.Equal(t, stakeholderID[:], ix.Args)
	require.Equal(t, "ENjAhCqkjw1gcc5TCiEPukRSKCUvrJgGYckauFqUWCeo", ix.Target.Address.String())
	require.Contains(t, instruction.Describe(ix), "create_stakeholder(")
}
