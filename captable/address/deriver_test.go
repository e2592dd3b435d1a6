package address_test

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/stretchr/testify/require"
)

var (
	issuerID      = ident.MustBinaryID("123e4567-e89b-12d3-a456-426614174000")
	stakeholderID = ident.MustBinaryID("223e4567-e89b-12d3-a456-426614174001")
	stockClassID  = ident.MustBinaryID("323e4567-e89b-12d3-a456-426614174002")
	securityID    = ident.MustBinaryID("423e4567-e89b-12d3-a456-426614174003")
)

func TestKnownAddresses(t *testing.T) {
	d := address.NewDeriver(address.DefaultProgramID)

	tests := []struct {
		name   string
		derive func() (address.Derived, error)
		want   string
		bump   uint8
	}{
		{
			name:   "issuer",
			derive: func() (address.Derived, error) { return d.Issuer(issuerID) },
			want:   "HoMXQUxuLhVeN6Vc4spCKtYE23Ygv9ZjVnk5H2m6x9ZA",
			bump:   253,
		},
		{
			name:   "stakeholder",
			derive: func() (address.Derived, error) { return d.Stakeholder(stakeholderID) },
			want:   "ENjAhCqkjw1gcc5TCiEPukRSKCUvrJgGYckauFqUWCeo",
			bump:   254,
		},
		{
			name:   "stock position",
			derive: func() (address.Derived, error) { return d.StockPosition(stakeholderID, securityID) },
			want:   "GRje7je86magTWJoAox6gNjforMemA9dTVnkhoFkyoZv",
			bump:   255,
		},
		{
			name: "equity compensation position",
			derive: func() (address.Derived, error) {
				return d.EquityCompensationPosition(securityID, stockClassID, stakeholderID)
			},
			want: "EEEb6Dfb9DqNW8xs4cj5uUNNuyLyThoqiBL5NuNRNKEc",
			bump: 255,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.derive()
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Address.String())
			require.Equal(t, tt.bump, got.Bump)
			require.False(t, got.Address.IsOnCurve())
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	d := address.NewDeriver(address.DefaultProgramID)
	for _, ns := range address.Namespaces {
		first, err := d.Derive(ns, stakeholderID, securityID)
		require.NoError(t, err)
		second, err := d.Derive(ns, stakeholderID, securityID)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestDeriveMatchesProgramAddress(t *testing.T) {
	d := address.NewDeriver(address.DefaultProgramID)
	got, err := d.StockPosition(stakeholderID, securityID)
	require.NoError(t, err)

	want, err := solana.CreateProgramAddress([][]byte{
		[]byte("stock_position"),
		stakeholderID[:],
		securityID[:],
		{got.Bump},
	}, address.DefaultProgramID)
	require.NoError(t, err)
	require.Equal(t, want, got.Address)
}

func TestComponentOrderMatters(t *testing.T) {
	d := address.NewDeriver(address.DefaultProgramID)
	ab, err := d.Derive(address.NamespaceStockPosition, stakeholderID, securityID)
	require.NoError(t, err)
	ba, err := d.Derive(address.NamespaceStockPosition, securityID, stakeholderID)
	require.NoError(t, err)
	require.NotEqual(t, ab.Address, ba.Address)
}

func TestNamespaceMatters(t *testing.T) {
	d := address.NewDeriver(address.DefaultProgramID)
	seen := map[solana.PublicKey]address.Namespace{}
	for _, ns := range address.Namespaces {
		got, err := d.Derive(ns, issuerID)
		require.NoError(t, err)
		prev, dup := seen[got.Address]
		require.False(t, dup, "%s collides with %s", ns, prev)
		seen[got.Address] = ns
	}
}

func TestProgramIDMatters(t *testing.T) {
	a, err := address.NewDeriver(address.DefaultProgramID).Issuer(issuerID)
	require.NoError(t, err)
	b, err := address.NewDeriver(solana.TokenProgramID).Issuer(issuerID)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)

	zero := address.NewDeriver(solana.PublicKey{})
	require.True(t, zero.ProgramID.IsZero())
	c, err := zero.Issuer(issuerID)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, c.Address)
}

func TestDeriveFailures(t *testing.T) {
	d := address.NewDeriver(address.DefaultProgramID)

	_, err := d.Derive(address.NamespaceIssuer)
	require.ErrorIs(t, err, address.ErrDerivationExhausted)

	_, err = d.Derive(address.Namespace(strings.Repeat("x", 33)), issuerID)
	require.ErrorIs(t, err, address.ErrDerivationExhausted)

	ids := make([]ident.BinaryID, 16)
	_, err = d.Derive(address.NamespaceIssuer, ids...)
	require.ErrorIs(t, err, address.ErrDerivationExhausted)
}

func TestParseNamespace(t *testing.T) {
	ns, err := address.ParseNamespace("warrant_position")
	require.NoError(t, err)
	require.Equal(t, address.NamespaceWarrantPosition, ns)

	_, err = address.ParseNamespace("warrant")
	require.Error(t, err)
}
