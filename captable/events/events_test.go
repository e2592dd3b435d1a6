package events_test

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/address"
	"github.com/opencaptable/ocp-solana/captable/events"
	"github.com/opencaptable/ocp-solana/captable/ident"
	"github.com/stretchr/testify/require"
)

const (
	issuerUUID      = "123e4567-e89b-12d3-a456-426614174000"
	stakeholderUUID = "223e4567-e89b-12d3-a456-426614174001"
	stockClassUUID  = "323e4567-e89b-12d3-a456-426614174002"
	securityUUID    = "423e4567-e89b-12d3-a456-426614174003"
)

var (
	issuerID      = ident.MustBinaryID(issuerUUID)
	stakeholderID = ident.MustBinaryID(stakeholderUUID)
	stockClassID  = ident.MustBinaryID(stockClassUUID)
	securityID    = ident.MustBinaryID(securityUUID)
)

func le64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func stockIssuedPayload() []byte {
	return concat(stockClassID[:], securityID[:], stakeholderID[:], le64(100_000_000), le64(1_500_000), issuerID[:])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		tag  events.TxType
		want events.Schema
	}{
		{tag: events.TxStockIssuance, want: events.SchemaStockIssuance},
		{tag: events.TxConvertibleIssuance, want: events.SchemaConvertibleIssuance},
		{tag: events.TxEquityCompensationIssuance, want: events.SchemaEquityCompensationIssuance},
		{tag: events.TxEquityCompensationExercise, want: events.SchemaEquityCompensationExercise},
		{tag: events.TxWarrantIssuance, want: events.SchemaWarrantIssuance},
		{tag: events.TxInvalid, want: events.SchemaUnknown},
		{tag: events.TxStockTransfer, want: events.SchemaUnknown},
		{tag: events.TxType(200), want: events.SchemaUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			require.Equal(t, tt.want, events.Classify(events.Envelope{Tag: tt.tag}))
		})
	}
}

func TestDecodeStockIssuance(t *testing.T) {
	rec, err := events.Decode(events.Envelope{
		Tag:      events.TxStockIssuance,
		Payload:  stockIssuedPayload(),
		IssuerID: issuerID,
	})
	require.NoError(t, err)

	require.Equal(t, "StockIssued", rec.Kind)
	require.Equal(t, "TX_STOCK_ISSUANCE", rec.OCFType)
	require.Equal(t, issuerUUID, rec.IssuerID)
	require.Equal(t, []events.Field{
		{Name: "stockClassId", Value: stockClassUUID},
		{Name: "securityId", Value: securityUUID},
		{Name: "stakeholderId", Value: stakeholderUUID},
		{Name: "quantity", Value: "100.000000"},
		{Name: "sharePrice", Value: "1.500000"},
		{Name: "issuerId", Value: issuerUUID},
	}, rec.Fields)
	require.Equal(t, stakeholderUUID, rec.Text("stakeholderId"))
	require.Equal(t, "", rec.Text("missing"))
}

func TestDecodeStockIssuanceWithoutIssuerField(t *testing.T) {
	full := stockIssuedPayload()
	require.Len(t, full, 80)

	_, err := events.Decode(events.Envelope{
		Tag:      events.TxStockIssuance,
		Payload:  full[:len(full)-16],
		IssuerID: issuerID,
	})
	require.ErrorIs(t, err, events.ErrSchemaMismatch)
}

func TestDecodeOtherSchemas(t *testing.T) {
	planID := ident.MustBinaryID("523e4567-e89b-12d3-a456-426614174004")
	resultingID := ident.MustBinaryID("723e4567-e89b-12d3-a456-426614174006")

	tests := []struct {
		name    string
		env     events.Envelope
		kind    string
		ocfType string
		want    map[string]any
	}{
		{
			name:    "convertible",
			env:     events.Envelope{Tag: events.TxConvertibleIssuance, Payload: concat(stakeholderID[:], securityID[:], le64(250_000_000))},
			kind:    "ConvertibleIssued",
			ocfType: "TX_CONVERTIBLE_ISSUANCE",
			want: map[string]any{
				"stakeholderId":    stakeholderUUID,
				"securityId":       securityUUID,
				"investmentAmount": "250.000000",
			},
		},
		{
			name:    "equity compensation",
			env:     events.Envelope{Tag: events.TxEquityCompensationIssuance, Payload: concat(securityID[:], stakeholderID[:], stockClassID[:], planID[:], le64(1))},
			kind:    "EquityCompensationIssued",
			ocfType: "TX_EQUITY_COMPENSATION_ISSUANCE",
			want: map[string]any{
				"securityId":    securityUUID,
				"stakeholderId": stakeholderUUID,
				"stockClassId":  stockClassUUID,
				"stockPlanId":   "523e4567-e89b-12d3-a456-426614174004",
				"quantity":      "0.000001",
			},
		},
		{
			name:    "exercise",
			env:     events.Envelope{Tag: events.TxEquityCompensationExercise, Payload: concat(securityID[:], resultingID[:], le64(3_000_000))},
			kind:    "EquityCompensationExercised",
			ocfType: "TX_EQUITY_COMPENSATION_EXERCISE",
			want: map[string]any{
				"equityCompSecurityId":     securityUUID,
				"resultingStockSecurityId": "723e4567-e89b-12d3-a456-426614174006",
				"quantity":                 "3.000000",
			},
		},
		{
			name:    "warrant",
			env:     events.Envelope{Tag: events.TxWarrantIssuance, Payload: concat(stakeholderID[:], securityID[:], le64(0))},
			kind:    "WarrantIssued",
			ocfType: "TX_WARRANT_ISSUANCE",
			want: map[string]any{
				"stakeholderId": stakeholderUUID,
				"securityId":    securityUUID,
				"quantity":      "0.000000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := events.Decode(tt.env)
			require.NoError(t, err)
			require.Equal(t, tt.kind, rec.Kind)
			require.Equal(t, tt.ocfType, rec.OCFType)
			require.Equal(t, tt.want, rec.Map())
		})
	}
}

func TestDecodeUnknownDoesNotParse(t *testing.T) {
	rec, err := events.Decode(events.Envelope{Tag: events.TxStockTransfer, Payload: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.True(t, rec.IsUnknown())
	require.Empty(t, rec.Fields)
	require.Equal(t, []byte{1, 2, 3}, rec.Raw)
}

func TestSchemaMismatch(t *testing.T) {
	full := stockIssuedPayload()

	for _, n := range []int{0, 1, 15, 16, 47, 48, 55, 64, 65, 72, len(full) - 1} {
		_, err := events.Decode(events.Envelope{Tag: events.TxStockIssuance, Payload: full[:n]})
		require.ErrorIs(t, err, events.ErrSchemaMismatch, "length %d", n)
	}

	_, err := events.Decode(events.Envelope{Tag: events.TxStockIssuance, Payload: append(full, 0)})
	require.ErrorIs(t, err, events.ErrSchemaMismatch)

	_, err = events.Decode(events.Envelope{Tag: events.TxStockIssuance, Payload: concat(full, issuerID[:])})
	require.ErrorIs(t, err, events.ErrSchemaMismatch)

	_, err = events.Decode(events.Envelope{Tag: events.TxWarrantIssuance, Payload: full})
	require.ErrorIs(t, err, events.ErrSchemaMismatch)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := events.Envelope{Tag: events.TxStockIssuance, Payload: stockIssuedPayload(), IssuerID: issuerID}
	raw, err := events.EncodeEnvelope(env)
	require.NoError(t, err)
	require.Equal(t, events.TxCreated, raw.Discriminator)

	back, err := events.DecodeEnvelope(raw.Data)
	require.NoError(t, err)
	require.Equal(t, env, back)

	_, err = events.DecodeEnvelope(raw.Data[:len(raw.Data)-16])
	require.ErrorIs(t, err, events.ErrSchemaMismatch)

	_, err = events.DecodeEnvelope(append(raw.Data, 0))
	require.ErrorIs(t, err, events.ErrSchemaMismatch)

	_, err = events.DecodeEnvelope(raw.Data[:len(raw.Data)-3])
	require.ErrorIs(t, err, events.ErrSchemaMismatch)

	_, err = events.DecodeEnvelope(nil)
	require.ErrorIs(t, err, events.ErrSchemaMismatch)
}

func TestDiscriminators(t *testing.T) {
	require.Equal(t, [8]byte{1, 188, 68, 198, 61, 225, 163, 78}, [8]byte(events.TxCreated))
	require.Equal(t, [8]byte{129, 191, 92, 68, 22, 51, 79, 42}, [8]byte(events.StakeholderCreated))
	require.Equal(t, [8]byte{38, 71, 170, 180, 104, 189, 147, 133}, [8]byte(events.StockClassCreated))
	require.Equal(t, [8]byte{146, 172, 3, 245, 149, 128, 226, 83}, [8]byte(events.StockClassSharesAdjusted))
	require.Equal(t, [8]byte{77, 190, 53, 6, 162, 137, 173, 5}, [8]byte(events.StockPlanCreated))
	require.Equal(t, [8]byte{252, 63, 167, 31, 39, 226, 58, 59}, [8]byte(events.StockPlanSharesAdjusted))
}

func TestParseLogs(t *testing.T) {
	program := address.DefaultProgramID
	raw, err := events.EncodeEnvelope(events.Envelope{Tag: events.TxStockIssuance, Payload: stockIssuedPayload(), IssuerID: issuerID})
	require.NoError(t, err)

	other := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	foreign := events.RawEvent{Discriminator: events.StakeholderCreated, Data: concat(stakeholderID[:], issuerID[:])}

	logs := []string{
		"Program " + program.String() + " invoke [1]",
		"Program log: Instruction: IssueStock",
		"Program 11111111111111111111111111111111 invoke [2]",
		"Program 11111111111111111111111111111111 success",
		"Program " + other.String() + " invoke [2]",
		foreign.Encode(),
		"Program " + other.String() + " success",
		raw.Encode(),
		"Program " + program.String() + " consumed 21337 of 200000 compute units",
		"Program " + program.String() + " success",
		foreign.Encode(),
	}

	got, err := events.ParseLogs(program, logs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, raw, got[0])

	rec, err := events.DecodeEvent(got[0])
	require.NoError(t, err)
	require.Equal(t, "StockIssued", rec.Kind)
	require.Equal(t, stakeholderUUID, rec.Text("stakeholderId"))
	require.Equal(t, "100.000000", rec.Text("quantity"))
	require.Equal(t, issuerUUID, rec.IssuerID)
}

func TestParseLogsReportsMalformedLines(t *testing.T) {
	program := address.DefaultProgramID
	good := events.RawEvent{Discriminator: events.StakeholderCreated, Data: stakeholderID[:]}
	logs := []string{
		"Program " + program.String() + " invoke [1]",
		"Program data: !!!",
		"Program data: AAEC",
		good.Encode(),
		"Program " + program.String() + " failed: custom program error: 0x1770",
	}

	got, err := events.ParseLogs(program, logs)
	require.ErrorIs(t, err, events.ErrSchemaMismatch)
	require.Equal(t, []events.RawEvent{good}, got)
}

func TestDecodeLifecycleEvents(t *testing.T) {
	classType := []byte("COMMON")
	classTypeLen := binary.LittleEndian.AppendUint32(nil, uint32(len(classType)))

	tests := []struct {
		name string
		ev   events.RawEvent
		kind string
		want map[string]any
	}{
		{
			name: "stakeholder created",
			ev:   events.RawEvent{Discriminator: events.StakeholderCreated, Data: concat(stakeholderID[:], issuerID[:])},
			kind: "StakeholderCreated",
			want: map[string]any{"id": stakeholderUUID, "issuerId": issuerUUID},
		},
		{
			name: "stock class created",
			ev: events.RawEvent{Discriminator: events.StockClassCreated, Data: concat(
				stockClassID[:], classTypeLen, classType, le64(1_000_000), le64(100_000_000), issuerID[:],
			)},
			kind: "StockClassCreated",
			want: map[string]any{
				"id":                      stockClassUUID,
				"classType":               "COMMON",
				"pricePerShare":           "1.000000",
				"initialSharesAuthorized": "100.000000",
				"issuerId":                issuerUUID,
			},
		},
		{
			name: "stock class shares adjusted",
			ev:   events.RawEvent{Discriminator: events.StockClassSharesAdjusted, Data: concat(stockClassID[:], le64(5), issuerID[:])},
			kind: "StockClassSharesAdjusted",
			want: map[string]any{"stockClassId": stockClassUUID, "newSharesAuthorized": "0.000005", "issuerId": issuerUUID},
		},
		{
			name: "stock plan created",
			ev:   events.RawEvent{Discriminator: events.StockPlanCreated, Data: concat(securityID[:], le64(7_000_000), issuerID[:])},
			kind: "StockPlanCreated",
			want: map[string]any{"id": securityUUID, "sharesReserved": "7.000000", "issuerId": issuerUUID},
		},
		{
			name: "stock plan shares adjusted",
			ev:   events.RawEvent{Discriminator: events.StockPlanSharesAdjusted, Data: concat(securityID[:], le64(8_000_000))},
			kind: "StockPlanSharesAdjusted",
			want: map[string]any{"id": securityUUID, "newSharesReserved": "8.000000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := events.DecodeEvent(tt.ev)
			require.NoError(t, err)
			require.Equal(t, tt.kind, rec.Kind)
			require.Equal(t, tt.want, rec.Map())
		})
	}
}

func TestLifecycleEventsRequireIssuer(t *testing.T) {
	tests := []struct {
		name string
		ev   events.RawEvent
	}{
		{
			name: "stakeholder created",
			ev:   events.RawEvent{Discriminator: events.StakeholderCreated, Data: stakeholderID[:]},
		},
		{
			name: "stock class shares adjusted",
			ev:   events.RawEvent{Discriminator: events.StockClassSharesAdjusted, Data: concat(stockClassID[:], le64(5))},
		},
		{
			name: "stock plan created",
			ev:   events.RawEvent{Discriminator: events.StockPlanCreated, Data: concat(securityID[:], le64(7_000_000))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := events.DecodeEvent(tt.ev)
			require.ErrorIs(t, err, events.ErrSchemaMismatch)
		})
	}
}

func TestDecodeEventUnknownDiscriminator(t *testing.T) {
	rec, err := events.DecodeEvent(events.RawEvent{Discriminator: [8]byte{9, 9, 9, 9, 9, 9, 9, 9}, Data: []byte{1}})
	require.NoError(t, err)
	require.True(t, rec.IsUnknown())
}

func TestEncodeEventRoundTrip(t *testing.T) {
	values := map[string]string{
		"stockClassId":  stockClassUUID,
		"securityId":    securityUUID,
		"stakeholderId": stakeholderUUID,
		"quantity":      "100",
		"sharePrice":    "1.5",
		"issuerId":      issuerUUID,
	}

	ev, err := events.EncodeEvent(events.SchemaStockIssuance, issuerID, values)
	require.NoError(t, err)
	require.Equal(t, events.TxCreated, ev.Discriminator)

	rec, err := events.DecodeEvent(ev)
	require.NoError(t, err)
	require.Equal(t, "StockIssued", rec.Kind)
	require.Equal(t, "TX_STOCK_ISSUANCE", rec.OCFType)
	require.Equal(t, issuerUUID, rec.IssuerID)
	require.Equal(t, "100.000000", rec.Text("quantity"))
	require.Equal(t, "1.500000", rec.Text("sharePrice"))

	ev, err = events.EncodeEvent(events.SchemaStockClassCreated, issuerID, map[string]string{
		"id":                      stockClassUUID,
		"classType":               "PREFERRED",
		"pricePerShare":           "2",
		"initialSharesAuthorized": "10",
		"issuerId":                issuerUUID,
	})
	require.NoError(t, err)
	require.Equal(t, events.StockClassCreated, ev.Discriminator)

	rec, err = events.DecodeEvent(ev)
	require.NoError(t, err)
	require.Equal(t, "PREFERRED", rec.Text("classType"))
	require.Equal(t, issuerUUID, rec.IssuerID)

	_, err = events.EncodeEvent(events.SchemaStockClassCreated, issuerID, map[string]string{
		"id":                      stockClassUUID,
		"classType":               "PREFERRED",
		"pricePerShare":           "2",
		"initialSharesAuthorized": "10",
	})
	require.ErrorIs(t, err, events.ErrSchemaMismatch)

	_, err = events.EncodeEvent(events.SchemaWarrantIssuance, issuerID, map[string]string{"stakeholderId": stakeholderUUID})
	require.ErrorIs(t, err, events.ErrSchemaMismatch)
}

func TestDecodeLogs(t *testing.T) {
	program := address.DefaultProgramID

	good, err := events.EncodeEvent(events.SchemaStakeholderCreated, issuerID, map[string]string{
		"id":       stakeholderUUID,
		"issuerId": issuerUUID,
	})
	require.NoError(t, err)
	bad := events.RawEvent{Discriminator: events.StockPlanCreated, Data: []byte{1, 2}}

	logs := []string{
		"Program " + program.String() + " invoke [1]",
		good.Encode(),
		bad.Encode(),
		"Program " + program.String() + " success",
	}

	records, err := events.DecodeLogs(program, logs)
	require.ErrorIs(t, err, events.ErrSchemaMismatch)
	require.Len(t, records, 1)
	require.Equal(t, "StakeholderCreated", records[0].Kind)
	require.Equal(t, issuerUUID, records[0].IssuerID)

	records, err = events.DecodeLogs(solana.SystemProgramID, logs)
	require.NoError(t, err)
	require.Empty(t, records)
}
