package events

import (
	"fmt"

	"github.com/opencaptable/ocp-solana/captable/ident"
)

// Envelope is the content of a TxCreated event: a transaction kind, the
// borsh payload of the matching event struct and the emitting issuer.
type Envelope struct {
	Tag     TxType
	Payload  []byte
	IssuerID ident.BinaryID
}

// Schema identifies a payload layout.
type Schema uint8

const (
	SchemaUnknown Schema = iota
	SchemaStockIssuance
	SchemaConvertibleIssuance
	SchemaEquityCompensationIssuance
	SchemaEquityCompensationExercise
	SchemaWarrantIssuance

	SchemaStakeholderCreated
	SchemaStockClassCreated
	SchemaStockClassSharesAdjusted
	SchemaStockPlanCreated
	SchemaStockPlanSharesAdjusted
)

type schemaDef struct {
	kind    string
	ocfType string
	fields  layout
}

var schemas = map[Schema]schemaDef{
	SchemaStockIssuance: {
		kind:    "StockIssued",
		ocfType: "TX_STOCK_ISSUANCE",
		fields: layout{
			{name: "stockClassId", kind: kindID},
			{name: "securityId", kind: kindID},
			{name: "stakeholderId", kind: kindID},
			{name: "quantity", kind: kindAmount},
			{name: "sharePrice", kind: kindAmount},
			{name: "issuerId", kind: kindID},
		},
	},
	SchemaConvertibleIssuance: {
		kind:    "ConvertibleIssued",
		ocfType: "TX_CONVERTIBLE_ISSUANCE",
		fields: layout{
			{name: "stakeholderId", kind: kindID},
			{name: "securityId", kind: kindID},
			{name: "investmentAmount", kind: kindAmount},
		},
	},
	SchemaEquityCompensationIssuance: {
		kind:    "EquityCompensationIssued",
		ocfType: "TX_EQUITY_COMPENSATION_ISSUANCE",
		fields: layout{
			{name: "securityId", kind: kindID},
			{name: "stakeholderId", kind: kindID},
			{name: "stockClassId", kind: kindID},
			{name: "stockPlanId", kind: kindID},
			{name: "quantity", kind: kindAmount},
		},
	},
	SchemaEquityCompensationExercise: {
		kind:    "EquityCompensationExercised",
		ocfType: "TX_EQUITY_COMPENSATION_EXERCISE",
		fields: layout{
			{name: "equityCompSecurityId", kind: kindID},
			{name: "resultingStockSecurityId", kind: kindID},
			{name: "quantity", kind: kindAmount},
		},
	},
	SchemaWarrantIssuance: {
		kind:    "WarrantIssued",
		ocfType: "TX_WARRANT_ISSUANCE",
		fields: layout{
			{name: "stakeholderId", kind: kindID},
			{name: "securityId", kind: kindID},
			{name: "quantity", kind: kindAmount},
		},
	},

	SchemaStakeholderCreated: {
		kind: "StakeholderCreated",
		fields: layout{
			{name: "id", kind: kindID},
			{name: "issuerId", kind: kindID},
		},
	},
	SchemaStockClassCreated: {
		kind: "StockClassCreated",
		fields: layout{
			{name: "id", kind: kindID},
			{name: "classType", kind: kindString},
			{name: "pricePerShare", kind: kindAmount},
			{name: "initialSharesAuthorized", kind: kindAmount},
			{name: "issuerId", kind: kindID},
		},
	},
	SchemaStockClassSharesAdjusted: {
		kind:    "StockClassSharesAdjusted",
		ocfType: "TX_STOCK_CLASS_AUTHORIZED_SHARES_ADJUSTMENT",
		fields: layout{
			{name: "stockClassId", kind: kindID},
			{name: "newSharesAuthorized", kind: kindAmount},
			{name: "issuerId", kind: kindID},
		},
	},
	SchemaStockPlanCreated: {
		kind: "StockPlanCreated",
		fields: layout{
			{name: "id", kind: kindID},
			{name: "sharesReserved", kind: kindAmount},
			{name: "issuerId", kind: kindID},
		},
	},
	SchemaStockPlanSharesAdjusted: {
		kind:    "StockPlanSharesAdjusted",
		ocfType: "TX_STOCK_PLAN_POOL_ADJUSTMENT",
		fields: layout{
			{name: "id", kind: kindID},
			{name: "newSharesReserved", kind: kindAmount},
		},
	},
}

func (s Schema) String() string {
	if def, ok := schemas[s]; ok {
		return def.kind
	}
	return KindUnknown
}

// OCFType returns the Open Cap Format transaction type for s, if any.
func (s Schema) OCFType() string {
	return schemas[s].ocfType
}

// Classify maps the envelope tag to its payload schema. Tags without a known
// payload layout map to SchemaUnknown.
func Classify(env Envelope) Schema {
	switch env.Tag {
	case TxStockIssuance:
		return SchemaStockIssuance
	case TxConvertibleIssuance:
		return SchemaConvertibleIssuance
	case TxEquityCompensationIssuance:
		return SchemaEquityCompensationIssuance
	case TxEquityCompensationExercise:
		return SchemaEquityCompensationExercise
	case TxWarrantIssuance:
		return SchemaWarrantIssuance
	default:
		return SchemaUnknown
	}
}

// TxTypeOf is the envelope tag carrying payloads of schema s, or TxInvalid
// for schemas that are emitted as standalone events.
func TxTypeOf(s Schema) TxType {
	for _, t := range []TxType{
		TxStockIssuance,
		TxConvertibleIssuance,
		TxEquityCompensationIssuance,
		TxEquityCompensationExercise,
		TxWarrantIssuance,
	} {
		if Classify(Envelope{Tag: t}) == s {
			return t
		}
	}
	return TxInvalid
}

// EncodePayload writes values in the layout of schema s. Identifiers are
// UUID strings and amounts decimal strings.
func EncodePayload(s Schema, values map[string]string) ([]byte, error) {
	def, ok := schemas[s]
	if !ok {
		return nil, fmt.Errorf("%w: no layout for schema %d", ErrSchemaMismatch, s)
	}
	data, err := def.fields.encode(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.kind, err)
	}
	return data, nil
}

// Decode parses the envelope payload with the schema selected by Classify.
// Unknown schemas are returned as a record of kind KindUnknown holding the
// raw payload; no parsing is attempted.
func Decode(env Envelope) (Record, error) {
	rec, err := decodeSchema(Classify(env), env.Payload)
	if err != nil {
		return Record{}, err
	}
	rec.IssuerID = ident.ToUUID(env.IssuerID)
	return rec, nil
}

func decodeSchema(s Schema, payload []byte) (Record, error) {
	def, ok := schemas[s]
	if !ok {
		return Record{
			Kind: KindUnknown,
			Raw:  append([]byte(nil), payload...),
		}, nil
	}

	fields, err := def.fields.decode(payload)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", def.kind, err)
	}

	rec := Record{
		Kind:    def.kind,
		OCFType: def.ocfType,
		Fields:  fields,
	}
	if id, ok := rec.Get("issuerId"); ok {
		rec.IssuerID = id.(string)
	}
	return rec, nil
}
