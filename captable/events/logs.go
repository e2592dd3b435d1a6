package events

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/opencaptable/ocp-solana/captable/ident"
)

// Event discriminators: sha256("event:<Name>")[:8].
var (
	TxCreated                = eventDiscriminator("TxCreated")
	StakeholderCreated       = eventDiscriminator("StakeholderCreated")
	StockClassCreated        = eventDiscriminator("StockClassCreated")
	StockClassSharesAdjusted = eventDiscriminator("StockClassSharesAdjusted")
	StockPlanCreated         = eventDiscriminator("StockPlanCreated")
	StockPlanSharesAdjusted  = eventDiscriminator("StockPlanSharesAdjusted")
)

var lifecycleSchemas = map[bin.TypeID]Schema{
	StakeholderCreated:       SchemaStakeholderCreated,
	StockClassCreated:        SchemaStockClassCreated,
	StockClassSharesAdjusted: SchemaStockClassSharesAdjusted,
	StockPlanCreated:         SchemaStockPlanCreated,
	StockPlanSharesAdjusted:  SchemaStockPlanSharesAdjusted,
}

func eventDiscriminator(name string) bin.TypeID {
	return bin.SighashTypeID("event", name)
}

const (
	programDataPrefix = "Program data: "
	programPrefix     = "Program "
)

// RawEvent is one event emitted by the program, split into discriminator
// and borsh body.
type RawEvent struct {
	Discriminator bin.TypeID
	Data          []byte
}

// ParseLogs extracts the events emitted by programID from a transaction's
// log messages. Only "Program data:" lines written while programID is the
// innermost running program are kept, so events of other programs invoked
// through CPI are ignored. Malformed lines are reported in the returned
// error; well-formed events are returned regardless.
func ParseLogs(programID solana.PublicKey, logs []string) ([]RawEvent, error) {
	var (
		stack  []string
		out    []RawEvent
		errs   []error
		target = programID.String()
	)

	for i, line := range logs {
		switch {
		case strings.HasPrefix(line, programDataPrefix):
			if len(stack) == 0 || stack[len(stack)-1] != target {
				continue
			}
			ev, err := parseProgramData(strings.TrimPrefix(line, programDataPrefix))
			if err != nil {
				errs = append(errs, fmt.Errorf("log line %d: %w", i, err))
				continue
			}
			out = append(out, ev)

		case strings.HasPrefix(line, programPrefix):
			fields := strings.Fields(strings.TrimPrefix(line, programPrefix))
			if len(fields) < 2 {
				continue
			}
			switch {
			case fields[1] == "invoke":
				stack = append(stack, fields[0])
			case fields[1] == "success", strings.HasPrefix(fields[1], "failed"):
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
	}

	return out, errors.Join(errs...)
}

func parseProgramData(encoded string) (RawEvent, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return RawEvent{}, fmt.Errorf("%w: bad base64: %v", ErrSchemaMismatch, err)
	}
	if len(data) < 8 {
		return RawEvent{}, fmt.Errorf("%w: event of %d bytes has no discriminator", ErrSchemaMismatch, len(data))
	}
	return RawEvent{
		Discriminator: bin.TypeIDFromBytes(data[:8]),
		Data:          data[8:],
	}, nil
}

// Encode renders ev the way the program logs it.
func (ev RawEvent) Encode() string {
	data := make([]byte, 0, 8+len(ev.Data))
	data = append(data, ev.Discriminator[:]...)
	data = append(data, ev.Data...)
	return programDataPrefix + base64.StdEncoding.EncodeToString(data)
}

// DecodeEvent decodes a raw program event. TxCreated events are unwrapped
// and their payload decoded by Decode; lifecycle events are decoded
// directly. Unknown discriminators produce a KindUnknown record.
func DecodeEvent(ev RawEvent) (Record, error) {
	if ev.Discriminator == TxCreated {
		env, err := DecodeEnvelope(ev.Data)
		if err != nil {
			return Record{}, err
		}
		return Decode(env)
	}

	if s, ok := lifecycleSchemas[ev.Discriminator]; ok {
		return decodeSchema(s, ev.Data)
	}

	return decodeSchema(SchemaUnknown, ev.Data)
}

// DecodeEnvelope parses the body of a TxCreated event:
// tx_type u8, tx_data Vec<u8>, issuer_id [u8; 16].
func DecodeEnvelope(body []byte) (Envelope, error) {
	dec := bin.NewBorshDecoder(body)

	tag, err := dec.ReadUint8()
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: TxCreated tx_type: %v", ErrSchemaMismatch, err)
	}

	payload, err := dec.ReadByteSlice()
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: TxCreated tx_data: %v", ErrSchemaMismatch, err)
	}

	env := Envelope{
		Tag:     TxType(tag),
		Payload: append([]byte(nil), payload...),
	}

	b, err := dec.ReadNBytes(16)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: TxCreated issuer_id: %v", ErrSchemaMismatch, err)
	}
	env.IssuerID = ident.BinaryID(b)

	if dec.HasRemaining() {
		return Envelope{}, fmt.Errorf("%w: TxCreated has %d unexpected trailing bytes", ErrSchemaMismatch, dec.Remaining())
	}

	return env, nil
}

type txCreated struct {
	TxType   uint8
	TxData   []byte
	IssuerID ident.BinaryID
}

// EncodeEnvelope is the inverse of DecodeEnvelope.
func EncodeEnvelope(env Envelope) (RawEvent, error) {
	buf := new(bytes.Buffer)
	err := bin.NewBorshEncoder(buf).Encode(txCreated{
		TxType:   uint8(env.Tag),
		TxData:   env.Payload,
		IssuerID: env.IssuerID,
	})
	if err != nil {
		return RawEvent{}, fmt.Errorf("failed to encode TxCreated: %w", err)
	}
	return RawEvent{Discriminator: TxCreated, Data: buf.Bytes()}, nil
}

// DecodeLogs parses and decodes every event programID emitted in logs.
// Events that fail to decode are reported in the error and skipped.
func DecodeLogs(programID solana.PublicKey, logs []string) ([]Record, error) {
	raw, err := ParseLogs(programID, logs)
	errs := []error{err}

	records := make([]Record, 0, len(raw))
	for _, ev := range raw {
		r, err := DecodeEvent(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, r)
	}

	return records, errors.Join(errs...)
}

// EncodeEvent builds the raw event the program emits for a record of
// schema s: a TxCreated envelope for transaction schemas, a standalone
// event otherwise.
func EncodeEvent(s Schema, issuerID ident.BinaryID, values map[string]string) (RawEvent, error) {
	payload, err := EncodePayload(s, values)
	if err != nil {
		return RawEvent{}, err
	}

	if tag := TxTypeOf(s); tag != TxInvalid {
		return EncodeEnvelope(Envelope{Tag: tag, Payload: payload, IssuerID: issuerID})
	}

	for disc, ls := range lifecycleSchemas {
		if ls == s {
			return RawEvent{Discriminator: disc, Data: payload}, nil
		}
	}
	return RawEvent{}, fmt.Errorf("%w: schema %s has no event", ErrSchemaMismatch, s)
}
