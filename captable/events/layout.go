package events

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/opencaptable/ocp-solana/captable/amount"
	"github.com/opencaptable/ocp-solana/captable/ident"
)

// ErrSchemaMismatch is returned when a payload does not have exactly the
// shape its schema declares.
var ErrSchemaMismatch = errors.New("schema mismatch")

type fieldKind uint8

const (
	// 16-byte identifier, rendered as a UUID.
	kindID fieldKind = iota
	// u64 scaled by 10^6, rendered as a decimal string.
	kindAmount
	// borsh string.
	kindString
)

type fieldSpec struct {
	name string
	kind fieldKind
}

type layout []fieldSpec

// decode parses data field by field. The whole payload must be consumed.
func (l layout) decode(data []byte) ([]Field, error) {
	dec := bin.NewBorshDecoder(data)
	fields := make([]Field, 0, len(l))

	for _, f := range l {
		v, err := readField(dec, f.kind)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrSchemaMismatch, f.name, err)
		}
		fields = append(fields, Field{Name: f.name, Value: v})
	}

	if dec.HasRemaining() {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSchemaMismatch, dec.Remaining())
	}

	return fields, nil
}

func readField(dec *bin.Decoder, kind fieldKind) (any, error) {
	switch kind {
	case kindID:
		b, err := dec.ReadNBytes(16)
		if err != nil {
			return nil, err
		}
		return ident.ToUUID(ident.BinaryID(b)), nil
	case kindAmount:
		v, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		return amount.FromWire(v), nil
	case kindString:
		return dec.ReadString()
	default:
		return nil, fmt.Errorf("unsupported field kind %d", kind)
	}
}

// encode is the inverse of decode. Every field must be present.
func (l layout) encode(values map[string]string) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	for _, f := range l {
		v, ok := values[f.name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %s", ErrSchemaMismatch, f.name)
		}
		err := writeField(enc, f.kind, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
	}

	return buf.Bytes(), nil
}

func writeField(enc *bin.Encoder, kind fieldKind, v string) error {
	switch kind {
	case kindID:
		id, err := ident.ToBinaryID(v)
		if err != nil {
			return err
		}
		return enc.WriteBytes(id[:], false)
	case kindAmount:
		raw, err := amount.Wire(v)
		if err != nil {
			return err
		}
		return enc.WriteUint64(raw, bin.LE)
	case kindString:
		return enc.WriteString(v)
	default:
		return fmt.Errorf("unsupported field kind %d", kind)
	}
}
