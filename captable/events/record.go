package events

import (
	"fmt"
	"strings"
)

// Field is one decoded value. Identifiers, amounts and text all decode to
// strings.
type Field struct {
	Name  string
	Value any
}

// Record is a decoded event. Fields keep the on-wire order.
type Record struct {
	// Kind is the event struct name, or KindUnknown.
	Kind string
	// OCFType is the Open Cap Format transaction type, empty for events
	// that do not map to one.
	OCFType string
	// IssuerID is the issuer that emitted the event, empty when the event
	// does not carry one.
	IssuerID string
	Fields   []Field
	// Raw holds the undecoded payload of unknown events.
	Raw []byte
}

const KindUnknown = "unknown"

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Text returns the named field formatted as text, or "" when absent.
func (r Record) Text(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Map flattens the record into a name to value map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+1)
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	if r.IssuerID != "" {
		m["issuerId"] = r.IssuerID
	}
	return m
}

func (r Record) IsUnknown() bool {
	return r.Kind == KindUnknown
}

// Summary renders the record on one line.
func (r Record) Summary() string {
	sb := &strings.Builder{}
	sb.WriteString(r.Kind)
	if r.OCFType != "" {
		fmt.Fprintf(sb, " (%s)", r.OCFType)
	}
	for _, f := range r.Fields {
		fmt.Fprintf(sb, " %s=%v", f.Name, f.Value)
	}
	return sb.String()
}
