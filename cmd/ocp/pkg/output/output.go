package output

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/opencaptable/ocp-solana/captable/client"
	"github.com/opencaptable/ocp-solana/captable/events"
)

// Amount renders a decimal string with thousands separators and without
// trailing fractional zeros. Anything that is not a plain decimal is
// returned unchanged.
func Amount(s string) string {
	whole, frac, _ := strings.Cut(s, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return s
	}
	out := humanize.BigComma(n)
	if frac = strings.TrimRight(frac, "0"); frac != "" {
		out += "." + frac
	}
	return out
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// Fields prints name/value pairs, one per row.
func Fields(w io.Writer, rows [][2]string) {
	table := newTable(w, "Field", "Value")
	for _, r := range rows {
		table.Append([]string{r[0], r[1]})
	}
	table.Render()
}

// Result prints where a call landed followed by the events it emitted.
func Result(w io.Writer, res *client.Result) {
	fmt.Fprintln(w, "Address:  ", res.Address.Address)
	fmt.Fprintln(w, "Signature:", res.Signature)
	fmt.Fprintln(w, "Slot:     ", humanize.Comma(int64(res.Slot)))

	if len(res.Events) == 0 {
		return
	}
	fmt.Fprintln(w)
	Events(w, res.Events)
}

// Events prints one row per event field.
func Events(w io.Writer, records []events.Record) {
	table := newTable(w, "Event", "Field", "Value")
	for _, rec := range records {
		kind := rec.Kind
		if rec.OCFType != "" {
			kind = fmt.Sprintf("%s (%s)", rec.Kind, rec.OCFType)
		}
		m := rec.Map()
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		if rec.IsUnknown() {
			table.Append([]string{kind, "raw", fmt.Sprintf("%x", rec.Raw)})
			continue
		}
		for _, name := range names {
			table.Append([]string{kind, name, value(m[name])})
			kind = ""
		}
	}
	table.Render()
}

func value(v any) string {
	switch v := v.(type) {
	case string:
		if isAmount(v) {
			return Amount(v)
		}
		return v
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprint(v)
	}
}

// isAmount matches the fixed six decimal rendering used for amounts.
func isAmount(s string) bool {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 6 || whole == "" {
		return false
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
