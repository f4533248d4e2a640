package csvparse

import "strings"

// ParseLine splits one CSV line into raw fields.
//
// Commas inside double-quoted regions do not split. A double quote toggles quoted
// mode; two consecutive double quotes inside quoted mode produce one literal quote.
// The trailing field is always emitted, so a line without commas yields one field.
// Malformed quoting never fails: an unclosed quote runs to the end of the line.
func ParseLine(line string) []string {
	fields, _ := splitLine(line)
	return fields
}

// ParseLineStrict is ParseLine that rejects a line whose quoted region never closes.
func ParseLineStrict(line string) ([]string, error) {
	fields, inQuotes := splitLine(line)
	if inQuotes {
		return nil, ErrUnterminatedQuote
	}
	return fields, nil
}

// splitLine does the work for ParseLine and reports whether the line ended
// inside a quoted region.
func splitLine(line string) ([]string, bool) {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	fields = append(fields, current.String())
	return fields, inQuotes
}
