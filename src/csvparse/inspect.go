package csvparse

import (
	"errors"
	"fmt"
	"strings"
)

// StructureReport is the outcome of a structural pre-check of an export.
type StructureReport struct {
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
	Headers   []string `json:"headers,omitempty"`
	TotalRows int      `json:"totalRows,omitempty"`
}

// GetColumnNames returns the trimmed header fields of text. It never fails:
// empty input yields an empty slice.
func GetColumnNames(text string) (names []string) {
	defer func() {
		if recover() != nil {
			names = []string{}
		}
	}()

	lines := SplitLines(text)
	start := firstNonBlank(lines)
	if start < 0 {
		return []string{}
	}
	names = ParseLine(lines[start])
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names
}

// ValidateStructure checks that text has a header with a classification column
// and at least one data line wide enough to parse. It never returns an error;
// problems are reported in the result.
func ValidateStructure(text string) StructureReport {
	lines := SplitLines(text)
	start := firstNonBlank(lines)
	if start < 0 {
		return StructureReport{Error: "file is empty"}
	}

	schema, err := ParseHeader(lines[start])
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrSchema) {
			msg = "no classification column found (expected a header containing one of: " +
				strings.Join(roleRules[0].candidates, ", ") + ")"
		}
		return StructureReport{Error: msg, Headers: schema.Header}
	}

	rows, short := 0, 0
	for _, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(ParseLine(line)) < schema.Width() {
			short++
			continue
		}
		rows++
	}
	if rows == 0 {
		msg := ErrEmptyDataset.Error()
		if short > 0 {
			msg = fmt.Sprintf("%s (%d rows have fewer columns than the header)", msg, short)
		}
		return StructureReport{Error: msg, Headers: schema.Header}
	}
	return StructureReport{Valid: true, Headers: schema.Header, TotalRows: rows}
}
