package csvparse

import (
	"fmt"
	"strconv"
	"strings"

	"tweet-sentiment/src/tweets"
)

// derivedKeywordWords is how many leading words of the text form a derived keyword.
const derivedKeywordWords = 3

// Schema is the parsed header of one input: its trimmed column names and the
// role assignment inferred from them.
type Schema struct {
	Header []string
	Roles  ColumnRoleMap
}

// Width is the minimum number of fields a data line needs to be kept.
func (s Schema) Width() int {
	return len(s.Header)
}

// ParseHeader parses a header line and infers column roles from it.
func ParseHeader(line string) (Schema, error) {
	header := ParseLine(line)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	roles, err := InferRoles(header)
	return Schema{Header: header, Roles: roles}, err
}

// SplitLines splits text on newlines, dropping a leading byte order mark and the
// carriage return of CRLF line endings.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseCSV parses a whole export: the first non-blank line is the header, every
// following line is a data row. It fails with ErrSchema when no classification
// column exists and with ErrEmptyDataset when the input is blank or no row survives.
func ParseCSV(text string) ([]tweets.Record, error) {
	_, records, err := ParseCSVWithSchema(text)
	return records, err
}

// ParseCSVWithSchema is ParseCSV that also returns the header schema it inferred.
func ParseCSVWithSchema(text string) (Schema, []tweets.Record, error) {
	lines := SplitLines(text)
	start := firstNonBlank(lines)
	if start < 0 {
		return Schema{}, nil, fmt.Errorf("csv file is empty: %w", ErrEmptyDataset)
	}
	schema, err := ParseHeader(lines[start])
	if err != nil {
		return schema, nil, err
	}
	records, err := ParseRows(lines[start+1:], schema)
	return schema, records, err
}

// ParseRows turns data lines into records in input order. Blank lines and lines
// with fewer fields than the header are skipped; extra trailing fields are ignored.
func ParseRows(lines []string, schema Schema) ([]tweets.Record, error) {
	records := make([]tweets.Record, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := ParseLine(line)
		if len(fields) < schema.Width() {
			continue
		}
		records = append(records, buildRecord(fields, schema.Roles))
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return records, nil
}

func buildRecord(fields []string, roles ColumnRoleMap) tweets.Record {
	str := func(r Role) string {
		i := roles.Index(r)
		if i == Absent || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	num := func(r Role) int {
		return parseLeadingInt(str(r))
	}

	rec := tweets.Record{
		Classification: str(Classification),
		Keyword:        str(Keyword),
		FullText:       str(FullText),
		CreatedAt:      str(CreatedAt),
		Username:       str(Username),
		UserID:         str(UserID),
		ConversationID: str(ConversationID),
		FavoriteCount:  num(FavoriteCount),
		ReplyCount:     num(ReplyCount),
		RetweetCount:   num(RetweetCount),
		QuoteCount:     num(QuoteCount),
		Language:       str(Language),
		Location:       str(Location),
		TweetURL:       str(TweetURL),
		ImageURL:       str(ImageURL),
	}
	if rec.Keyword == "" && rec.FullText != "" {
		rec.Keyword = DeriveKeyword(rec.FullText)
	}
	return rec
}

// DeriveKeyword returns the first three whitespace-separated words of text joined
// by single spaces.
func DeriveKeyword(text string) string {
	words := strings.Fields(text)
	if len(words) > derivedKeywordWords {
		words = words[:derivedKeywordWords]
	}
	return strings.Join(words, " ")
}

// parseLeadingInt reads an optional sign followed by decimal digits from the start
// of s. Anything unparsable, including overflow, yields 0.
func parseLeadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func firstNonBlank(lines []string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			return i
		}
	}
	return -1
}
