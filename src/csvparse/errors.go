package csvparse

import "errors"

var (
	// ErrSchema means no header matched the mandatory classification role.
	ErrSchema = errors.New("no classification column found")
	// ErrEmptyDataset means no data line survived parsing.
	ErrEmptyDataset = errors.New("no valid data rows found")
	// ErrUnterminatedQuote is returned by ParseLineStrict for an unclosed quoted field.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")
)
