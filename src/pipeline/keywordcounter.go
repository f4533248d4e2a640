package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// KeywordCounter keeps track of how many times each keyword appears in one category.
// Keywords remember the order in which they were first seen; ranking relies on that
// order to break ties.
//
// A KeywordCounter is not safe for concurrent use. Each snapshot owns its counters.
type KeywordCounter struct {
	counts     map[string]int
	order      []string
	totalCount int
}

// NewKeywordCounter creates a new KeywordCounter with an empty map.
func NewKeywordCounter() *KeywordCounter {
	return &KeywordCounter{counts: make(map[string]int)}
}

// Increment adds one occurrence of keyword.
func (kc *KeywordCounter) Increment(keyword string) {
	kc.Add(keyword, 1)
}

// Add adds n occurrences of keyword, registering it on first sight.
func (kc *KeywordCounter) Add(keyword string, n int) {
	if kc.counts == nil {
		kc.counts = make(map[string]int)
	}
	if _, seen := kc.counts[keyword]; !seen {
		kc.order = append(kc.order, keyword)
	}
	kc.counts[keyword] += n
	kc.totalCount += n
}

// GetCount returns the count for a specific keyword.
func (kc *KeywordCounter) GetCount(keyword string) int {
	if kc == nil {
		return 0
	}
	return kc.counts[keyword]
}

// Len returns the number of distinct keywords.
func (kc *KeywordCounter) Len() int {
	if kc == nil {
		return 0
	}
	return len(kc.order)
}

// GetTotal returns the sum of all counts.
func (kc *KeywordCounter) GetTotal() int {
	if kc == nil {
		return 0
	}
	return kc.totalCount
}

// Keywords returns the keywords in first-seen order.
func (kc *KeywordCounter) Keywords() []string {
	if kc == nil {
		return nil
	}
	out := make([]string, len(kc.order))
	copy(out, kc.order)
	return out
}

// Each calls fn for every keyword in first-seen order.
func (kc *KeywordCounter) Each(fn func(keyword string, count int)) {
	if kc == nil {
		return
	}
	for _, kw := range kc.order {
		fn(kw, kc.counts[kw])
	}
}

// Counts returns a copy of the keyword counts as a plain map.
func (kc *KeywordCounter) Counts() map[string]int {
	snapshot := make(map[string]int, kc.Len())
	kc.Each(func(kw string, n int) {
		snapshot[kw] = n
	})
	return snapshot
}

// Clone returns an independent copy.
func (kc *KeywordCounter) Clone() *KeywordCounter {
	out := NewKeywordCounter()
	kc.Each(out.Add)
	return out
}

// MarshalJSON encodes the counter as a JSON object whose keys appear in first-seen order.
func (kc *KeywordCounter) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kw := range kc.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kw)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", kc.counts[kw])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (kc *KeywordCounter) UnmarshalJSON(data []byte) error {
	*kc = KeywordCounter{counts: make(map[string]int)}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("keyword counts: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("keyword counts: expected string key, got %v", tok)
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("keyword counts: value for %q: %w", key, err)
		}
		kc.Add(key, n)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
