package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// IgnoreList holds keywords that should be hidden from ranked keyword lists.
//
// Entries are matched case-insensitively with whitespace collapsed, so "Hello  World"
// and "hello world" are the same entry. An entry ending in "*" matches every keyword
// with that prefix.
type IgnoreList struct {
	keywords map[string]bool
	prefixes []string
	mu       sync.RWMutex
}

// NewIgnoreList creates a new empty IgnoreList
func NewIgnoreList() *IgnoreList {
	return &IgnoreList{
		keywords: make(map[string]bool),
	}
}

// LoadFromFile loads ignored keywords from a file.
// Each line holds one keyword, lines starting with # are comments
func (il *IgnoreList) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open ignore list %s: %w", filename, err)
	}
	defer file.Close()

	if err := il.Load(file); err != nil {
		return fmt.Errorf("ignore list %s: %w", filename, err)
	}
	return nil
}

// Load reads ignored keywords from r, one per line.
func (il *IgnoreList) Load(r io.Reader) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		il.addLocked(line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading at line %d: %w", lineNum, err)
	}
	return nil
}

// IsFiltered reports whether keyword should be hidden.
func (il *IgnoreList) IsFiltered(keyword string) bool {
	il.mu.RLock()
	defer il.mu.RUnlock()

	kw := normalize(keyword)
	if il.keywords[kw] {
		return true
	}
	for _, p := range il.prefixes {
		if strings.HasPrefix(kw, p) {
			return true
		}
	}
	return false
}

// Len returns the number of entries, prefixes included.
func (il *IgnoreList) Len() int {
	il.mu.RLock()
	defer il.mu.RUnlock()
	return len(il.keywords) + len(il.prefixes)
}

// Add adds a single keyword or prefix pattern.
func (il *IgnoreList) Add(keyword string) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.addLocked(keyword)
}

// Remove removes a keyword or prefix pattern.
func (il *IgnoreList) Remove(keyword string) {
	il.mu.Lock()
	defer il.mu.Unlock()

	kw := normalize(keyword)
	if p, ok := strings.CutSuffix(kw, "*"); ok {
		for i, existing := range il.prefixes {
			if existing == p {
				il.prefixes = append(il.prefixes[:i], il.prefixes[i+1:]...)
				break
			}
		}
		return
	}
	delete(il.keywords, kw)
}

func (il *IgnoreList) addLocked(keyword string) {
	kw := normalize(keyword)
	if kw == "" {
		return
	}
	if p, ok := strings.CutSuffix(kw, "*"); ok {
		if p != "" {
			il.prefixes = append(il.prefixes, p)
		}
		return
	}
	il.keywords[kw] = true
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
