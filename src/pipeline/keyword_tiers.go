package pipeline

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// TierFilter answers membership for one keyword tier.
type TierFilter interface {
	Contains(keyword string) bool
}

// SetFilter implements TierFilter using a simple hash set
type SetFilter struct {
	keywords map[string]bool
}

func (sf *SetFilter) Contains(keyword string) bool {
	return sf.keywords[keyword]
}

// BloomFilterWrapper implements TierFilter using a Bloom filter
type BloomFilterWrapper struct {
	filter *bloom.BloomFilter
}

func (bf *BloomFilterWrapper) Contains(keyword string) bool {
	return bf.filter.TestString(keyword)
}

// TierOptions tunes filter construction. The zero value uses the defaults.
type TierOptions struct {
	// BloomThreshold is the tier size from which a Bloom filter replaces the hash set.
	BloomThreshold int
	// FalsePositiveRate is the target rate for Bloom-backed tiers.
	FalsePositiveRate float64
}

const (
	defaultBloomThreshold    = 1000
	defaultFalsePositiveRate = 0.01
)

// TierResult holds the keyword tiers of one category, most frequent tier first.
type TierResult struct {
	Filters []TierFilter
	Tiers   [][]string
}

// TierOf returns the index of the first tier whose filter contains keyword, or -1.
// Bloom-backed tiers may report false positives.
func (r TierResult) TierOf(keyword string) int {
	for i, f := range r.Filters {
		if f.Contains(keyword) {
			return i
		}
	}
	return -1
}

// BuildKeywordTiers divides keywords into F tiers so that each tier accounts for
// roughly the same number of occurrences (not distinct keywords). Frequent keywords
// land in the early, small tiers; the long tail fills the last ones.
// Small tiers use hash sets, large tiers use Bloom filters.
func BuildKeywordTiers(counts *KeywordCounter, F int, opts TierOptions) TierResult {
	if F <= 0 {
		F = 1
	}
	if opts.BloomThreshold <= 0 {
		opts.BloomThreshold = defaultBloomThreshold
	}
	if opts.FalsePositiveRate <= 0 || opts.FalsePositiveRate >= 1 {
		opts.FalsePositiveRate = defaultFalsePositiveRate
	}

	// Sort by count descending, first-seen order among equals
	ranked := make([]RankedKeyword, 0, counts.Len())
	counts.Each(func(kw string, n int) {
		ranked = append(ranked, RankedKeyword{Keyword: kw, Count: n})
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	C := counts.GetTotal() / F

	tiers := make([][]string, F)
	tierIdx := 0
	runningTotal := 0
	for _, rk := range ranked {
		if tierIdx < F-1 && runningTotal >= (tierIdx+1)*C {
			tierIdx++
		}
		tiers[tierIdx] = append(tiers[tierIdx], rk.Keyword)
		runningTotal += rk.Count
	}

	filters := make([]TierFilter, F)
	var wg sync.WaitGroup
	for i := 0; i < F; i++ {
		wg.Add(1)
		go func(tierIndex int) {
			defer wg.Done()
			members := tiers[tierIndex]
			if len(members) < opts.BloomThreshold {
				sf := &SetFilter{keywords: make(map[string]bool, len(members))}
				for _, kw := range members {
					sf.keywords[kw] = true
				}
				filters[tierIndex] = sf
				return
			}
			bf := bloom.NewWithEstimates(uint(len(members)), opts.FalsePositiveRate)
			for _, kw := range members {
				bf.AddString(kw)
			}
			filters[tierIndex] = &BloomFilterWrapper{filter: bf}
		}(i)
	}
	wg.Wait()

	for i := 0; i < F; i++ {
		slog.Debug("Keyword tier built", "tier", i+1, "keywords", len(tiers[i]), "target_occurrences", C)
	}

	return TierResult{Filters: filters, Tiers: tiers}
}
