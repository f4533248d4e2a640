package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tweet-sentiment/src/tweets"
)

// Snapshot is the folded result over one record sequence.
//
// Classifications always holds all three categories. TotalTweets counts records
// with text, whatever their label, so it can differ from the category sum.
type Snapshot struct {
	TotalTweets     int                                      `json:"totalTweets"`
	Classifications map[tweets.Category]int                  `json:"classifications"`
	KeywordStats    map[tweets.Category]*KeywordCounter      `json:"keywordStats"`
	Tweets          map[tweets.Category][]tweets.TweetDetail `json:"tweets"`
}

// NewSnapshot returns an empty snapshot with every category initialised.
func NewSnapshot() *Snapshot {
	s := &Snapshot{
		Classifications: make(map[tweets.Category]int, len(tweets.Categories)),
		KeywordStats:    make(map[tweets.Category]*KeywordCounter, len(tweets.Categories)),
		Tweets:          make(map[tweets.Category][]tweets.TweetDetail, len(tweets.Categories)),
	}
	for _, c := range tweets.Categories {
		s.Classifications[c] = 0
		s.KeywordStats[c] = NewKeywordCounter()
		s.Tweets[c] = []tweets.TweetDetail{}
	}
	return s
}

// Add folds a single record into the snapshot.
func (s *Snapshot) Add(r tweets.Record) {
	if r.FullText != "" {
		s.TotalTweets++
	}
	c, ok := tweets.ParseCategory(r.Classification)
	if !ok {
		return
	}
	s.Classifications[c]++
	if r.Keyword != "" {
		s.KeywordStats[c].Increment(r.Keyword)
	}
	s.Tweets[c] = append(s.Tweets[c], r.Detail())
}

// Aggregate folds records, in order, into a fresh snapshot. Records whose label is
// not a fixed category only contribute to TotalTweets.
func Aggregate(records []tweets.Record) *Snapshot {
	s := NewSnapshot()
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Merge combines the snapshots of two contiguous partitions, a before b.
// Neither input is modified.
func Merge(a, b *Snapshot) *Snapshot {
	out := NewSnapshot()
	out.absorb(a)
	out.absorb(b)
	return out
}

// absorb appends part onto s in place.
func (s *Snapshot) absorb(part *Snapshot) {
	if part == nil {
		return
	}
	s.TotalTweets += part.TotalTweets
	for _, c := range tweets.Categories {
		s.Classifications[c] += part.Classifications[c]
		part.KeywordStats[c].Each(s.KeywordStats[c].Add)
		s.Tweets[c] = append(s.Tweets[c], part.Tweets[c]...)
	}
}

// AggregatePartitions splits records into up to parts contiguous partitions, folds
// them concurrently and merges the results in partition order. The result equals
// Aggregate(records).
func AggregatePartitions(ctx context.Context, records []tweets.Record, parts int) (*Snapshot, error) {
	if parts <= 1 || len(records) < 2 {
		return Aggregate(records), nil
	}
	parts = min(parts, len(records))

	size := (len(records) + parts - 1) / parts
	results := make([]*Snapshot, parts)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < parts; i++ {
		i := i
		lo := min(i*size, len(records))
		hi := min(lo+size, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Aggregate(records[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate partitions: %w", err)
	}

	out := NewSnapshot()
	for _, r := range results {
		out.absorb(r)
	}
	return out, nil
}
