package pipeline

import (
	"math"
	"sort"

	"tweet-sentiment/src/tweets"
)

// DefaultTopN is how many keywords a category summary lists.
const DefaultTopN = 5

// RankedKeyword holds a keyword and its count.
type RankedKeyword struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// CategorySummary is the dashboard card for one category.
type CategorySummary struct {
	Category    tweets.Category `json:"category"`
	Count       int             `json:"count"`
	Percent     float64         `json:"percent"`
	TopKeywords []RankedKeyword `json:"topKeywords"`
}

// DashboardView is the presentation-ready summary of a snapshot.
type DashboardView struct {
	TotalTweets int                                      `json:"totalTweets"`
	Categories  []CategorySummary                        `json:"categories"`
	Tweets      map[tweets.Category][]tweets.TweetDetail `json:"tweets"`
}

// Category returns the summary card for c.
func (v DashboardView) Category(c tweets.Category) (CategorySummary, bool) {
	for _, cs := range v.Categories {
		if cs.Category == c {
			return cs, true
		}
	}
	return CategorySummary{}, false
}

// KeywordFilter hides keywords from ranked lists.
type KeywordFilter interface {
	IsFiltered(keyword string) bool
}

// Summarizer turns snapshots into dashboard views.
// The zero value lists DefaultTopN keywords and hides nothing.
type Summarizer struct {
	TopN    int
	Exclude KeywordFilter
}

// TopKeywords returns at most limit keywords ordered by count, highest first.
// Keywords with equal counts keep their first-seen order. A limit of zero or
// less means DefaultTopN.
func TopKeywords(freq *KeywordCounter, limit int) []RankedKeyword {
	return Summarizer{TopN: limit}.TopKeywords(freq)
}

// TopKeywords ranks freq, skipping excluded keywords.
func (s Summarizer) TopKeywords(freq *KeywordCounter) []RankedKeyword {
	limit := s.TopN
	if limit <= 0 {
		limit = DefaultTopN
	}

	ranked := make([]RankedKeyword, 0, freq.Len())
	freq.Each(func(kw string, n int) {
		if s.Exclude != nil && s.Exclude.IsFiltered(kw) {
			return
		}
		ranked = append(ranked, RankedKeyword{Keyword: kw, Count: n})
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// FormatSummary builds the dashboard view of s with the default settings.
func FormatSummary(s *Snapshot) DashboardView {
	return Summarizer{}.Format(s)
}

// Format builds the dashboard view of snap. It does not modify snap.
func (s Summarizer) Format(snap *Snapshot) DashboardView {
	if snap == nil {
		snap = NewSnapshot()
	}
	view := DashboardView{
		TotalTweets: snap.TotalTweets,
		Categories:  make([]CategorySummary, 0, len(tweets.Categories)),
		Tweets:      make(map[tweets.Category][]tweets.TweetDetail, len(tweets.Categories)),
	}
	for _, c := range tweets.Categories {
		count := snap.Classifications[c]
		view.Categories = append(view.Categories, CategorySummary{
			Category:    c,
			Count:       count,
			Percent:     percentOf(count, snap.TotalTweets),
			TopKeywords: s.TopKeywords(snap.KeywordStats[c]),
		})
		list := snap.Tweets[c]
		if list == nil {
			list = []tweets.TweetDetail{}
		}
		view.Tweets[c] = list
	}
	return view
}

// percentOf returns count as a percentage of total rounded to one decimal,
// or 0 when total is 0.
func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
