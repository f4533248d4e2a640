package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-sentiment/src/csvparse"
	"tweet-sentiment/src/tweets"
)

func sampleRecords() []tweets.Record {
	return []tweets.Record{
		{Classification: "Positif", Keyword: "bagus", FullText: "produk bagus sekali", Username: "ani"},
		{Classification: "Negatif", Keyword: "macet", FullText: "jalan macet lagi"},
		{Classification: "Positif", Keyword: "bagus", FullText: "bagus banget"},
		{Classification: "Promosi", Keyword: "diskon", FullText: "diskon 50%", CreatedAt: "2024-01-01"},
		{Classification: "netral", Keyword: "biasa", FullText: "biasa saja"},
		{Classification: "Positif", Keyword: "", FullText: ""},
		{Classification: "positif", Keyword: "huruf", FullText: "case matters"},
		{Classification: "Negatif", Keyword: "lambat", FullText: "lambat"},
	}
}

func TestAggregateKlasifikasiScenario(t *testing.T) {
	records, err := csvparse.ParseCSV("Klasifikasi,Keyword\nPositif,bagus\nNegatif,buruk\nPositif,bagus\n")
	require.NoError(t, err)

	snap := Aggregate(records)
	assert.Equal(t, 0, snap.TotalTweets)
	assert.Equal(t, map[tweets.Category]int{tweets.Positif: 2, tweets.Negatif: 1, tweets.Promosi: 0}, snap.Classifications)
	assert.Equal(t, map[string]int{"bagus": 2}, snap.KeywordStats[tweets.Positif].Counts())
	assert.Equal(t, map[string]int{"buruk": 1}, snap.KeywordStats[tweets.Negatif].Counts())
	assert.Equal(t, 0, snap.KeywordStats[tweets.Promosi].Len())
}

// TestAggregateCounting pins the loose/strict counting asymmetry.
//
// Rationale: TotalTweets counts every record with text, labelled or not, while the
// category maps only take the three fixed labels. Unknown labels and labels in a
// different case are dropped from the category maps without error.
func TestAggregateCounting(t *testing.T) {
	snap := Aggregate(sampleRecords())

	assert.Equal(t, 7, snap.TotalTweets)
	assert.Equal(t, 3, snap.Classifications[tweets.Positif])
	assert.Equal(t, 2, snap.Classifications[tweets.Negatif])
	assert.Equal(t, 1, snap.Classifications[tweets.Promosi])

	assert.Equal(t, []string{"bagus"}, snap.KeywordStats[tweets.Positif].Keywords())
	assert.Equal(t, 2, snap.KeywordStats[tweets.Positif].GetCount("bagus"))
	assert.Equal(t, []string{"macet", "lambat"}, snap.KeywordStats[tweets.Negatif].Keywords())

	positif := snap.Tweets[tweets.Positif]
	require.Len(t, positif, 3)
	assert.Equal(t, "produk bagus sekali", positif[0].FullText)
	assert.Equal(t, "ani", positif[0].Username)
	assert.Equal(t, tweets.Unknown, positif[0].CreatedAt)
	assert.Equal(t, "", positif[2].FullText)
	assert.Equal(t, sampleRecords()[5], positif[2].Record)

	promosi := snap.Tweets[tweets.Promosi]
	require.Len(t, promosi, 1)
	assert.Equal(t, "2024-01-01", promosi[0].CreatedAt)
	assert.Equal(t, tweets.Unknown, promosi[0].Username)
}

func TestAggregateEmpty(t *testing.T) {
	snap := Aggregate(nil)
	assert.Equal(t, 0, snap.TotalTweets)
	for _, c := range tweets.Categories {
		assert.Equal(t, 0, snap.Classifications[c])
		assert.NotNil(t, snap.KeywordStats[c])
		assert.NotNil(t, snap.Tweets[c])
	}
}

// TestAggregatePartitionsAssociative splits the input at every position and
// checks that merging the halves reproduces the single-pass result.
func TestAggregatePartitionsAssociative(t *testing.T) {
	records := sampleRecords()
	whole := Aggregate(records)

	for cut := 0; cut <= len(records); cut++ {
		t.Run(fmt.Sprintf("cut %d", cut), func(t *testing.T) {
			merged := Merge(Aggregate(records[:cut]), Aggregate(records[cut:]))
			assertSnapshotsEqual(t, whole, merged)
		})
	}

	// (a+b)+c == a+(b+c)
	a, b, c := Aggregate(records[:2]), Aggregate(records[2:5]), Aggregate(records[5:])
	assertSnapshotsEqual(t, Merge(Merge(a, b), c), Merge(a, Merge(b, c)))
}

func TestAggregatePartitionsConcurrent(t *testing.T) {
	var records []tweets.Record
	for i := 0; i < 500; i++ {
		records = append(records, tweets.Record{
			Classification: string(tweets.Categories[i%3]),
			Keyword:        fmt.Sprintf("kw%d", i%7),
			FullText:       fmt.Sprintf("tweet %d", i),
		})
	}
	whole := Aggregate(records)

	for _, parts := range []int{0, 1, 2, 3, 8, 1000} {
		got, err := AggregatePartitions(context.Background(), records, parts)
		require.NoError(t, err)
		assertSnapshotsEqual(t, whole, got)
	}
}

func TestAggregatePartitionsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AggregatePartitions(ctx, sampleRecords(), 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	a := Aggregate(sampleRecords()[:3])
	b := Aggregate(sampleRecords()[3:])
	before := a.KeywordStats[tweets.Positif].GetCount("bagus")

	Merge(a, b)
	Merge(a, nil)

	assert.Equal(t, before, a.KeywordStats[tweets.Positif].GetCount("bagus"))
	assert.Len(t, a.Tweets[tweets.Positif], 2)
}

// TestSnapshotAbsorb checks that folding partitions extends one accumulator.
//
// Rationale: AggregatePartitions folds every partition into the same snapshot, so
// tweet lists are appended once rather than recopied for each partition.
func TestSnapshotAbsorb(t *testing.T) {
	records := sampleRecords()
	acc := NewSnapshot()
	parts := []*Snapshot{Aggregate(records[:3]), nil, Aggregate(records[3:6]), Aggregate(records[6:])}
	for _, p := range parts {
		acc.absorb(p)
	}
	assertSnapshotsEqual(t, Aggregate(records), acc)
	assert.Len(t, parts[0].Tweets[tweets.Positif], 2)
	assert.Equal(t, 2, parts[0].KeywordStats[tweets.Positif].GetCount("bagus"))
}

func assertSnapshotsEqual(t *testing.T, want, got *Snapshot) {
	t.Helper()
	assert.Equal(t, want.TotalTweets, got.TotalTweets)
	assert.Equal(t, want.Classifications, got.Classifications)
	for _, c := range tweets.Categories {
		assert.Equal(t, want.KeywordStats[c].Keywords(), got.KeywordStats[c].Keywords(), "keyword order for %s", c)
		assert.Equal(t, want.KeywordStats[c].Counts(), got.KeywordStats[c].Counts(), "keyword counts for %s", c)
		assert.Equal(t, want.Tweets[c], got.Tweets[c], "tweets for %s", c)
	}
}
