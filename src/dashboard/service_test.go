package dashboard

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-sentiment/src/csvparse"
	"tweet-sentiment/src/filter"
	"tweet-sentiment/src/pipeline"
	"tweet-sentiment/src/source"
	"tweet-sentiment/src/store"
	"tweet-sentiment/src/tweets"
)

const sampleExport = `Klasifikasi,Keyword,full_text,username
Positif,bagus,produk bagus sekali,ani
Negatif,jelek,layanan jelek,budi
Positif,bagus,suka banget,cici
Promosi,,diskon besar hari ini,toko
Netral,,biasa saja,dedi
`

type brokenSource struct{}

func (brokenSource) Name() string { return "broken" }

func (brokenSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return nil, errors.New("disk on fire")
}

func newService(opts ...Option) *Service {
	return NewService(store.NewRepository(store.NewMemory(), "test:"), opts...)
}

func TestAnalyzeStoresResult(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	res, err := svc.Analyze(ctx, source.Bytes{Label: "upload.csv", Data: []byte(sampleExport)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "upload.csv", res.Source)
	assert.Equal(t, 5, res.View.TotalTweets)

	pos, ok := res.View.Category(tweets.Positif)
	require.True(t, ok)
	assert.Equal(t, 2, pos.Count)
	assert.Equal(t, 40.0, pos.Percent)
	assert.Equal(t, []pipeline.RankedKeyword{{Keyword: "bagus", Count: 2}}, pos.TopKeywords)

	promo, _ := res.View.Category(tweets.Promosi)
	assert.Equal(t, []pipeline.RankedKeyword{{Keyword: "diskon besar hari", Count: 1}}, promo.TopKeywords)

	last, ok, err := svc.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.ID, last.ID)
	assert.Equal(t, "upload.csv", last.Source)
	assert.Equal(t, res.View, last.View)

	records, ok, err := svc.Records(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, records, 5)
	assert.Equal(t, "Netral", records[4].Classification)
}

// TestAnalyzeFailureKeepsPreviousResult checks that a failed analysis writes nothing.
//
// Rationale: a bad upload must not wipe out the dashboard the user was looking at.
func TestAnalyzeFailureKeepsPreviousResult(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	first, err := svc.AnalyzeText(ctx, "good", sampleExport)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		src   source.Source
		check func(t *testing.T, err error)
	}{
		{
			name: "unreadable source",
			src:  brokenSource{},
			check: func(t *testing.T, err error) {
				var re *source.ReadError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, "broken", re.Source)
			},
		},
		{
			name: "no classification column",
			src:  source.Bytes{Data: []byte("a,b\n1,2\n")},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, csvparse.ErrSchema)
			},
		},
		{
			name: "header only",
			src:  source.Bytes{Data: []byte("Klasifikasi,Keyword\n")},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, csvparse.ErrEmptyDataset)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Analyze(ctx, tc.src)
			require.Error(t, err)
			tc.check(t, err)

			last, ok, err := svc.Last(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first.ID, last.ID)
		})
	}
}

// snapshotWriteFails rejects writes of the snapshot key.
type snapshotWriteFails struct{ store.Store }

func (s snapshotWriteFails) Set(ctx context.Context, key, value string) error {
	if key == "test:"+store.SnapshotKey {
		return errors.New("boom")
	}
	return s.Store.Set(ctx, key, value)
}

// TestAnalyzeSaveFailureKeepsStoreConsistent checks a store error halfway through
// persisting.
//
// Rationale: Last and Records are served from two keys. A failed save must leave
// both on the previous export, not the records of the new one.
func TestAnalyzeSaveFailureKeepsStoreConsistent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	good := NewService(store.NewRepository(mem, "test:"))
	_, err := good.AnalyzeText(ctx, "first", "Klasifikasi,Keyword,full_text\nPositif,bagus,bagus\n")
	require.NoError(t, err)

	bad := NewService(store.NewRepository(snapshotWriteFails{mem}, "test:"))
	_, err = bad.AnalyzeText(ctx, "second", "Klasifikasi,Keyword,full_text\nNegatif,a,a\nNegatif,b,b\n")
	require.ErrorContains(t, err, "boom")

	last, ok, err := good.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", last.Source)
	assert.Equal(t, 1, last.Snapshot.Classifications[tweets.Positif])

	records, ok, err := good.Records(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "Positif", records[0].Classification)
}

func TestAnalyzeWithSummarizerAndPartitions(t *testing.T) {
	ignore := filter.NewIgnoreList()
	ignore.Add("bagus")
	svc := newService(
		WithSummarizer(pipeline.Summarizer{TopN: 1, Exclude: ignore}),
		WithPartitions(3),
	)

	res, err := svc.AnalyzeText(context.Background(), "x", sampleExport)
	require.NoError(t, err)

	pos, _ := res.View.Category(tweets.Positif)
	assert.Empty(t, pos.TopKeywords)
	assert.Equal(t, 2, res.Snapshot.KeywordStats[tweets.Positif].GetCount("bagus"))
	assert.Equal(t, pipeline.FormatSummary(pipeline.Aggregate(mustParse(t, sampleExport))), pipeline.FormatSummary(res.Snapshot))
}

func TestLastAndRecordsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, ok, err := svc.Last(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = svc.Records(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.AnalyzeText(ctx, "x", sampleExport)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))

	_, ok, err := svc.Last(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyzeFilesIsolated(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte(sampleExport), 0644))

	zipped := filepath.Join(dir, "zipped.csv.gz")
	f, err := os.Create(zipped)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("label,text\nNegatif,buruk sekali\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("x,y\n1,2\n"), 0644))
	missing := filepath.Join(dir, "missing.csv")

	svc := newService(WithWorkers(2))
	results, err := svc.AnalyzeFiles(context.Background(), []string{good, bad, zipped, missing})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, good, results[0].Path)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 5, results[0].Result.View.TotalTweets)

	assert.ErrorIs(t, results[1].Err, csvparse.ErrSchema)

	require.NoError(t, results[2].Err)
	neg, _ := results[2].Result.View.Category(tweets.Negatif)
	assert.Equal(t, 1, neg.Count)
	assert.Equal(t, 100.0, neg.Percent)

	var re *source.ReadError
	assert.ErrorAs(t, results[3].Err, &re)

	_, ok, err := svc.Last(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyzeFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService().AnalyzeFiles(ctx, []string{"a.csv"})
	assert.ErrorIs(t, err, context.Canceled)
}

func mustParse(t *testing.T, text string) []tweets.Record {
	t.Helper()
	records, err := csvparse.ParseCSV(text)
	require.NoError(t, err)
	return records
}
