// Package dashboard runs the analysis chain (read, parse, aggregate, persist,
// summarise) and serves the last stored result.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tweet-sentiment/src/csvparse"
	"tweet-sentiment/src/pipeline"
	"tweet-sentiment/src/source"
	"tweet-sentiment/src/store"
	"tweet-sentiment/src/tweets"
)

// Result is one analysed export.
type Result struct {
	ID        string
	Timestamp string
	Source    string
	Snapshot  *pipeline.Snapshot
	View      pipeline.DashboardView
}

// FileResult is the outcome for one file of AnalyzeFiles. Err is set when that
// file alone failed.
type FileResult struct {
	Path   string
	Result Result
	Err    error
}

// Service ties a repository to a summarizer.
type Service struct {
	repo       *store.Repository
	summarizer pipeline.Summarizer
	partitions int
	workers    int
}

// Option configures a Service.
type Option func(*Service)

// WithSummarizer sets the top-N limit and keyword ignore-list used for views.
func WithSummarizer(s pipeline.Summarizer) Option {
	return func(svc *Service) { svc.summarizer = s }
}

// WithPartitions folds each export in n concurrent partitions.
func WithPartitions(n int) Option {
	return func(svc *Service) { svc.partitions = n }
}

// WithWorkers bounds how many files AnalyzeFiles processes at once.
func WithWorkers(n int) Option {
	return func(svc *Service) { svc.workers = n }
}

// NewService returns a service persisting through repo.
func NewService(repo *store.Repository, opts ...Option) *Service {
	svc := &Service{repo: repo, partitions: 1, workers: 4}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Analyze reads src, builds its snapshot and stores it as the last analysis.
// Nothing is written unless reading, parsing and aggregation all succeed.
func (s *Service) Analyze(ctx context.Context, src source.Source) (Result, error) {
	text, err := source.ReadAllBytesAsText(ctx, src)
	if err != nil {
		return Result{}, err
	}
	return s.AnalyzeText(ctx, src.Name(), text)
}

// AnalyzeText is Analyze for an export already held in memory.
func (s *Service) AnalyzeText(ctx context.Context, name, text string) (Result, error) {
	start := time.Now()
	res, records, err := s.build(ctx, name, text)
	if err != nil {
		return Result{}, err
	}

	saved, err := s.repo.Save(ctx, name, res.Snapshot, records)
	if err != nil {
		return Result{}, err
	}
	res.ID = saved.ID
	res.Timestamp = saved.Timestamp

	slog.Info("Analysis stored",
		"source", name,
		"id", res.ID,
		"records", len(records),
		"total_tweets", res.Snapshot.TotalTweets,
		"elapsed", time.Since(start))
	return res, nil
}

// AnalyzeFiles analyses each path on its own snapshot, concurrently. Results are
// returned in path order and are not persisted; one file failing does not affect
// the others.
func (s *Service) AnalyzeFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.workers, 1))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i].Path = path
			text, err := source.ReadAllBytesAsText(gctx, source.File{Path: path})
			if err != nil {
				results[i].Err = err
				return nil
			}
			res, _, err := s.build(gctx, path, text)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Last returns the stored analysis, or ok == false if there is none.
func (s *Service) Last(ctx context.Context) (Result, bool, error) {
	p, ok, err := s.repo.LoadSnapshot(ctx)
	if err != nil || !ok {
		return Result{}, false, err
	}
	snap := p.Snapshot()
	return Result{
		ID:        p.ID,
		Timestamp: p.Timestamp,
		Source:    p.Source,
		Snapshot:  snap,
		View:      s.summarizer.Format(snap),
	}, true, nil
}

// Records returns the stored record sequence.
func (s *Service) Records(ctx context.Context) ([]tweets.Record, bool, error) {
	return s.repo.LoadRecords(ctx)
}

// Clear removes the stored analysis.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	slog.Info("Stored analysis cleared")
	return nil
}

func (s *Service) build(ctx context.Context, name, text string) (Result, []tweets.Record, error) {
	schema, records, err := csvparse.ParseCSVWithSchema(text)
	if err != nil {
		return Result{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	slog.Debug("Column roles resolved", "source", name, "roles", schema.Roles.Roles())
	snap, err := pipeline.AggregatePartitions(ctx, records, s.partitions)
	if err != nil {
		return Result{}, nil, fmt.Errorf("%s: %w", name, err)
	}
	if n := unrecognised(records); n > 0 {
		slog.Debug("Records with unrecognised labels left out of categories", "source", name, "count", n)
	}
	return Result{
		Source:   name,
		Snapshot: snap,
		View:     s.summarizer.Format(snap),
	}, records, nil
}

func unrecognised(records []tweets.Record) int {
	n := 0
	for _, r := range records {
		if _, ok := tweets.ParseCategory(r.Classification); !ok {
			n++
		}
	}
	return n
}
