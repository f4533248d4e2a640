package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tweet-sentiment/src/pipeline"
	"tweet-sentiment/src/tweets"
)

// Well-known keys, relative to the repository prefix.
const (
	RecordsKey  = "records"
	SnapshotKey = "snapshot"
)

// ErrMalformedValue marks a stored blob that does not decode. Loads treat such a
// value as absent and only log it.
var ErrMalformedValue = errors.New("malformed stored value")

// PersistedSnapshot is the stored form of the last analysis.
type PersistedSnapshot struct {
	ID              string                                       `json:"id"`
	Timestamp       string                                       `json:"timestamp"`
	Source          string                                       `json:"source,omitempty"`
	Classifications map[tweets.Category]int                      `json:"classifications"`
	KeywordStats    map[tweets.Category]*pipeline.KeywordCounter `json:"keywordStats"`
	Tweets          map[tweets.Category][]tweets.TweetDetail     `json:"tweets"`
	RawRecords      []tweets.Record                              `json:"rawRecords"`
}

// Snapshot rebuilds the aggregate. The total is recounted from the raw records.
func (p PersistedSnapshot) Snapshot() *pipeline.Snapshot {
	s := pipeline.NewSnapshot()
	for _, r := range p.RawRecords {
		if r.FullText != "" {
			s.TotalTweets++
		}
	}
	for _, c := range tweets.Categories {
		s.Classifications[c] = p.Classifications[c]
		if kc := p.KeywordStats[c]; kc != nil {
			s.KeywordStats[c] = kc.Clone()
		}
		if list := p.Tweets[c]; list != nil {
			s.Tweets[c] = list
		}
	}
	return s
}

// Repository stores the record sequence and the last snapshot under fixed keys.
type Repository struct {
	store  Store
	prefix string
	now    func() time.Time
}

// NewRepository returns a repository using keys prefix+RecordsKey and prefix+SnapshotKey.
func NewRepository(s Store, prefix string) *Repository {
	return &Repository{store: s, prefix: prefix, now: time.Now}
}

func (r *Repository) key(name string) string {
	return r.prefix + name
}

// SaveRecords stores the ordered record sequence.
func (r *Repository) SaveRecords(ctx context.Context, records []tweets.Record) error {
	return r.put(ctx, RecordsKey, records)
}

// LoadRecords returns the stored records, or ok == false when none are stored or
// the stored value is malformed.
func (r *Repository) LoadRecords(ctx context.Context) ([]tweets.Record, bool, error) {
	var records []tweets.Record
	ok, err := r.get(ctx, RecordsKey, &records)
	if err != nil || !ok {
		return nil, false, err
	}
	return records, true, nil
}

// Save stores a whole analysis: the snapshot first, then the record sequence.
// If the records cannot be written the previous snapshot is put back, so the two
// keys never describe different analyses.
func (r *Repository) Save(ctx context.Context, source string, snap *pipeline.Snapshot, records []tweets.Record) (PersistedSnapshot, error) {
	prev, hadPrev, err := r.store.Get(ctx, r.key(SnapshotKey))
	if err != nil {
		return PersistedSnapshot{}, fmt.Errorf("load %s: %w", SnapshotKey, err)
	}
	saved, err := r.SaveSnapshot(ctx, source, snap, records)
	if err != nil {
		return PersistedSnapshot{}, err
	}
	if err := r.SaveRecords(ctx, records); err != nil {
		if rerr := r.restore(ctx, SnapshotKey, prev, hadPrev); rerr != nil {
			return PersistedSnapshot{}, errors.Join(err, rerr)
		}
		return PersistedSnapshot{}, err
	}
	return saved, nil
}

// restore puts back a raw value read earlier, or removes the key if it was unset.
func (r *Repository) restore(ctx context.Context, name, raw string, existed bool) error {
	var err error
	if existed {
		err = r.store.Set(ctx, r.key(name), raw)
	} else {
		err = r.store.Remove(ctx, r.key(name))
	}
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	return nil
}

// SaveSnapshot stores snap together with the records it was built from and
// returns what was written. source names the export it came from.
func (r *Repository) SaveSnapshot(ctx context.Context, source string, snap *pipeline.Snapshot, records []tweets.Record) (PersistedSnapshot, error) {
	p := PersistedSnapshot{
		ID:              uuid.NewString(),
		Timestamp:       r.now().UTC().Format(time.RFC3339),
		Source:          source,
		Classifications: snap.Classifications,
		KeywordStats:    snap.KeywordStats,
		Tweets:          snap.Tweets,
		RawRecords:      records,
	}
	if p.RawRecords == nil {
		p.RawRecords = []tweets.Record{}
	}
	if err := r.put(ctx, SnapshotKey, p); err != nil {
		return PersistedSnapshot{}, err
	}
	return p, nil
}

// LoadSnapshot returns the last stored snapshot, or ok == false when none is
// stored or the stored value is malformed.
func (r *Repository) LoadSnapshot(ctx context.Context) (PersistedSnapshot, bool, error) {
	var p PersistedSnapshot
	ok, err := r.get(ctx, SnapshotKey, &p)
	if err != nil || !ok {
		return PersistedSnapshot{}, false, err
	}
	return p, true, nil
}

// Clear removes both keys.
func (r *Repository) Clear(ctx context.Context) error {
	for _, name := range []string{RecordsKey, SnapshotKey} {
		if err := r.store.Remove(ctx, r.key(name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) put(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := r.store.Set(ctx, r.key(name), string(data)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, name string, v any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, r.key(name))
	if err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}
	if err := decode(raw, v); err != nil {
		slog.Warn("Ignoring stored value", "key", r.key(name), "error", err)
		return false, nil
	}
	return true, nil
}

func decode(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return nil
}
