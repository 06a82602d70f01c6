package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/marcus/sheetnotes/internal/querycache"
	"github.com/marcus/sheetnotes/internal/rowstore"
)

// DefaultStaleTime is how long a fetched note list is served without
// going back to the sheet.
const DefaultStaleTime = 5 * time.Second

// NotesKey is the cache entry holding the note list in sheet order.
var NotesKey = querycache.NewKey[[]Note]("notes")

var (
	// ErrNotFound is returned when a note id is not in the cached list.
	ErrNotFound = errors.New("note not found")
	// ErrRowDrift is returned when the sheet row at a note's cached
	// position holds a different note.
	ErrRowDrift = errors.New("sheet rows changed since last load")
)

// RowStore is the subset of *rowstore.Client the service needs.
type RowStore interface {
	ListRows(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, values []string) (*rowstore.AppendResponse, error)
	PutRow(ctx context.Context, position int, values []string) (*rowstore.UpdateResult, error)
	DeleteRowRange(ctx context.Context, start, end int) (*rowstore.BatchUpdateResponse, error)
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	StaleTime time.Duration
	// VerifyRowPosition re-reads the sheet before an update or delete and
	// refuses to touch a row that does not carry the expected id.
	VerifyRowPosition bool
	IDs               IDGenerator
	Now               func() time.Time
	Logger            *slog.Logger
	// OnLoad is called with the raw rows after every successful load.
	OnLoad func(rows [][]string, fetchedAt time.Time)
}

// Service implements the note operations. Positions are always derived
// from the cached list, which is assumed to match the sheet's row order.
type Service struct {
	store  RowStore
	cache  *querycache.Cache
	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger
	onLoad func([][]string, time.Time)

	staleTime   atomic.Int64
	verify      atomic.Bool
	fingerprint atomic.Uint64
}

// NewService creates a Service over store, caching in cache.
func NewService(store RowStore, cache *querycache.Cache, opts Options) *Service {
	s := &Service{
		store:  store,
		cache:  cache,
		ids:    opts.IDs,
		now:    opts.Now,
		logger: opts.Logger,
		onLoad: opts.OnLoad,
	}
	if s.ids == nil {
		s.ids = UUIDGenerator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.SetStaleTime(opts.StaleTime)
	s.verify.Store(opts.VerifyRowPosition)
	return s
}

// Cache returns the cache the service writes to.
func (s *Service) Cache() *querycache.Cache { return s.cache }

// StaleTime returns the current staleness window.
func (s *Service) StaleTime() time.Duration { return time.Duration(s.staleTime.Load()) }

// SetStaleTime changes the staleness window. Non-positive means
// DefaultStaleTime.
func (s *Service) SetStaleTime(d time.Duration) {
	if d <= 0 {
		d = DefaultStaleTime
	}
	s.staleTime.Store(int64(d))
}

// SetVerifyRowPosition toggles the pre-write row check.
func (s *Service) SetVerifyRowPosition(on bool) { s.verify.Store(on) }

// List returns the notes in sheet order, from cache when fresh.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	return querycache.Fetch(ctx, s.cache, NotesKey, s.loadAll, s.StaleTime())
}

// Refresh discards the cached list and loads it again.
func (s *Service) Refresh(ctx context.Context) ([]Note, error) {
	s.cache.Invalidate(NotesKey)
	return s.List(ctx)
}

// Cached returns the cached list without loading.
func (s *Service) Cached() ([]Note, bool) {
	return querycache.Get(s.cache, NotesKey)
}

// Seed shows list, fetched at fetchedAt, until the first load completes.
func (s *Service) Seed(list []Note, fetchedAt time.Time) bool {
	return querycache.Seed(s.cache, NotesKey, list, fetchedAt)
}

// Get returns one note by id.
func (s *Service) Get(ctx context.Context, id string) (Note, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Note{}, err
	}
	n, ok := Find(list, id)
	if !ok {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

func (s *Service) loadAll(ctx context.Context) ([]Note, error) {
	rows, err := s.store.ListRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	fetchedAt := s.now()
	fp := FingerprintRows(rows)
	if prev := s.fingerprint.Swap(fp); prev != 0 && prev != fp {
		s.logger.Debug("notes: sheet order changed", "rows", len(rows), "prev", prev, "now", fp)
	}
	if s.onLoad != nil {
		s.onLoad(rows, fetchedAt)
	}
	return FromRows(rows, s.logger), nil
}

// current returns the cached list, loading it if the cache is empty.
func (s *Service) current(ctx context.Context) ([]Note, error) {
	if list, ok := s.Cached(); ok {
		return list, nil
	}
	return s.List(ctx)
}

// Create validates in and appends a new row. The cached list is
// invalidated on success, not patched.
func (s *Service) Create(ctx context.Context, in Input) (Note, error) {
	if err := in.Validate(); err != nil {
		return Note{}, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	n := Note{
		ID:        s.ids.NewID(),
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.store.AppendRow(ctx, n.ToRow()); err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	s.logger.Info("notes: created", "id", n.ID)
	s.cache.Invalidate(NotesKey)
	return n, nil
}

// Update overwrites the row of note id with the new title and content.
// The cached entry is patched before the sheet is written and restored
// if the write fails.
func (s *Service) Update(ctx context.Context, id string, in Input) (Note, error) {
	if err := in.Validate(); err != nil {
		return Note{}, err
	}
	list, err := s.current(ctx)
	if err != nil {
		return Note{}, err
	}
	idx := IndexOf(list, id)
	if idx < 0 {
		return Note{}, fmt.Errorf("update note: %w: %s", ErrNotFound, id)
	}

	updated := list[idx]
	updated.Title = in.Title
	updated.Content = in.Content
	updated.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt.Add(time.Millisecond)
	}

	patch := func(cur []Note) []Note {
		out := slices.Clone(cur)
		for i := range out {
			if out[i].ID == id {
				out[i].Title = in.Title
				out[i].Content = in.Content
			}
		}
		return out
	}
	_, err = querycache.OptimisticMutate(ctx, s.cache, NotesKey, patch,
		func(ctx context.Context) (*rowstore.UpdateResult, error) {
			if err := s.verifyPosition(ctx, id, idx); err != nil {
				return nil, err
			}
			return s.store.PutRow(ctx, idx, updated.ToRow())
		})
	if err != nil {
		if errors.Is(err, ErrRowDrift) {
			s.cache.Invalidate(NotesKey)
		}
		return Note{}, fmt.Errorf("update note: %w", err)
	}

	// Keep the cached timestamps in step with what was written.
	querycache.Set(s.cache, NotesKey, replace(s.cachedOrEmpty(), updated))
	s.logger.Info("notes: updated", "id", id, "row", idx+1)
	return updated, nil
}

// Delete removes the row of note id. The note disappears from the cached
// list immediately and comes back if the delete fails.
//
// The position is taken from the cached list at call time. Two deletes
// issued back to back compute their positions against each other's
// optimistic state; that is only right if the earlier one succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	list, err := s.current(ctx)
	if err != nil {
		return err
	}
	idx := IndexOf(list, id)
	if idx < 0 {
		return fmt.Errorf("delete note: %w: %s", ErrNotFound, id)
	}

	patch := func(cur []Note) []Note {
		return slices.DeleteFunc(slices.Clone(cur), func(n Note) bool { return n.ID == id })
	}
	_, err = querycache.OptimisticMutate(ctx, s.cache, NotesKey, patch,
		func(ctx context.Context) (*rowstore.BatchUpdateResponse, error) {
			if err := s.verifyPosition(ctx, id, idx); err != nil {
				return nil, err
			}
			return s.store.DeleteRowRange(ctx, idx, idx+1)
		})
	if err != nil {
		if errors.Is(err, ErrRowDrift) {
			s.cache.Invalidate(NotesKey)
		}
		return fmt.Errorf("delete note: %w", err)
	}
	s.logger.Info("notes: deleted", "id", id, "row", idx+1)
	return nil
}

// verifyPosition checks that the sheet row at idx still holds id.
func (s *Service) verifyPosition(ctx context.Context, id string, idx int) error {
	if !s.verify.Load() {
		return nil
	}
	rows, err := s.store.ListRows(ctx)
	if err != nil {
		return fmt.Errorf("verify row position: %w", err)
	}
	if fp := FingerprintRows(rows); fp != s.fingerprint.Load() {
		s.logger.Debug("notes: sheet order differs from last load", "rows", len(rows))
	}
	if idx >= len(rows) || len(rows[idx]) == 0 || rows[idx][ColID] != id {
		got := ""
		if idx < len(rows) && len(rows[idx]) > 0 {
			got = rows[idx][ColID]
		}
		s.logger.Warn("notes: row drift", "id", id, "row", idx+1, "found", got, "rows", len(rows))
		return fmt.Errorf("%w: row %d holds %q, expected %q", ErrRowDrift, idx+1, got, id)
	}
	return nil
}

func (s *Service) cachedOrEmpty() []Note {
	list, _ := s.Cached()
	return list
}

func replace(list []Note, n Note) []Note {
	out := slices.Clone(list)
	if i := IndexOf(out, n.ID); i >= 0 {
		out[i] = n
	}
	return out
}
