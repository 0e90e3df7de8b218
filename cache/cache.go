// Package cache is a read-through client cache for interview listings
// and bookmark state, with optimistic bookmark updates: the cached state
// flips immediately, the server call follows, and a failure rolls the
// cache back.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bumaview/bumaview-go/api"
)

const bookmarksKey = "bookmarks"

// InterviewLister is the slice of the interview API the cache reads
// through.
type InterviewLister interface {
	List(ctx context.Context, filter api.InterviewFilter) ([]api.Interview, error)
}

// BookmarkAPI is the slice of the bookmark API the cache keeps in sync
// with.
type BookmarkAPI interface {
	List(ctx context.Context) ([]api.Bookmark, error)
	Add(ctx context.Context, interviewID int64) (*api.Bookmark, error)
	Remove(ctx context.Context, interviewID int64) error
}

// Store caches interview listings keyed by their filter and the caller's
// bookmark set under a single entry.
type Store struct {
	interviews  *ttlcache.Cache[string, []api.Interview]
	bookmarks   *ttlcache.Cache[string, []api.Bookmark]
	lister      InterviewLister
	bookmarkAPI BookmarkAPI
	logger      zerolog.Logger

	// mu serialises bookmark read-modify-write cycles so an optimistic
	// update and its rollback cannot interleave with another writer.
	mu sync.Mutex
}

type StoreOption func(*Store)

// WithTTL sets how long cached entries live. Default one minute.
func WithTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		s.interviews = newCache[[]api.Interview](d)
		s.bookmarks = newCache[[]api.Bookmark](d)
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func newCache[V any](ttl time.Duration) *ttlcache.Cache[string, V] {
	return ttlcache.New(
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

func New(lister InterviewLister, bookmarkAPI BookmarkAPI, options ...StoreOption) (*Store, error) {
	if lister == nil {
		return nil, errors.New("[cache.New] interview lister is required")
	}
	if bookmarkAPI == nil {
		return nil, errors.New("[cache.New] bookmark API is required")
	}

	s := &Store{
		interviews:  newCache[[]api.Interview](time.Minute),
		bookmarks:   newCache[[]api.Bookmark](time.Minute),
		lister:      lister,
		bookmarkAPI: bookmarkAPI,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	go s.interviews.Start()
	go s.bookmarks.Start()
	return s, nil
}

// Stop halts the background expiry loops.
func (s *Store) Stop() {
	s.interviews.Stop()
	s.bookmarks.Stop()
}

// Interviews lists questions through the cache.
func (s *Store) Interviews(ctx context.Context, filter api.InterviewFilter) ([]api.Interview, error) {
	key := filter.Key()
	if item := s.interviews.Get(key); item != nil {
		return item.Value(), nil
	}

	list, err := s.lister.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Interviews]")
	}
	s.interviews.Set(key, list, ttlcache.DefaultTTL)
	return list, nil
}

// InvalidateInterviews drops all cached listings. Called after any write
// that could change a listing.
func (s *Store) InvalidateInterviews() {
	s.interviews.DeleteAll()
}

// Bookmarks returns the caller's bookmark set through the cache.
func (s *Store) Bookmarks(ctx context.Context) ([]api.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarksLocked(ctx)
}

// IsBookmarked reports whether an interview question is bookmarked.
func (s *Store) IsBookmarked(ctx context.Context, interviewID int64) (bool, error) {
	list, err := s.Bookmarks(ctx)
	if err != nil {
		return false, err
	}
	for _, bm := range list {
		if bm.InterviewID == interviewID {
			return true, nil
		}
	}
	return false, nil
}

// SetBookmarked flips bookmark state optimistically: the cache changes
// first, then the server call runs; on failure the previous cached state
// is restored and the error returned.
func (s *Store) SetBookmarked(ctx context.Context, interviewID int64, want bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.bookmarksLocked(ctx)
	if err != nil {
		return errors.Wrap(err, "[Store.SetBookmarked] load current state")
	}

	has := false
	for _, bm := range prev {
		if bm.InterviewID == interviewID {
			has = true
			break
		}
	}
	if has == want {
		return nil
	}

	if want {
		// Placeholder entry until the server assigns the real ID.
		optimistic := append(cloneBookmarks(prev), api.Bookmark{InterviewID: interviewID})
		s.bookmarks.Set(bookmarksKey, optimistic, ttlcache.DefaultTTL)

		created, err := s.bookmarkAPI.Add(ctx, interviewID)
		if err != nil {
			s.logger.Debug().Int64("interviewId", interviewID).Err(err).Msg("bookmark add failed, reverting")
			s.bookmarks.Set(bookmarksKey, prev, ttlcache.DefaultTTL)
			return errors.Wrap(err, "[Store.SetBookmarked] add")
		}
		s.bookmarks.Set(bookmarksKey, append(cloneBookmarks(prev), *created), ttlcache.DefaultTTL)
		return nil
	}

	remaining := make([]api.Bookmark, 0, len(prev))
	for _, bm := range prev {
		if bm.InterviewID != interviewID {
			remaining = append(remaining, bm)
		}
	}
	s.bookmarks.Set(bookmarksKey, remaining, ttlcache.DefaultTTL)

	if err := s.bookmarkAPI.Remove(ctx, interviewID); err != nil {
		s.logger.Debug().Int64("interviewId", interviewID).Err(err).Msg("bookmark remove failed, reverting")
		s.bookmarks.Set(bookmarksKey, prev, ttlcache.DefaultTTL)
		return errors.Wrap(err, "[Store.SetBookmarked] remove")
	}
	return nil
}

// InvalidateBookmarks drops the cached bookmark set, forcing the next
// read to hit the server.
func (s *Store) InvalidateBookmarks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks.Delete(bookmarksKey)
}

// bookmarksLocked is the read-through load. Caller holds s.mu.
func (s *Store) bookmarksLocked(ctx context.Context) ([]api.Bookmark, error) {
	if item := s.bookmarks.Get(bookmarksKey); item != nil {
		return item.Value(), nil
	}
	list, err := s.bookmarkAPI.List(ctx)
	if err != nil {
		return nil, err
	}
	s.bookmarks.Set(bookmarksKey, list, ttlcache.DefaultTTL)
	return list, nil
}

func cloneBookmarks(in []api.Bookmark) []api.Bookmark {
	out := make([]api.Bookmark, len(in))
	copy(out, in)
	return out
}
