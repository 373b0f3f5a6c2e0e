package reference

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[Kind]map[string]int64
	parents map[int64]*int64
	finds   atomic.Int32
	inserts atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[Kind]map[string]int64), parents: make(map[int64]*int64)}
}

func (s *memStore) Find(_ context.Context, _ db.DBTX, kind Kind, name string) (int64, error) {
	s.finds.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.rows[kind][name]; ok {
		return id, nil
	}
	return 0, ErrNotFound
}

func (s *memStore) Insert(_ context.Context, _ db.DBTX, kind Kind, name string, parentID *int64) (int64, error) {
	s.inserts.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[kind][name]; ok {
		return 0, ErrDuplicate
	}
	if s.rows[kind] == nil {
		s.rows[kind] = make(map[string]int64)
	}
	s.nextID++
	s.rows[kind][name] = s.nextID
	s.parents[s.nextID] = parentID
	return s.nextID, nil
}

func (s *memStore) Name(_ context.Context, _ db.DBTX, kind Kind, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, rowID := range s.rows[kind] {
		if rowID == id {
			return name, nil
		}
	}
	return "", ErrNotFound
}

func (s *memStore) count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[kind])
}

// racingStore makes the first two lookups miss only after both callers have
// reached them, forcing both to attempt the insert.
type racingStore struct {
	*memStore
	arrived sync.WaitGroup
	misses  atomic.Int32
}

func newRacingStore() *racingStore {
	s := &racingStore{memStore: newMemStore()}
	s.arrived.Add(2)
	return s
}

func (s *racingStore) Find(ctx context.Context, q db.DBTX, kind Kind, name string) (int64, error) {
	if s.misses.Add(1) <= 2 {
		s.arrived.Done()
		s.arrived.Wait()
		return 0, ErrNotFound
	}
	return s.memStore.Find(ctx, q, kind, name)
}

func TestResolveIsIdempotentForTrimmedNames(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logger.Discard())
	ctx := context.Background()

	for _, kind := range []Kind{KindRegion, KindCommune, KindNationality, KindSector, KindInstitution, KindProfession, KindPortal} {
		first, err := r.Resolve(ctx, nil, kind, "Valparaíso")
		require.NoError(t, err)
		second, err := r.Resolve(ctx, nil, kind, "  Valparaíso ")
		require.NoError(t, err)
		require.Equal(t, first, second, "kind %s", kind)
		require.Equal(t, 1, store.count(kind))
	}
}

func TestResolveIsCaseSensitive(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logger.Discard())

	upper, err := r.Resolve(context.Background(), nil, KindCommune, "Providencia")
	require.NoError(t, err)
	lower, err := r.Resolve(context.Background(), nil, KindCommune, "providencia")
	require.NoError(t, err)
	require.NotEqual(t, upper, lower)
}

func TestResolveRejectsBlankName(t *testing.T) {
	r := NewResolver(newMemStore(), logger.Discard())
	_, err := r.Resolve(context.Background(), nil, KindPortal, "   ")
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestConcurrentFirstResolutionConvergesOnOneRow(t *testing.T) {
	store := newRacingStore()
	r := NewResolver(store, logger.Discard())

	var wg sync.WaitGroup
	ids := make([]int64, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = r.Resolve(context.Background(), nil, KindCommune, "Providencia")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, ids[0], ids[1])
	require.Equal(t, 1, store.count(KindCommune))
	require.EqualValues(t, 2, store.inserts.Load(), "both callers must have attempted the insert")
}

func TestSeededKindIsNeverCreated(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logger.Discard())

	_, err := r.Resolve(context.Background(), nil, KindCandidateStatus, "Postulado")
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	require.Zero(t, store.count(KindCandidateStatus))
	require.Zero(t, store.inserts.Load())
}

func TestLookupMissingNonSeededIsNotFound(t *testing.T) {
	r := NewResolver(newMemStore(), logger.Discard())
	_, err := r.Lookup(context.Background(), nil, KindPortal, "LinkedIn")
	require.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestResolveOptionalBlankYieldsNil(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logger.Discard())

	id, err := r.ResolveOptional(context.Background(), nil, KindSector, " ")
	require.NoError(t, err)
	require.Nil(t, id)
	require.Zero(t, store.inserts.Load())
}

func TestResolveCommuneAttachesRegionOnCreate(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, logger.Discard())
	ctx := context.Background()

	communeID, err := r.ResolveCommune(ctx, nil, "Viña del Mar", "Valparaíso")
	require.NoError(t, err)
	require.NotNil(t, communeID)

	regionID, err := r.Lookup(ctx, nil, KindRegion, "Valparaíso")
	require.NoError(t, err)
	require.NotNil(t, store.parents[*communeID])
	require.Equal(t, regionID, *store.parents[*communeID])

	again, err := r.ResolveCommune(ctx, nil, "Viña del Mar", "")
	require.NoError(t, err)
	require.Equal(t, *communeID, *again)
}

func TestCacheIsWrittenOnlyAfterCommit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisCache(client, 0)
	store := newMemStore()
	r := NewResolver(store, logger.Discard(), WithCache(cache))

	txCtx, scope := db.NewCommitScope(context.Background())
	id, err := r.Resolve(txCtx, nil, KindInstitution, "Universidad de Chile")
	require.NoError(t, err)

	_, ok, err := cache.Get(context.Background(), KindInstitution, "Universidad de Chile")
	require.NoError(t, err)
	require.False(t, ok, "cache must not see uncommitted rows")

	scope.Run(context.Background())

	cached, ok, err := cache.Get(context.Background(), KindInstitution, "Universidad de Chile")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, cached)

	findsBefore := store.finds.Load()
	again, err := r.Resolve(context.Background(), nil, KindInstitution, "Universidad de Chile")
	require.NoError(t, err)
	require.Equal(t, id, again)
	require.Equal(t, findsBefore, store.finds.Load(), "cache hit must skip the store")
}

func TestCacheSkippedWithoutCommitScope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisCache(client, 0)
	r := NewResolver(newMemStore(), logger.Discard(), WithCache(cache))

	_, err := r.Resolve(context.Background(), nil, KindPortal, "Laborum")
	require.NoError(t, err)

	_, ok, err := cache.Get(context.Background(), KindPortal, "Laborum")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := NewResolver(newMemStore(), logger.Discard(), WithCache(NewRedisCache(client, 0)))
	id, err := r.Resolve(context.Background(), nil, KindPortal, "Directo")
	require.NoError(t, err)
	require.NotZero(t, id)
}
