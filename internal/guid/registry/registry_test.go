package registry

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"guidd/internal/guid/domain"
)

// fakeRepo is an in-memory domain.RecordRepository with per-method
// failure injection and call counting.
type fakeRepo struct {
	records map[string]*domain.Record

	insertErr error
	updateErr error

	findCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*domain.Record)}
}

func (f *fakeRepo) Insert(_ context.Context, rec *domain.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, exists := f.records[rec.ID]; exists {
		return &domain.PersistenceError{Op: "insert", Err: context.DeadlineExceeded}
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeRepo) FindLive(_ context.Context, id string, now time.Time) (*domain.Record, error) {
	f.findCalls++
	rec, ok := f.records[id]
	if !ok || !rec.LiveAt(now) {
		return nil, &domain.NotFoundError{ID: id}
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, user *string, expire *int64, now time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	rec, ok := f.records[id]
	if !ok || !rec.LiveAt(now) {
		return &domain.PersistenceError{Op: "update"}
	}
	if user != nil {
		rec.User = *user
	}
	if expire != nil {
		rec.Expire = *expire
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string, now time.Time) error {
	rec, ok := f.records[id]
	if !ok || !rec.LiveAt(now) {
		return &domain.NotFoundError{ID: id}
	}
	delete(f.records, id)
	return nil
}

// fakeCache is an in-memory cache.Store that records the TTL of the
// last Set.
type fakeCache struct {
	entries map[string]*domain.Record
	lastTTL time.Duration
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.Record)}
}

func (f *fakeCache) Get(_ context.Context, key string) (*domain.Record, bool) {
	rec, ok := f.entries[key]
	return rec, ok
}

func (f *fakeCache) Set(_ context.Context, key string, rec *domain.Record, ttl time.Duration) {
	f.entries[key] = rec
	f.lastTTL = ttl
	f.sets++
}

func (f *fakeCache) Delete(_ context.Context, key string) {
	delete(f.entries, key)
}

func (f *fakeCache) Close() error { return nil }

var testNow = time.Unix(1_700_000_000, 0)

func newTestRegistry(repo *fakeRepo, store *fakeCache) *Registry {
	return New(Config{
		Repo:  repo,
		Cache: store,
		Now:   func() time.Time { return testNow },
	})
}

func payloadFromJSON(t testing.TB, body string) domain.Payload {
	t.Helper()
	var p domain.Payload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func futureExpire(d time.Duration) string {
	return strconv.FormatInt(testNow.Add(d).Unix(), 10)
}

var idShape = regexp.MustCompile(`^[0-9A-F]{32}$`)

func TestCreate_GeneratesID(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	rec, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice"}`))
	require.NoError(t, err)
	require.Regexp(t, idShape, rec.ID)
	require.Equal(t, "alice", rec.User)
}

func TestCreate_GeneratedIDShape(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := NewID()
		if !idShape.MatchString(id) {
			t.Fatalf("generated id %q is not 32 uppercase hex chars", id)
		}
	})
}

func TestCreate_UsesSuppliedID(t *testing.T) {
	repo := newFakeRepo()
	reg := newTestRegistry(repo, newFakeCache())
	id := "0123456789ABCDEF0123456789ABCDEF"

	rec, err := reg.Create(context.Background(), id, payloadFromJSON(t, `{"user": "alice"}`))
	require.NoError(t, err)
	require.Equal(t, id, rec.ID)
	require.Contains(t, repo.records, id)
}

func TestCreate_DefaultExpire(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	rec, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice"}`))
	require.NoError(t, err)
	require.Equal(t, testNow.Add(30*24*time.Hour).Unix(), rec.Expire)
}

func TestCreate_StringExpireStoredAsInteger(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())
	expire := futureExpire(time.Hour)

	rec, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice", "expire": "`+expire+`"}`))
	require.NoError(t, err)
	require.Equal(t, testNow.Add(time.Hour).Unix(), rec.Expire)
}

func TestCreate_ValidationFailure(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	_, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"expire": "`+futureExpire(time.Hour)+`"}`))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "User field is required.", verr.Fields["user"])
	require.Empty(t, repo.records, "validation must run before any I/O")
	require.Zero(t, store.sets)
}

func TestCreate_PastExpireRejectedDespiteValidUser(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())
	past := strconv.FormatInt(testNow.Add(-time.Hour).Unix(), 10)

	_, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice", "expire": "`+past+`"}`))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "expire")
}

func TestCreate_CacheTTLAlignedToRemainingLifetime(t *testing.T) {
	store := newFakeCache()
	reg := newTestRegistry(newFakeRepo(), store)

	// remaining=100s is below the 1h cap: TTL tracks the record.
	_, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice", "expire": "`+futureExpire(100*time.Second)+`"}`))
	require.NoError(t, err)
	require.Equal(t, 100*time.Second, store.lastTTL)

	// remaining=10000s exceeds the cap: TTL is clamped.
	_, err = reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "bob", "expire": "`+futureExpire(10000*time.Second)+`"}`))
	require.NoError(t, err)
	require.Equal(t, 3600*time.Second, store.lastTTL)
}

func TestCreate_InsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = &domain.PersistenceError{Op: "insert"}
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	_, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice"}`))

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Zero(t, store.sets, "failed insert must not populate the cache")
}

func TestGet_MissingID(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	_, err := reg.Get(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMissingID)
}

func TestGet_CacheHitSkipsStore(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	cached := &domain.Record{ID: "AA", User: "alice", Expire: testNow.Add(time.Hour).Unix()}
	store.entries["AA"] = cached

	rec, err := reg.Get(context.Background(), "AA")
	require.NoError(t, err)
	require.Equal(t, cached, rec)
	require.Zero(t, repo.findCalls, "cache hit must not touch the durable store")
}

func TestGet_CacheMissFallsThroughAndRepopulates(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	repo.records["AA"] = &domain.Record{ID: "AA", User: "alice", Expire: testNow.Add(time.Hour).Unix()}

	rec, err := reg.Get(context.Background(), "AA")
	require.NoError(t, err)
	require.Equal(t, "alice", rec.User)
	require.Equal(t, 1, repo.findCalls)
	require.Contains(t, store.entries, "AA", "miss must repopulate the cache")
	require.Equal(t, time.Hour, store.lastTTL)
}

func TestGet_NotFound(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	_, err := reg.Get(context.Background(), "AA")
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestGet_ExpiredRecordIndistinguishableFromAbsent(t *testing.T) {
	repo := newFakeRepo()
	reg := newTestRegistry(repo, newFakeCache())

	repo.records["AA"] = &domain.Record{ID: "AA", User: "alice", Expire: testNow.Unix() - 1}

	_, err := reg.Get(context.Background(), "AA")
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestGet_AfterCreateReturnsCreatedRecord(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	created, err := reg.Create(context.Background(), "", payloadFromJSON(t, `{"user": "alice", "expire": "`+futureExpire(time.Hour)+`"}`))
	require.NoError(t, err)

	got, err := reg.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestUpdate_MergesAndRefreshesCache(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	expire := testNow.Add(2 * time.Hour).Unix()
	repo.records["AA"] = &domain.Record{ID: "AA", User: "alice", Expire: expire}

	rec, err := reg.Update(context.Background(), "AA", payloadFromJSON(t, `{"user": "bob"}`))
	require.NoError(t, err)
	require.Equal(t, "bob", rec.User)
	require.Equal(t, expire, rec.Expire, "unsupplied fields must survive the merge")
	require.Equal(t, rec, store.entries["AA"], "cache must hold the full merged record")
}

func TestUpdate_ShortensExpireAndRealignsTTL(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	repo.records["AA"] = &domain.Record{ID: "AA", User: "alice", Expire: testNow.Add(48 * time.Hour).Unix()}

	rec, err := reg.Update(context.Background(), "AA", payloadFromJSON(t, `{"expire": "`+futureExpire(90*time.Second)+`"}`))
	require.NoError(t, err)
	require.Equal(t, testNow.Add(90*time.Second).Unix(), rec.Expire)
	require.Equal(t, 90*time.Second, store.lastTTL, "cache TTL must track the shortened lifetime")
}

func TestUpdate_MissingID(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	_, err := reg.Update(context.Background(), "", payloadFromJSON(t, `{"user": "bob"}`))
	require.ErrorIs(t, err, domain.ErrMissingID)
}

func TestUpdate_ValidationFailure(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	_, err := reg.Update(context.Background(), "AA", payloadFromJSON(t, `{}`))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "invalid")
}

func TestUpdate_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.updateErr = &domain.PersistenceError{Op: "update"}
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	_, err := reg.Update(context.Background(), "AA", payloadFromJSON(t, `{"user": "bob"}`))
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Zero(t, store.sets)
}

func TestDelete_MissingID(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())
	require.ErrorIs(t, reg.Delete(context.Background(), ""), domain.ErrMissingID)
}

func TestDelete_NotFound(t *testing.T) {
	reg := newTestRegistry(newFakeRepo(), newFakeCache())

	err := reg.Delete(context.Background(), "AA")
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestDelete_RemovesStoreAndCacheEntry(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	rec := &domain.Record{ID: "AA", User: "alice", Expire: testNow.Add(time.Hour).Unix()}
	repo.records["AA"] = rec
	store.entries["AA"] = rec

	require.NoError(t, reg.Delete(context.Background(), "AA"))
	require.NotContains(t, repo.records, "AA")
	require.NotContains(t, store.entries, "AA")

	_, err := reg.Get(context.Background(), "AA")
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestGet_DeadRecordNeverCached(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeCache()
	reg := newTestRegistry(repo, store)

	repo.records["AA"] = &domain.Record{ID: "AA", User: "alice", Expire: testNow.Unix() - 10}
	_, err := reg.Get(context.Background(), "AA")
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
	require.Zero(t, store.sets)
}
