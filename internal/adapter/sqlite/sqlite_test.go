package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/build-mesh/internal/adapter/sqlite"
	domainbuild "github.com/alanyang/build-mesh/internal/domain/build"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domaincoord "github.com/alanyang/build-mesh/internal/domain/coordinator"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func submit(t *testing.T, repo *sqlite.BuildRequestRepository, builder string, at time.Time) domainbr.BuildRequest {
	t.Helper()
	req := domainbr.New(builder, 0, []string{"linux"}, "")
	req.SubmittedAt = at
	created, err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	return created
}

func requestIDs(reqs []domainbr.BuildRequest) []int64 {
	out := make([]int64, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

// ── build requests ───────────────────────────────────────────────────────────

func TestBuildRequestRepository_CreateGet(t *testing.T) {
	repo := sqlite.NewBuildRequestRepository(openDB(t))
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	created := submit(t, repo, "linux", at)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, at, created.SubmittedAt)
	assert.Equal(t, []string{"linux"}, created.RequiredTags)

	_, err := repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domainbr.ErrNotFound)
}

func TestBuildRequestRepository_ClaimAndRelease(t *testing.T) {
	repo := sqlite.NewBuildRequestRepository(openDB(t))
	ctx := context.Background()
	base := time.Now().UTC()

	newer := submit(t, repo, "linux", base.Add(time.Minute))
	older := submit(t, repo, "linux", base)
	done := submit(t, repo, "linux", base)
	require.NoError(t, repo.Complete(ctx, []int64{done.ID}, domainbr.ResultSuccess))

	unclaimed, err := repo.ListUnclaimed(ctx, "linux")
	require.NoError(t, err)
	assert.Equal(t, []int64{older.ID, newer.ID}, requestIDs(unclaimed))

	coordA, coordB := uuid.New(), uuid.New()
	first, err := repo.Claim(ctx, []int64{older.ID}, coordA)
	require.NoError(t, err)
	assert.Equal(t, []int64{older.ID}, first.Claimed)

	res, err := repo.Claim(ctx, []int64{older.ID, newer.ID, done.ID, 99}, coordB)
	require.NoError(t, err)
	assert.Equal(t, []int64{newer.ID}, res.Claimed)
	assert.Equal(t, []int64{older.ID, done.ID, 99}, res.Conflicted)

	require.NoError(t, repo.Release(ctx, []int64{older.ID}, coordA))
	require.NoError(t, repo.Release(ctx, []int64{newer.ID}, coordB))
	unclaimed, err = repo.ListUnclaimed(ctx, "linux")
	require.NoError(t, err)
	assert.Len(t, unclaimed, 2)
}

func TestBuildRequestRepository_ReleaseLeavesOtherCoordinatorsClaim(t *testing.T) {
	repo := sqlite.NewBuildRequestRepository(openDB(t))
	ctx := context.Background()
	req := submit(t, repo, "linux", time.Now().UTC())
	coordA, coordB := uuid.New(), uuid.New()

	_, err := repo.Claim(ctx, []int64{req.ID}, coordA)
	require.NoError(t, err)
	_, err = repo.ReleaseByCoordinator(ctx, coordA)
	require.NoError(t, err)
	res, err := repo.Claim(ctx, []int64{req.ID}, coordB)
	require.NoError(t, err)
	require.Equal(t, []int64{req.ID}, res.Claimed)

	require.NoError(t, repo.Release(ctx, []int64{req.ID}, coordA))

	unclaimed, err := repo.ListUnclaimed(ctx, "linux")
	require.NoError(t, err)
	assert.Empty(t, unclaimed)
}

func TestBuildRequestRepository_CompleteUnclaimed(t *testing.T) {
	repo := sqlite.NewBuildRequestRepository(openDB(t))
	ctx := context.Background()

	free := submit(t, repo, "linux", time.Now())
	held := submit(t, repo, "linux", time.Now())
	_, err := repo.Claim(ctx, []int64{held.ID}, uuid.New())
	require.NoError(t, err)

	require.NoError(t, repo.CompleteUnclaimed(ctx, free.ID, domainbr.ResultCancelled))
	got, err := repo.GetByID(ctx, free.ID)
	require.NoError(t, err)
	assert.True(t, got.Complete)
	require.NotNil(t, got.Results)
	assert.Equal(t, domainbr.ResultCancelled, *got.Results)
	assert.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, repo.CompleteUnclaimed(ctx, free.ID, domainbr.ResultCancelled), domainbr.ErrAlreadyComplete)
	assert.ErrorIs(t, repo.CompleteUnclaimed(ctx, held.ID, domainbr.ResultCancelled), domainbr.ErrClaimed)
	assert.ErrorIs(t, repo.CompleteUnclaimed(ctx, 99, domainbr.ResultCancelled), domainbr.ErrNotFound)
}

func TestBuildRequestRepository_ReleaseByCoordinator(t *testing.T) {
	db := openDB(t)
	requests := sqlite.NewBuildRequestRepository(db)
	workers := sqlite.NewWorkerRepository(db)
	builds := sqlite.NewBuildRepository(db)
	ctx := context.Background()
	dead, alive := uuid.New(), uuid.New()
	base := time.Now().UTC()

	a := submit(t, requests, "linux", base)
	b := submit(t, requests, "linux", base.Add(time.Second))
	running := submit(t, requests, "linux", base)
	other := submit(t, requests, "linux", base)
	_, err := requests.Claim(ctx, []int64{b.ID, a.ID, running.ID}, dead)
	require.NoError(t, err)
	_, err = requests.Claim(ctx, []int64{other.ID}, alive)
	require.NoError(t, err)

	w, err := workers.Upsert(ctx, domainworker.New("w1", []string{"linux"}, nil, 1))
	require.NoError(t, err)
	_, err = builds.Create(ctx, domainbuild.New(running, w.ID, dead))
	require.NoError(t, err)

	released, err := requests.ReleaseByCoordinator(ctx, dead)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, requestIDs(released))

	claimedBy := dead
	still, err := requests.List(ctx, domainbr.ListFilters{ClaimedBy: &claimedBy})
	require.NoError(t, err)
	assert.Equal(t, []int64{running.ID}, requestIDs(still))
}

// ── workers ──────────────────────────────────────────────────────────────────

func TestWorkerRepository_AvailableAndSlots(t *testing.T) {
	repo := sqlite.NewWorkerRepository(openDB(t))
	ctx := context.Background()

	w, err := repo.Upsert(ctx, domainworker.New("b-worker", []string{"linux", "mac"}, []string{"gpu"}, 2))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domainworker.New("a-other", []string{"windows"}, nil, 1))
	require.NoError(t, err)

	refs, err := repo.AvailableWorkers(ctx, "mac")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, w.ID, refs[0].Worker().ID)
	assert.Equal(t, []string{"gpu"}, refs[0].Worker().Tags)

	require.NoError(t, repo.ReserveSlot(ctx, w.ID))
	require.NoError(t, repo.ReserveSlot(ctx, w.ID))
	assert.ErrorIs(t, repo.ReserveSlot(ctx, w.ID), domainworker.ErrNoSlot)
	assert.ErrorIs(t, repo.ReserveSlot(ctx, uuid.New()), domainworker.ErrNotFound)

	refs, err = repo.AvailableWorkers(ctx, "mac")
	require.NoError(t, err)
	assert.Empty(t, refs)

	require.NoError(t, repo.FreeSlot(ctx, w.ID))
	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RunningBuilds)
	assert.Equal(t, domainworker.StatusBuilding, got.Status)

	require.NoError(t, repo.FreeSlot(ctx, w.ID))
	require.NoError(t, repo.FreeSlot(ctx, w.ID))
	got, err = repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RunningBuilds)
	assert.Equal(t, domainworker.StatusIdle, got.Status)
}

func TestWorkerRepository_UpsertKeepsIdentity(t *testing.T) {
	repo := sqlite.NewWorkerRepository(openDB(t))
	ctx := context.Background()

	first, err := repo.Upsert(ctx, domainworker.New("w1", []string{"linux"}, nil, 1))
	require.NoError(t, err)
	require.NoError(t, repo.ReserveSlot(ctx, first.ID))
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domainworker.StatusOffline))

	again, err := repo.Upsert(ctx, domainworker.New("w1", []string{"linux", "mac"}, nil, 4))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, again.RunningBuilds)
	assert.Equal(t, 4, again.MaxBuilds)
	assert.Equal(t, domainworker.StatusBuilding, again.Status)

	builder := "mac"
	listed, err := repo.List(ctx, domainworker.ListFilters{Builder: &builder})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, repo.Heartbeat(ctx, first.ID))
	assert.ErrorIs(t, repo.Heartbeat(ctx, uuid.New()), domainworker.ErrNotFound)
}

// ── builds ───────────────────────────────────────────────────────────────────

func TestBuildRepository_Finish(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	req := submit(t, sqlite.NewBuildRequestRepository(db), "linux", time.Now())
	w, err := sqlite.NewWorkerRepository(db).Upsert(ctx, domainworker.New("w1", []string{"linux"}, nil, 1))
	require.NoError(t, err)

	repo := sqlite.NewBuildRepository(db)
	b, err := repo.Create(ctx, domainbuild.New(req, w.ID, uuid.New()))
	require.NoError(t, err)

	running, err := repo.ListRunningByWorker(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, running, 1)

	require.NoError(t, repo.Finish(ctx, b.ID, domainbr.ResultFailure))
	assert.ErrorIs(t, repo.Finish(ctx, b.ID, domainbr.ResultSuccess), domainbuild.ErrAlreadyFinished)
	assert.ErrorIs(t, repo.Finish(ctx, uuid.New(), domainbr.ResultSuccess), domainbuild.ErrNotFound)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, domainbr.ResultFailure, *got.Results)
}

// ── coordinators and idempotency ─────────────────────────────────────────────

func TestCoordinatorRepository_ListStale(t *testing.T) {
	repo := sqlite.NewCoordinatorRepository(openDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	stale := domaincoord.New("stale")
	stale.LastSeenAt = now.Add(-time.Hour)
	fresh := domaincoord.New("fresh")
	require.NoError(t, repo.Register(ctx, stale))
	require.NoError(t, repo.Register(ctx, fresh))

	got, err := repo.ListStale(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)

	require.NoError(t, repo.SetActive(ctx, stale.ID, false))
	got, err = repo.ListStale(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIdempotencyStore_FirstWriteWins(t *testing.T) {
	store := sqlite.NewIdempotencyStore(openDB(t))
	ctx := context.Background()

	_, found, err := store.Check(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Store(ctx, "k1", "submit", []byte(`{"id":1}`)))
	require.NoError(t, store.Store(ctx, "k1", "submit", []byte(`{"id":2}`)))

	got, found, err := store.Check(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"id":1}`, string(got))

	n, err := store.Prune(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
