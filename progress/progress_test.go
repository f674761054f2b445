package progress

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/progress/model"
	"github.com/Skyrin/go-safar/remote"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/sync"
	syncmodel "github.com/Skyrin/go-safar/sync/model"
	"github.com/Skyrin/go-safar/telemetry"
	"github.com/Skyrin/go-safar/wordprogress"
	wpmodel "github.com/Skyrin/go-safar/wordprogress/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "u1"

var errNetwork = errors.New("TypeError: Network request failed")

type fixture struct {
	facade   *Facade
	remote   *remote.Memory
	local    *store.Memory
	queue    *sync.Manager
	reporter *telemetry.Recorder
}

func newFixture() *fixture {
	fx := &fixture{
		remote:   remote.NewMemory(),
		local:    store.NewMemory(),
		reporter: &telemetry.Recorder{},
	}
	fx.queue = sync.NewManager(fx.local)
	fx.facade = New(Config{
		Remote:   fx.remote,
		Local:    fx.local,
		Queue:    fx.queue,
		Reporter: fx.reporter,
	})
	fx.remote.Seed(remote.TableProfiles, remote.Record{"id": userID})

	return fx
}

func failOp(op string, err error) func(c remote.Call) error {
	return func(c remote.Call) error {
		if c.Op == op {
			return err
		}
		return nil
	}
}

func TestMarkLessonCompleteIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	assert.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))
	assert.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))

	rows := fx.remote.Rows(remote.TableLessonProgress)
	require.Len(t, rows, 1)
	assert.Equal(t, userID, rows[0]["user_id"])
	assert.Equal(t, "l1", rows[0]["lesson_id"])
	assert.Equal(t, true, rows[0]["is_synced"])

	for _, c := range fx.remote.Calls() {
		assert.Equal(t, []string{"user_id", "lesson_id"}, c.OnConflict)
	}
	assert.Empty(t, fx.local.Keys())
}

func TestMarkLessonCompleteOffline(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = failOp(remote.OpUpsert, errNetwork)

	start := time.Now().UTC().Truncate(time.Millisecond)
	res := fx.facade.MarkLessonComplete(ctx, userID, "l1")
	end := time.Now().UTC()
	assert.Equal(t, model.OK(), res)

	qList, err := fx.queue.Pending(ctx, userID)
	require.NoError(t, err)
	require.Len(t, qList, 1)
	assert.Equal(t, syncmodel.KindLessonComplete, qList[0].Type)

	p, err := qList[0].Decode()
	require.NoError(t, err)
	lc := p.(syncmodel.LessonComplete)
	assert.Equal(t, "l1", lc.LessonID)

	completedAt, err := time.Parse(syncmodel.TimeFormat, lc.CompletedAt)
	require.NoError(t, err)
	assert.False(t, completedAt.Before(start))
	assert.False(t, completedAt.After(end))
}

func TestMarkLessonCompletePanic(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = func(remote.Call) error { panic("client not initialized") }

	assert.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))

	n, err := fx.queue.Count(ctx, userID, syncmodel.KindLessonComplete)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMarkLessonCompleteQueueFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = failOp(remote.OpUpsert, errNetwork)
	fx.local.Hook = func(op store.Op) error {
		if op.Method == store.OpSet {
			return errors.New("quota exceeded")
		}
		return nil
	}

	assert.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))
	assert.Empty(t, fx.local.Keys())

	evList := fx.reporter.Events()
	require.Len(t, evList, 1)
	assert.Equal(t, telemetry.LevelError, evList[0].Level)
	assert.Equal(t, "mark_lesson_complete", evList[0].Tags["operation"])
}

func TestFacadesShareQueueLock(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemory()
	rm := remote.NewMemory()
	rm.Hook = func(remote.Call) error { return errNetwork }

	pf := New(Config{Remote: rm, Local: local})
	wf := wordprogress.New(wordprogress.Config{Remote: rm, Local: local})

	var wg gosync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.True(t, pf.MarkLessonComplete(ctx, userID, fmt.Sprintf("l%d", i)).Success)
		}(i)
		go func(i int) {
			defer wg.Done()
			res := wf.SaveWordProgressLocally(ctx, userID, fmt.Sprintf("w%d", i), wpmodel.SM2Result{
				EaseFactor:  wpmodel.DefaultEaseFactor,
				Interval:    1,
				Repetitions: 1,
				NextReview:  time.Now(),
			})
			assert.True(t, res.Success)
		}(i)
	}
	wg.Wait()

	queue := sync.NewManager(local)
	n, err := queue.Count(ctx, userID, syncmodel.KindLessonComplete)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = queue.Count(ctx, userID, syncmodel.KindWordProgress)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestCompleteOnboardingClearsFallback(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	require.NoError(t, fx.local.Set(ctx, store.OnboardingKey(userID), "true"))

	assert.Equal(t, model.OK(), fx.facade.CompleteOnboarding(ctx, userID))

	assert.NotContains(t, fx.local.Keys(), store.OnboardingKey(userID))
	rows := fx.remote.Rows(remote.TableProfiles)
	assert.Equal(t, true, rows[0]["onboarding_completed"])
	assert.NotNil(t, rows[0]["onboarding_completed_at"])

	calls := fx.remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, sq.Eq{"id": userID}, calls[0].Where)
	assert.True(t, fx.facade.IsOnboardingComplete(ctx, userID))
}

func TestCompleteOnboardingSchemaError(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = failOp(remote.OpUpdate,
		errors.New(`column "onboarding_completed" of relation "user_profiles" does not exist`))

	res := fx.facade.CompleteOnboarding(ctx, userID)
	assert.Equal(t, model.Fail(e.MsgDatabaseConfiguration), res)

	assert.Zero(t, fx.local.Writes(store.OnboardingKey(userID)))

	evList := fx.reporter.Events()
	require.Len(t, evList, 1)
	assert.Equal(t, telemetry.LevelError, evList[0].Level)
	assert.Equal(t, "complete_onboarding", evList[0].Tags["operation"])
}

func TestCompleteOnboardingOffline(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = func(remote.Call) error { return errNetwork }

	assert.Equal(t, model.OK(), fx.facade.CompleteOnboarding(ctx, userID))

	v, ok, err := fx.local.Get(ctx, store.OnboardingKey(userID))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
	assert.True(t, fx.facade.IsOnboardingComplete(ctx, userID))
	assert.Empty(t, fx.reporter.Events())
}

func TestResetOnboarding(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	require.Equal(t, model.OK(), fx.facade.CompleteOnboarding(ctx, userID))

	assert.Equal(t, model.OK(), fx.facade.ResetOnboarding(ctx, userID))
	rows := fx.remote.Rows(remote.TableProfiles)
	assert.Equal(t, false, rows[0]["onboarding_completed"])
	assert.Nil(t, rows[0]["onboarding_completed_at"])
	assert.False(t, fx.facade.IsOnboardingComplete(ctx, userID))

	// offline, the local flag records the reset
	fx.remote.Hook = func(remote.Call) error { return errNetwork }
	assert.Equal(t, model.OK(), fx.facade.ResetOnboarding(ctx, userID))
	v, _, _ := fx.local.Get(ctx, store.OnboardingKey(userID))
	assert.Equal(t, "false", v)
	assert.False(t, fx.facade.IsOnboardingComplete(ctx, userID))
}

func TestIsOnboardingCompleteUnknownUser(t *testing.T) {
	fx := newFixture()
	assert.False(t, fx.facade.IsOnboardingComplete(context.Background(), "nobody"))
}

func TestSaveScriptAbility(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	res := fx.facade.SaveScriptAbility(ctx, userID, "expert")
	assert.False(t, res.Success)
	assert.Empty(t, fx.remote.Calls())

	require.NoError(t, fx.local.Set(ctx, store.ScriptAbilityKey(userID), "learning"))
	assert.Equal(t, model.OK(), fx.facade.SaveScriptAbility(ctx, userID, model.ScriptAbilityFluent))
	assert.Equal(t, "fluent", fx.remote.Rows(remote.TableProfiles)[0]["script_reading_ability"])
	assert.NotContains(t, fx.local.Keys(), store.ScriptAbilityKey(userID))

	fx.remote.Hook = func(remote.Call) error { return errNetwork }
	assert.Equal(t, model.OK(), fx.facade.SaveScriptAbility(ctx, userID, model.ScriptAbilityLearning))
	v, _, _ := fx.local.Get(ctx, store.ScriptAbilityKey(userID))
	assert.Equal(t, "learning", v)

	fx.remote.Hook = failOp(remote.OpUpdate, errors.New(`column "script_reading_ability" does not exist`))
	res = fx.facade.SaveScriptAbility(ctx, userID, model.ScriptAbilityFluent)
	assert.Equal(t, model.Fail(e.MsgDatabaseConfiguration), res)
	// only the seeded value and the offline save were ever written
	assert.Equal(t, 2, fx.local.Writes(store.ScriptAbilityKey(userID)))
}

func TestGetScriptAbility(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	// remote has no value and nothing is cached
	assert.Nil(t, fx.facade.GetScriptAbility(ctx, userID))

	require.Equal(t, model.OK(), fx.facade.SaveScriptAbility(ctx, userID, model.ScriptAbilityFluent))
	sa := fx.facade.GetScriptAbility(ctx, userID)
	require.NotNil(t, sa)
	assert.Equal(t, model.ScriptAbilityFluent, *sa)

	fx.remote.Hook = failOp(remote.OpSelect, errNetwork)
	assert.Nil(t, fx.facade.GetScriptAbility(ctx, userID))

	require.NoError(t, fx.local.Set(ctx, store.ScriptAbilityKey(userID), "learning"))
	sa = fx.facade.GetScriptAbility(ctx, userID)
	require.NotNil(t, sa)
	assert.Equal(t, model.ScriptAbilityLearning, *sa)

	require.NoError(t, fx.local.Set(ctx, store.ScriptAbilityKey(userID), `"fluent"`))
	sa = fx.facade.GetScriptAbility(ctx, userID)
	require.NotNil(t, sa)
	assert.Equal(t, model.ScriptAbilityFluent, *sa)
}

func TestFetchLessonProgress(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	require.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))
	require.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, "u2", "l2"))

	lpList := fx.facade.FetchLessonProgress(ctx, userID)
	require.Len(t, lpList, 1)
	assert.Equal(t, "l1", lpList[0].LessonID)
	assert.Equal(t, userID, lpList[0].UserID)
	assert.True(t, lpList[0].IsSynced)
	assert.NotEmpty(t, lpList[0].ID)
	assert.NotEmpty(t, lpList[0].CompletedAt)

	fx.remote.Hook = failOp(remote.OpSelect, errNetwork)
	lpList = fx.facade.FetchLessonProgress(ctx, userID)
	assert.NotNil(t, lpList)
	assert.Empty(t, lpList)
}

func TestSyncOfflineProgressPartialFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = failOp(remote.OpUpsert, errNetwork)
	require.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))
	require.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l2"))

	fx.remote.Hook = func(c remote.Call) error {
		if c.Op == remote.OpUpsert && c.Row["lesson_id"] == "l2" {
			return errNetwork
		}
		return nil
	}
	res := fx.facade.SyncOfflineProgress(ctx, userID)
	assert.Equal(t, syncmodel.DrainResult{Synced: 1, Failed: 1}, res)

	qList, err := fx.queue.Pending(ctx, userID)
	require.NoError(t, err)
	require.Len(t, qList, 1)
	p, err := qList[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "l2", p.(syncmodel.LessonComplete).LessonID)
}

func TestOfflineRoundTrip(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.remote.Hook = failOp(remote.OpUpsert, errNetwork)
	require.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l1"))
	require.Equal(t, model.OK(), fx.facade.MarkLessonComplete(ctx, userID, "l2"))
	assert.Empty(t, fx.remote.Rows(remote.TableLessonProgress))

	fx.remote.Hook = nil
	res := fx.facade.SyncOfflineProgress(ctx, userID)
	assert.Equal(t, syncmodel.DrainResult{Synced: 2, Failed: 0}, res)

	assert.NotContains(t, fx.local.Keys(), store.SyncQueueKey(userID))
	rows := fx.remote.Rows(remote.TableLessonProgress)
	require.Len(t, rows, 2)
	assert.Equal(t, "l1", rows[0]["lesson_id"])
	assert.Equal(t, "l2", rows[1]["lesson_id"])

	// draining again is a no-op
	assert.Equal(t, syncmodel.DrainResult{}, fx.facade.SyncOfflineProgress(ctx, userID))
}

func TestSyncOfflineProgressStoreFailure(t *testing.T) {
	fx := newFixture()
	fx.local.Hook = func(store.Op) error { return errors.New("storage unavailable") }

	assert.Equal(t, syncmodel.DrainResult{}, fx.facade.SyncOfflineProgress(context.Background(), userID))
}
