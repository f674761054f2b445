// Package progress records lesson completion and profile preferences. Writes go
// to the remote service first and fall back to the device store when it cannot
// be reached; SyncOfflineProgress replays what was queued.
package progress

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/progress/model"
	"github.com/Skyrin/go-safar/remote"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/sync"
	syncmodel "github.com/Skyrin/go-safar/sync/model"
	"github.com/Skyrin/go-safar/telemetry"
	"github.com/rs/zerolog/log"
)

const (
	ECode050101 = e.Code0501 + "01"
	ECode050102 = e.Code0501 + "02"
	ECode050103 = e.Code0501 + "03"
	ECode050104 = e.Code0501 + "04"
	ECode050105 = e.Code0501 + "05"
	ECode050106 = e.Code0501 + "06"
	ECode050107 = e.Code0501 + "07"
	ECode050108 = e.Code0501 + "08"
	ECode050109 = e.Code0501 + "09"
	ECode05010A = e.Code0501 + "0A"
	ECode05010B = e.Code0501 + "0B"
	ECode05010C = e.Code0501 + "0C"
)

const (
	colUserID                = "user_id"
	colLessonID              = "lesson_id"
	colCompletedAt           = "completed_at"
	colIsSynced              = "is_synced"
	colID                    = "id"
	colOnboardingCompleted   = "onboarding_completed"
	colOnboardingCompletedAt = "onboarding_completed_at"
	colScriptReadingAbility  = "script_reading_ability"

	onboardingTrue  = "true"
	onboardingFalse = "false"
)

var lessonConflict = []string{colUserID, colLessonID}

// Config the dependencies of a Facade. Reporter and Now are optional
type Config struct {
	Remote   remote.Service
	Local    store.Store
	Queue    *sync.Manager
	Reporter telemetry.Reporter
	Now      func() time.Time
}

// Facade the progress operations exposed to the app. No method returns an
// error or panics; failures are reported through model.Result
type Facade struct {
	remote   remote.Service
	local    store.Store
	queue    *sync.Manager
	reporter telemetry.Reporter
	now      func() time.Time
}

// New returns a facade over the configured services
func New(c Config) *Facade {
	f := &Facade{
		remote:   c.Remote,
		local:    c.Local,
		queue:    c.Queue,
		reporter: c.Reporter,
		now:      c.Now,
	}
	if f.reporter == nil {
		f.reporter = telemetry.Nop{}
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.queue == nil {
		f.queue = sync.NewManager(c.Local, sync.WithClock(f.now))
	}

	return f
}

// MarkLessonComplete records the lesson as completed now. If the remote write
// fails the completion is queued, and the call succeeds even when queuing
// fails too
func (f *Facade) MarkLessonComplete(ctx context.Context, userID, lessonID string) model.Result {
	lc := syncmodel.LessonComplete{
		LessonID:    lessonID,
		CompletedAt: syncmodel.FormatTime(f.now()),
	}

	err := f.upsertLesson(ctx, userID, lc)
	if err == nil {
		return model.OK()
	}

	log.Warn().Err(err).Msgf("[%s]queuing lesson %s completion for user: %s",
		ECode050101, lessonID, userID)

	if err := f.queue.Enqueue(ctx, userID, lc); err != nil {
		err = e.W(err, ECode050102, lessonID)
		log.Error().Err(err).Msgf("lesson completion lost for user: %s", userID)
		telemetry.Capture(f.reporter, err, telemetry.LevelError, map[string]string{
			"operation": "mark_lesson_complete",
			"user_id":   userID,
		})
	}

	return model.OK()
}

// CompleteOnboarding marks the user's onboarding as done
func (f *Facade) CompleteOnboarding(ctx context.Context, userID string) model.Result {
	return f.setOnboarding(ctx, userID, true)
}

// ResetOnboarding clears the user's onboarding flag
func (f *Facade) ResetOnboarding(ctx context.Context, userID string) model.Result {
	return f.setOnboarding(ctx, userID, false)
}

func (f *Facade) setOnboarding(ctx context.Context, userID string, completed bool) model.Result {
	values := remote.Record{
		colOnboardingCompleted:   completed,
		colOnboardingCompletedAt: nil,
	}
	fallback := onboardingFalse
	op := "reset_onboarding"
	if completed {
		values[colOnboardingCompletedAt] = syncmodel.FormatTime(f.now())
		fallback = onboardingTrue
		op = "complete_onboarding"
	}

	return f.updateProfile(ctx, userID, op, values, store.OnboardingKey(userID), fallback)
}

// SaveScriptAbility stores how well the user reads the script
func (f *Facade) SaveScriptAbility(ctx context.Context, userID string,
	ability model.ScriptAbility) model.Result {
	if !ability.Valid() {
		return model.Fail("invalid script ability: " + string(ability))
	}

	return f.updateProfile(ctx, userID, "save_script_ability",
		remote.Record{colScriptReadingAbility: string(ability)},
		store.ScriptAbilityKey(userID), string(ability))
}

// updateProfile writes values to the user's profile. A schema error fails the
// call. Any other failure keeps fallback under key instead, and a successful
// write clears key
func (f *Facade) updateProfile(ctx context.Context, userID, op string, values remote.Record,
	key, fallback string) model.Result {
	err := remote.Protect(func() error {
		_, err := f.remote.Update(ctx, remote.TableProfiles, values, sq.Eq{colID: userID})
		return err
	})
	if err == nil {
		if err := f.local.Remove(ctx, key); err != nil {
			log.Warn().Err(err).Msgf("[%s]failed to clear %s", ECode050103, key)
		}
		return model.OK()
	}

	if remote.IsSchemaError(err) {
		err = e.W(err, ECode050104, op)
		log.Error().Err(err).Msgf("%s failed for user: %s", op, userID)
		telemetry.Capture(f.reporter, err, telemetry.LevelError, map[string]string{
			"operation": op,
			"user_id":   userID,
		})
		return model.Fail(e.MsgDatabaseConfiguration)
	}

	log.Warn().Err(err).Msgf("[%s]%s saved locally for user: %s", ECode050105, op, userID)
	if err := f.local.Set(ctx, key, fallback); err != nil {
		err = e.W(err, ECode050106, key)
		log.Error().Err(err).Msgf("%s failed for user: %s", op, userID)
		return model.Fail(e.Cause(err))
	}

	return model.OK()
}

// IsOnboardingComplete returns the remote onboarding flag, falling back to
// the locally saved one. Unknown reads as false
func (f *Facade) IsOnboardingComplete(ctx context.Context, userID string) bool {
	r, err := f.selectProfile(ctx, userID, colOnboardingCompleted)
	if err == nil {
		if _, ok := r[colOnboardingCompleted].(bool); ok {
			return r.Bool(colOnboardingCompleted)
		}
	} else {
		log.Debug().Err(err).Msgf("[%s]reading local onboarding flag", ECode050107)
	}

	v, ok, err := f.local.Get(ctx, store.OnboardingKey(userID))
	if err != nil {
		log.Warn().Err(e.W(err, ECode050108)).Msg("failed to read local onboarding flag")
		return false
	}

	return ok && v == onboardingTrue
}

// GetScriptAbility returns the user's script ability, or nil if neither the
// remote profile nor the device has one
func (f *Facade) GetScriptAbility(ctx context.Context, userID string) *model.ScriptAbility {
	r, err := f.selectProfile(ctx, userID, colScriptReadingAbility)
	if err == nil {
		if v := r.String(colScriptReadingAbility); v != "" {
			sa := model.ScriptAbility(v)
			return &sa
		}
	} else {
		log.Debug().Err(err).Msgf("[%s]reading local script ability", ECode050109)
	}

	v, ok, err := f.local.Get(ctx, store.ScriptAbilityKey(userID))
	if err != nil {
		log.Warn().Err(e.W(err, ECode05010A)).Msg("failed to read local script ability")
		return nil
	}
	if !ok {
		return nil
	}

	// older builds stored the value JSON encoded
	var quoted string
	if json.Unmarshal([]byte(v), &quoted) == nil {
		v = quoted
	}
	if v == "" {
		return nil
	}

	sa := model.ScriptAbility(v)
	return &sa
}

func (f *Facade) selectProfile(ctx context.Context, userID, col string) (r remote.Record, err error) {
	err = remote.Protect(func() error {
		r, err = remote.SelectSingle(ctx, f.remote, remote.TableProfiles, []string{col},
			sq.Eq{colID: userID})
		return err
	})

	return r, err
}

// FetchLessonProgress returns the user's completed lessons. Any failure reads
// as no lessons
func (f *Facade) FetchLessonProgress(ctx context.Context, userID string) []model.LessonProgress {
	var rList []remote.Record
	err := remote.Protect(func() (err error) {
		rList, err = f.remote.Select(ctx, remote.TableLessonProgress, nil,
			sq.Eq{colUserID: userID})
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msgf("[%s]failed to fetch lesson progress for user: %s",
			ECode05010B, userID)
		return []model.LessonProgress{}
	}

	lpList := make([]model.LessonProgress, 0, len(rList))
	for _, r := range rList {
		lpList = append(lpList, model.LessonProgress{
			ID:          r.String(colID),
			UserID:      r.String(colUserID),
			LessonID:    r.String(colLessonID),
			CompletedAt: r.String(colCompletedAt),
			IsSynced:    r.Bool(colIsSynced),
		})
	}

	return lpList
}

// SyncOfflineProgress replays the user's queued lesson completions
func (f *Facade) SyncOfflineProgress(ctx context.Context, userID string) syncmodel.DrainResult {
	res, err := f.queue.Drain(ctx, userID, syncmodel.KindLessonComplete,
		func(ctx context.Context, p syncmodel.Payload) error {
			lc, ok := p.(syncmodel.LessonComplete)
			if !ok {
				return e.N(ECode05010C, "unexpected payload kind: "+string(p.Kind()))
			}
			return f.upsertLesson(ctx, userID, lc)
		})
	if err != nil {
		log.Error().Err(err).Msgf("failed to sync offline progress for user: %s", userID)
	}

	return res
}

func (f *Facade) upsertLesson(ctx context.Context, userID string, lc syncmodel.LessonComplete) error {
	return remote.Protect(func() error {
		return f.remote.Upsert(ctx, remote.TableLessonProgress, remote.Record{
			colUserID:      userID,
			colLessonID:    lc.LessonID,
			colCompletedAt: lc.CompletedAt,
			colIsSynced:    true,
		}, lessonConflict)
	})
}
