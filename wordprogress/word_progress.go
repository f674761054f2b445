// Package wordprogress tracks the spaced-repetition state of every word a user
// studies. The state lives in the remote service; while offline it is cached
// on the device and queued for SyncWordProgress.
package wordprogress

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Skyrin/go-safar/e"
	progressmodel "github.com/Skyrin/go-safar/progress/model"
	"github.com/Skyrin/go-safar/remote"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/sync"
	syncmodel "github.com/Skyrin/go-safar/sync/model"
	"github.com/Skyrin/go-safar/wordprogress/model"
	"github.com/rs/zerolog/log"
)

const (
	ECode060101 = e.Code0601 + "01"
	ECode060102 = e.Code0601 + "02"
	ECode060103 = e.Code0601 + "03"
	ECode060104 = e.Code0601 + "04"
	ECode060105 = e.Code0601 + "05"
	ECode060106 = e.Code0601 + "06"
	ECode060107 = e.Code0601 + "07"
	ECode060108 = e.Code0601 + "08"
)

const (
	colID          = "id"
	colUserID      = "user_id"
	colWordID      = "word_id"
	colEaseFactor  = "ease_factor"
	colInterval    = "interval"
	colRepetitions = "repetitions"
	colNextReview  = "next_review"
	colStatus      = "status"
)

var wordConflict = []string{colUserID, colWordID}

// Config the dependencies of a Facade. Now is optional
type Config struct {
	Remote remote.Service
	Local  store.Store
	Queue  *sync.Manager
	Now    func() time.Time
}

// Facade the word progress operations exposed to the app
type Facade struct {
	remote remote.Service
	cache  store.JSON[model.LocalWordProgress]
	queue  *sync.Manager
	now    func() time.Time
}

// New returns a facade over the configured services
func New(c Config) *Facade {
	f := &Facade{
		remote: c.Remote,
		cache:  store.NewJSON[model.LocalWordProgress](c.Local),
		queue:  c.Queue,
		now:    c.Now,
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.queue == nil {
		f.queue = sync.NewManager(c.Local, sync.WithClock(f.now))
	}

	return f
}

// InitializeWordProgress creates the remote state of a word after its first
// review. It has no offline fallback
func (f *Facade) InitializeWordProgress(ctx context.Context, userID, wordID string,
	wasCorrect bool) progressmodel.Result {
	now := f.now()
	interval, repetitions, next := 0, 0, now
	if wasCorrect {
		interval, repetitions, next = 1, 1, now.Add(day)
	}

	err := f.upsertWord(ctx, userID, syncmodel.WordProgress{
		WordID:      wordID,
		EaseFactor:  model.DefaultEaseFactor,
		Interval:    interval,
		Repetitions: repetitions,
		NextReview:  syncmodel.FormatTime(next),
		Status:      string(model.StatusLearning),
	})
	if err != nil {
		err = e.W(err, ECode060101, wordID)
		log.Error().Err(err).Msgf("failed to initialize word progress for user: %s", userID)
		return progressmodel.Fail(e.Cause(err))
	}

	return progressmodel.OK()
}

// UpdateWordProgress writes the new state of a word that already has a
// remote record
func (f *Facade) UpdateWordProgress(ctx context.Context, userID, wordID string,
	sm2 model.SM2Result) progressmodel.Result {
	var rList []remote.Record
	err := remote.Protect(func() (err error) {
		rList, err = f.remote.Update(ctx, remote.TableWordProgress, remote.Record{
			colEaseFactor:  sm2.EaseFactor,
			colInterval:    sm2.Interval,
			colRepetitions: sm2.Repetitions,
			colNextReview:  syncmodel.FormatTime(sm2.NextReview),
			colStatus:      string(DeriveWordStatus(sm2.Repetitions, sm2.Interval)),
		}, sq.Eq{colUserID: userID, colWordID: wordID}, colID)
		return err
	})
	if err != nil {
		err = e.W(err, ECode060102, wordID)
		log.Error().Err(err).Msgf("failed to update word progress for user: %s", userID)
		return progressmodel.Fail(e.Cause(err))
	}

	if len(rList) == 0 {
		return progressmodel.Fail(e.MsgWordProgressNotFound)
	}

	return progressmodel.OK()
}

// SaveWordProgressLocally caches the state of a word on the device and
// queues it for the next SyncWordProgress
func (f *Facade) SaveWordProgressLocally(ctx context.Context, userID, wordID string,
	sm2 model.SM2Result) progressmodel.Result {
	now := f.now()
	nextReview := syncmodel.FormatTime(sm2.NextReview)

	err := f.cache.Set(ctx, store.WordProgressKey(userID, wordID), model.LocalWordProgress{
		EaseFactor:  sm2.EaseFactor,
		Interval:    sm2.Interval,
		Repetitions: sm2.Repetitions,
		NextReview:  nextReview,
		IsSynced:    false,
		UpdatedAt:   syncmodel.FormatTime(now),
	})
	if err != nil {
		err = e.W(err, ECode060103, wordID)
		log.Error().Err(err).Msgf("failed to cache word progress for user: %s", userID)
		return progressmodel.Fail(e.Cause(err))
	}

	err = f.queue.Enqueue(ctx, userID, syncmodel.WordProgress{
		WordID:      wordID,
		EaseFactor:  sm2.EaseFactor,
		Interval:    sm2.Interval,
		Repetitions: sm2.Repetitions,
		NextReview:  nextReview,
		Status:      string(DeriveWordStatus(sm2.Repetitions, sm2.Interval)),
	})
	if err != nil {
		err = e.W(err, ECode060104, wordID)
		log.Error().Err(err).Msgf("failed to queue word progress for user: %s", userID)
		return progressmodel.Fail(e.Cause(err))
	}

	return progressmodel.OK()
}

// GetLocalWordProgress returns the cached state of a word, or nil if there is
// none (or it cannot be read)
func (f *Facade) GetLocalWordProgress(ctx context.Context, userID,
	wordID string) *model.LocalWordProgress {
	lwp, state, err := f.cache.Get(ctx, store.WordProgressKey(userID, wordID))
	if err != nil {
		log.Warn().Err(e.W(err, ECode060105, wordID)).Msg("failed to read cached word progress")
		return nil
	}
	if state != store.Found {
		return nil
	}

	return &lwp
}

// SyncWordProgress replays the user's queued word progress, marking each
// cached word synced once its latest state reached the remote service
func (f *Facade) SyncWordProgress(ctx context.Context, userID string) syncmodel.DrainResult {
	res, err := f.queue.Drain(ctx, userID, syncmodel.KindWordProgress,
		func(ctx context.Context, p syncmodel.Payload) error {
			wp, ok := p.(syncmodel.WordProgress)
			if !ok {
				return e.N(ECode060106, "unexpected payload kind: "+string(p.Kind()))
			}
			if err := f.upsertWord(ctx, userID, wp); err != nil {
				return err
			}

			f.markSynced(ctx, userID, wp)
			return nil
		})
	if err != nil {
		log.Error().Err(err).Msgf("failed to sync word progress for user: %s", userID)
	}

	return res
}

// markSynced flips isSynced on the cached word if it still holds the synced
// state. A newer local save stays unsynced until its own item is applied.
// Failures are only logged
func (f *Facade) markSynced(ctx context.Context, userID string, wp syncmodel.WordProgress) {
	key := store.WordProgressKey(userID, wp.WordID)
	lwp, state, err := f.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(e.W(err, ECode060107, wp.WordID)).Msg("failed to read cached word progress")
		return
	}
	if state != store.Found || lwp.IsSynced ||
		lwp.NextReview != wp.NextReview || lwp.Repetitions != wp.Repetitions {
		return
	}

	lwp.IsSynced = true
	if err := f.cache.Set(ctx, key, lwp); err != nil {
		log.Warn().Err(e.W(err, ECode060108, wp.WordID)).Msg("failed to mark word progress synced")
	}
}

func (f *Facade) upsertWord(ctx context.Context, userID string, wp syncmodel.WordProgress) error {
	return remote.Protect(func() error {
		return f.remote.Upsert(ctx, remote.TableWordProgress, remote.Record{
			colUserID:      userID,
			colWordID:      wp.WordID,
			colEaseFactor:  wp.EaseFactor,
			colInterval:    wp.Interval,
			colRepetitions: wp.Repetitions,
			colNextReview:  wp.NextReview,
			colStatus:      wp.Status,
		}, wordConflict)
	})
}
