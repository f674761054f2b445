// Package sync keeps the per-user queue of mutations that could not be applied
// remotely, and drains it once the remote service is reachable again.
//
// The queue is a JSON array stored under store.SyncQueueKey(userID). Every
// change rewrites the whole array. Calls for the same user and store are
// serialized within the process, across every Manager built over that store;
// separate processes sharing one store are not coordinated.
package sync

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/sync/model"
	"github.com/rs/zerolog/log"
)

const (
	ECode040101 = e.Code0401 + "01"
	ECode040102 = e.Code0401 + "02"
	ECode040103 = e.Code0401 + "03"
	ECode040104 = e.Code0401 + "04"
	ECode040105 = e.Code0401 + "05"
	ECode040106 = e.Code0401 + "06"
	ECode040107 = e.Code0401 + "07"
	ECode040108 = e.Code0401 + "08"
	ECode040109 = e.Code0401 + "09"
	ECode04010A = e.Code0401 + "0A"
	ECode04010B = e.Code0401 + "0B"
	ECode04010C = e.Code0401 + "0C"
)

// ApplyFunc applies one queued payload to the remote service
type ApplyFunc func(ctx context.Context, p model.Payload) error

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used for the createdAt of new items
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager appends to and drains the per-user sync queues
type Manager struct {
	queue store.JSON[[]model.QueueItem]
	now   func() time.Time
	scope any
}

// NewManager returns a manager keeping its queues in the store
func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		queue: store.NewJSON[[]model.QueueItem](s),
		now:   time.Now,
	}

	// managers over the same store share their locks. A store that cannot be
	// a map key only locks against this manager
	m.scope = m
	if s != nil && reflect.TypeOf(s).Comparable() {
		m.scope = s
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

// Enqueue appends the payload to the user's queue. There is no dedup:
// enqueuing the same payload twice stores it twice. A missing or corrupt
// queue is replaced by a new one holding only this item
func (m *Manager) Enqueue(ctx context.Context, userID string, p model.Payload) (err error) {
	if userID == "" {
		return e.N(ECode040101, "user id is required")
	}

	qi, err := model.NewQueueItem(p, m.now())
	if err != nil {
		return e.W(err, ECode040102)
	}

	unlock := locks.lock(m.scope, userID)
	defer unlock()

	key := store.SyncQueueKey(userID)
	qList, state, err := m.queue.Get(ctx, key)
	if err != nil {
		return e.W(err, ECode040103)
	}
	if state == store.Corrupt {
		log.Warn().Msgf("[%s]overwriting corrupt sync queue for user: %s", ECode040104, userID)
	}
	if state != store.Found {
		qList = nil
	}

	qList = append(qList, qi)
	if err := m.queue.Set(ctx, key, qList); err != nil {
		return e.W(err, ECode040105)
	}

	return nil
}

// Drain applies, in order and one at a time, every queued item of the kind.
// Items of other kinds, and items that fail, are kept unchanged and in their
// original order. The key is removed once nothing remains. A stored value that
// is not a JSON array is discarded; malformed items inside an array are kept. Failed counts the items of the kind still queued afterwards
func (m *Manager) Drain(ctx context.Context, userID string, kind model.Kind,
	apply ApplyFunc) (res model.DrainResult, err error) {
	if userID == "" {
		return res, e.N(ECode040106, "user id is required")
	}

	unlock := locks.lock(m.scope, userID)
	defer unlock()

	key := store.SyncQueueKey(userID)
	qList, state, err := m.queue.Get(ctx, key)
	if err != nil {
		return res, e.W(err, ECode040107)
	}

	switch state {
	case store.Missing:
		return res, nil
	case store.Corrupt:
		log.Warn().Msgf("[%s]discarding corrupt sync queue for user: %s", ECode040108, userID)
		if err := m.queue.Remove(ctx, key); err != nil {
			return res, e.W(err, ECode04010B)
		}
		return res, nil
	}

	remaining := make([]model.QueueItem, 0, len(qList))
	for _, qi := range qList {
		if qi.Type != kind {
			remaining = append(remaining, qi)
			continue
		}

		if err := applyItem(ctx, qi, apply); err != nil {
			log.Warn().Err(err).Msgf("[%s]failed to sync %s item for user: %s",
				ECode040109, kind, userID)
			remaining = append(remaining, qi)
			res.Failed++
			continue
		}
		res.Synced++
	}

	if len(remaining) > 0 {
		err = m.queue.Set(ctx, key, remaining)
	} else {
		err = m.queue.Remove(ctx, key)
	}
	if err != nil {
		return res, e.W(err, ECode04010A)
	}

	if res.Synced > 0 || res.Failed > 0 {
		log.Info().Msgf("Synced %s for user %s: %d synced, %d failed",
			kind, userID, res.Synced, res.Failed)
	}

	return res, nil
}

// Pending returns every queued item of the user, in queue order. A corrupt
// queue reads as empty
func (m *Manager) Pending(ctx context.Context, userID string) (qList []model.QueueItem, err error) {
	unlock := locks.lock(m.scope, userID)
	defer unlock()

	qList, state, err := m.queue.Get(ctx, store.SyncQueueKey(userID))
	if err != nil {
		return nil, e.W(err, ECode04010C)
	}
	if state != store.Found {
		return nil, nil
	}

	return qList, nil
}

// Count returns the number of queued items of the kind
func (m *Manager) Count(ctx context.Context, userID string, kind model.Kind) (n int, err error) {
	qList, err := m.Pending(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, qi := range qList {
		if qi.Type == kind {
			n++
		}
	}

	return n, nil
}

// applyItem decodes the item and applies it, turning a panic into an error
func applyItem(ctx context.Context, qi model.QueueItem, apply ApplyFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("apply panicked: %v", r)
		}
	}()

	p, err := qi.Decode()
	if err != nil {
		return err
	}

	return apply(ctx, p)
}

// locks the per-user queue locks of every Manager in the process
var locks = userLocks{m: make(map[lockKey]*userLock)}

// userLocks a mutex per store and user id, released once nobody holds or
// waits on it
type userLocks struct {
	mu sync.Mutex
	m  map[lockKey]*userLock
}

type lockKey struct {
	scope  any
	userID string
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (ul *userLocks) lock(scope any, userID string) (unlock func()) {
	k := lockKey{scope: scope, userID: userID}

	ul.mu.Lock()
	l, ok := ul.m[k]
	if !ok {
		l = &userLock{}
		ul.m[k] = l
	}
	l.refs++
	ul.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		ul.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(ul.m, k)
		}
		ul.mu.Unlock()
	}
}
