// Package store provides the on-device key-value store used for offline
// fallbacks and the sync queue. Values are strings; structured values are JSON
// encoded through the JSON wrapper.
package store

import (
	"context"
	"fmt"
)

// Store a persistent, per-device key-value store. There are no transactions
// and no ordering guarantees across keys.
type Store interface {
	// Get returns the value for the key and whether it exists
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set creates or overwrites the value for the key
	Set(ctx context.Context, key, value string) error
	// Remove deletes the key. Removing a missing key is not an error
	Remove(ctx context.Context, key string) error
}

// The key formats below are shared with data already persisted on devices and
// must not change.

// SyncQueueKey returns the key holding the user's pending sync queue
func SyncQueueKey(userID string) string {
	return "sync_queue_" + userID
}

// OnboardingKey returns the key holding the user's offline onboarding flag
func OnboardingKey(userID string) string {
	return "onboarding_completed_" + userID
}

// ScriptAbilityKey returns the key holding the user's offline script ability
func ScriptAbilityKey(userID string) string {
	return "script_ability_" + userID
}

// WordProgressKey returns the key holding the cached progress for one word
func WordProgressKey(userID, wordID string) string {
	return fmt.Sprintf("word_progress:%s:%s", userID, wordID)
}
