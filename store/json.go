package store

import (
	"context"
	"encoding/json"

	"github.com/Skyrin/go-safar/e"
)

const (
	ECode020201 = e.Code0202 + "01"
	ECode020202 = e.Code0202 + "02"
	ECode020203 = e.Code0202 + "03"
	ECode020204 = e.Code0202 + "04"
)

// State the outcome of reading a JSON value
type State int

const (
	// Missing the key does not exist
	Missing State = iota
	// Found the key exists and its value decoded
	Found
	// Corrupt the key exists but its value is not valid JSON for the type
	Corrupt
)

// JSON a typed view over a Store that (de)serializes values as JSON. A value
// that fails to decode is reported as Corrupt rather than as an error, so
// callers can treat it as absent
type JSON[T any] struct {
	store Store
}

// NewJSON returns a typed JSON view over the store
func NewJSON[T any](s Store) JSON[T] {
	return JSON[T]{store: s}
}

// Get reads and decodes the value for the key
func (j JSON[T]) Get(ctx context.Context, key string) (v T, state State, err error) {
	raw, ok, err := j.store.Get(ctx, key)
	if err != nil {
		return v, Missing, e.W(err, ECode020201)
	}
	if !ok {
		return v, Missing, nil
	}

	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero, Corrupt, nil
	}

	return v, Found, nil
}

// Set encodes and writes the value for the key
func (j JSON[T]) Set(ctx context.Context, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return e.W(err, ECode020202)
	}

	if err := j.store.Set(ctx, key, string(b)); err != nil {
		return e.W(err, ECode020203)
	}

	return nil
}

// Remove deletes the key
func (j JSON[T]) Remove(ctx context.Context, key string) error {
	if err := j.store.Remove(ctx, key); err != nil {
		return e.W(err, ECode020204)
	}

	return nil
}
