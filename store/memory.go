package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Skyrin/go-safar/e"
)

const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"

	ECode020301 = e.Code0203 + "01"
	ECode020302 = e.Code0203 + "02"
	ECode020303 = e.Code0203 + "03"
)

// Op a recorded call against the Memory store
type Op struct {
	Method string
	Key    string
	Value  string
}

// Memory an in-memory Store. Every call is recorded, and an optional Hook can
// fail calls, which makes it usable as a test double for device storage
type Memory struct {
	// Hook is called before each operation; a returned error fails the call
	Hook func(op Op) error

	mu   sync.Mutex
	data map[string]string
	ops  []Op
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
	}
}

// Get implements Store
func (m *Memory) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	if err := m.record(ctx, Op{Method: OpGet, Key: key}); err != nil {
		return "", false, e.W(err, ECode020301)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok = m.data[key]

	return value, ok, nil
}

// Set implements Store
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := m.record(ctx, Op{Method: OpSet, Key: key, Value: value}); err != nil {
		return e.W(err, ECode020302)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value

	return nil
}

// Remove implements Store
func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := m.record(ctx, Op{Method: OpRemove, Key: key}); err != nil {
		return e.W(err, ECode020303)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)

	return nil
}

// Ops returns a copy of all recorded operations
func (m *Memory) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Op(nil), m.ops...)
}

// Writes returns the number of Set calls made for the key
func (m *Memory) Writes(key string) (n int) {
	for _, op := range m.Ops() {
		if op.Method == OpSet && op.Key == key {
			n++
		}
	}

	return n
}

// Keys returns the sorted list of stored keys
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func (m *Memory) record(ctx context.Context, op Op) error {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	hook := m.Hook
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(op)
	}

	return nil
}
