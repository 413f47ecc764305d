package kv

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
)

type memCollection struct {
	seq  int64
	rows map[int64][]byte
}

// Memory is an in-process Substrate. Data lives as long as the value does;
// reopening the same Memory (with the same or a newer version) keeps it.
type Memory struct {
	mu          sync.Mutex
	name        string
	version     int
	open        bool
	collections map[string]*memCollection
}

// NewMemory returns an empty in-memory substrate.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

// Open implements Substrate.
func (m *Memory) Open(ctx context.Context, name string, version int, upgrade UpgradeFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.name != "" && m.name != name {
		return fmt.Errorf("memory substrate holds database %q, not %q", m.name, name)
	}
	needsUpgrade, err := CheckVersion(m.version, version)
	if err != nil {
		return err
	}
	if needsUpgrade && upgrade != nil {
		// Stage collections so a failed upgrade leaves nothing behind.
		tx := &memUpgradeTx{m: m, created: make(map[string]*memCollection)}
		if err := upgrade(ctx, tx, m.version, version); err != nil {
			return fmt.Errorf("upgrade %d -> %d: %w", m.version, version, err)
		}
		for name, c := range tx.created {
			m.collections[name] = c
		}
	}
	m.name = name
	m.version = version
	m.open = true
	return nil
}

// Add implements Substrate.
func (m *Memory) Add(ctx context.Context, collection string, key *int64, value []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}

	var k int64
	if key == nil {
		c.seq++
		k = c.seq
	} else {
		k = *key
		if _, exists := c.rows[k]; exists {
			return 0, fmt.Errorf("%w: %d", ErrKeyExists, k)
		}
		if k > c.seq {
			c.seq = k
		}
	}
	c.rows[k] = bytes.Clone(value)
	return k, nil
}

// GetAll implements Substrate.
func (m *Memory) GetAll(ctx context.Context, collection string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(c.rows))
	for k, v := range c.rows {
		entries = append(entries, Entry{Key: k, Value: bytes.Clone(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Delete implements Substrate.
func (m *Memory) Delete(ctx context.Context, collection string, key int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(collection)
	if err != nil {
		return err
	}
	delete(c.rows, key)
	return nil
}

// Count implements Substrate.
func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	return len(c.rows), nil
}

// Close marks the substrate closed. Data is kept for a later Open.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// Version returns the stored schema version (0 before the first Open).
func (m *Memory) Version() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *Memory) collection(name string) (*memCollection, error) {
	if !m.open {
		return nil, ErrNotOpen
	}
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	return c, nil
}

type memUpgradeTx struct {
	m       *Memory
	created map[string]*memCollection
}

func (tx *memUpgradeTx) HasCollection(ctx context.Context, name string) (bool, error) {
	_, ok := tx.m.collections[name]
	if !ok {
		_, ok = tx.created[name]
	}
	return ok, nil
}

func (tx *memUpgradeTx) CreateCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if ok, _ := tx.HasCollection(ctx, name); ok {
		return fmt.Errorf("collection %q already exists", name)
	}
	tx.created[name] = &memCollection{rows: make(map[int64][]byte)}
	return nil
}
