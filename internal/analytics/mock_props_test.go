package analytics_test

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
)

var errMock = errors.New("mock error")

// mockProps is an in-memory PropertyStore that can be told to fail.
type mockProps struct {
	mu        sync.Mutex
	values    map[string][]byte
	getErr    error
	setErr    error
	deleteErr error
	sets      int
}

func newMockProps() *mockProps {
	return &mockProps{values: make(map[string][]byte)}
}

func (m *mockProps) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	v, ok := m.values[key]
	if !ok {
		return nil, analytics.ErrNotFound
	}

	return append([]byte(nil), v...), nil
}

func (m *mockProps) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return m.setErr
	}

	m.sets++
	m.values[key] = append([]byte(nil), value...)

	return nil
}

func (m *mockProps) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}

	if _, ok := m.values[key]; !ok {
		return analytics.ErrNotFound
	}

	delete(m.values, key)

	return nil
}

func (m *mockProps) failGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getErr = err
}

func (m *mockProps) failSets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setErr = err
}
