package services

import (
	"context"
	"sync"

	"github.com/kendall-kelly/stitchwise-api/models"
)

// MockEventPublisher records published events for tests
type MockEventPublisher struct {
	mu        sync.Mutex
	published []models.OutboxEvent
	failOn    map[string]error
}

// NewMockEventPublisher creates an empty mock publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{failOn: make(map[string]error)}
}

// FailOn makes Publish return err for events of eventType
func (m *MockEventPublisher) FailOn(eventType string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[eventType] = err
}

// Publish records the event
func (m *MockEventPublisher) Publish(_ context.Context, event models.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[event.Type]; ok {
		return err
	}
	m.published = append(m.published, event)
	return nil
}

// Published returns a copy of the recorded events
func (m *MockEventPublisher) Published() []models.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OutboxEvent(nil), m.published...)
}

// Close does nothing
func (m *MockEventPublisher) Close() error {
	return nil
}
