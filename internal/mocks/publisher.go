package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// PublisherMock stands in for the AMQP publisher behind audit events,
// push notifications and ws_events.
type PublisherMock struct {
	mock.Mock

	mu        sync.Mutex
	published map[string][]any
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.published == nil {
		m.published = make(map[string][]any)
	}
	m.published[routingKey] = append(m.published[routingKey], event)
	return args.Error(0)
}

// PublishedTo returns the events handed to Publish for routingKey, in order.
// It is safe to poll while publishers run in other goroutines.
func (m *PublisherMock) PublishedTo(routingKey string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.published[routingKey]...)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
