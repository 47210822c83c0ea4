package notifications_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/notifications"
)

const routingKey = "notifications.push"

func recipients(pub *mocks.PublisherMock) []string {
	var out []string
	for _, event := range pub.PublishedTo(routingKey) {
		out = append(out, event.(models.Notification).RecipientID)
	}
	return out
}

func TestDispatcherDeliversQueuedNotifications(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, routingKey, mock.Anything).Return(nil)
	d := notifications.NewDispatcher(pub, routingKey, 10, 2, zap.NewNop())
	d.Start()

	for i := 0; i < 5; i++ {
		d.Notify(models.Notification{RecipientID: "bob"})
	}
	d.Stop()

	assert.Len(t, recipients(pub), 5)
	pub.AssertNumberOfCalls(t, "Publish", 5)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, routingKey, mock.Anything).Return(nil)
	d := notifications.NewDispatcher(pub, routingKey, 1, 1, zap.NewNop())

	// not started: the single slot fills and the rest are dropped without blocking
	d.Notify(models.Notification{RecipientID: "a"})
	d.Notify(models.Notification{RecipientID: "b"})
	d.Notify(models.Notification{RecipientID: "c"})

	d.Start()
	d.Stop()
	require.Equal(t, []string{"a"}, recipients(pub))
}

func TestNotifyAfterStopDoesNotPanic(t *testing.T) {
	d := notifications.NewDispatcher(new(mocks.PublisherMock), routingKey, 1, 1, zap.NewNop())
	d.Start()
	d.Stop()
	d.Stop()
	assert.NotPanics(t, func() { d.Notify(models.Notification{RecipientID: "x"}) })
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, routingKey, mock.Anything).Return(assert.AnError).Once()
	d := notifications.NewDispatcher(pub, routingKey, 4, 1, zap.NewNop())
	d.Start()
	d.Notify(models.Notification{RecipientID: "x"})
	d.Stop()

	assert.Equal(t, []string{"x"}, recipients(pub))
	pub.AssertExpectations(t)
}
