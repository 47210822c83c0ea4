package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"dm-service/internal/mocks"
	"dm-service/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(pub, "audit.dm", "dm-service", "test", zap.NewNop())

	pub.On("Publish", mock.Anything, "audit.dm", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Action == telemetry.AuditMediaDeleted && env.ActorID == "alice" && env.Service == "dm-service"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "req-1", "alice", telemetry.AuditPayload{Action: telemetry.AuditMediaDeleted, MessageID: "m1"})
	pub.AssertExpectations(t)
	assert.Len(t, pub.PublishedTo("audit.dm"), 1)
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(pub, "audit.dm", "dm-service", "test", zap.NewNop())
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "", "admin", telemetry.AuditPayload{Action: telemetry.AuditMessageHidden, MessageID: "m1"})
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "", "", telemetry.AuditPayload{})
	})
}
