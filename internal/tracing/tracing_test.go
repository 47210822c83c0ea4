package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func TestInitWithoutEndpointRecordsSpans(t *testing.T) {
	shutdown, err := Init(context.Background(), "dm-service", "test", "", zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, shutdown(context.Background())) }()

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}
