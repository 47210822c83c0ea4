package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/observability"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	writeErr error
	closed   bool
	// release, when set, holds every write until it is closed
	release chan struct{}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.release != nil {
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := &fakeConn{}

	hub.AddClient("c1", conn, ConnInfo{ConnID: "x"})
	assert.Equal(t, 1, hub.RoomSize("c1"))

	hub.RemoveClient("c1", conn)
	hub.RemoveClient("c1", conn)
	assert.Zero(t, hub.RoomSize("c1"))
	assert.Empty(t, hub.rooms)
	assert.False(t, conn.isClosed(), "the read loop owns closing on disconnect")
}

func TestBroadcastChangeReachesOnlyTheRoom(t *testing.T) {
	hub := NewHub(nil, nil)
	inRoom, elsewhere := &fakeConn{}, &fakeConn{}
	hub.AddClient("c1", inRoom, ConnInfo{})
	hub.AddClient("c2", elsewhere, ConnInfo{})
	t.Cleanup(func() {
		hub.RemoveClient("c1", inRoom)
		hub.RemoveClient("c2", elsewhere)
	})

	hub.BroadcastChange(models.ChatEvent{Type: models.EventMessage, ConversationID: "c1", MessageID: "m1"})

	require.Eventually(t, func() bool { return len(inRoom.writes()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, elsewhere.writes())
	var got models.ChatEvent
	require.NoError(t, json.Unmarshal(inRoom.writes()[0], &got))
	assert.Equal(t, "m1", got.MessageID)
	assert.Equal(t, models.EventMessage, got.Type)
}

func TestBroadcastChangeDropsBrokenConnection(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, routingKeyWS, mock.MatchedBy(func(e observability.EventEnvelope) bool {
		return e.EventName == "ws_error" && e.Headers["x-request-id"] == "req-1"
	})).Return(nil).Once()

	hub := NewHub(publisher, nil)
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	hub.AddClient("c1", broken, ConnInfo{ConnID: "x", RequestID: "req-1", ConversationID: "c1"})

	hub.BroadcastChange(models.ChatEvent{Type: models.EventRead, ConversationID: "c1"})

	require.Eventually(t, func() bool { return broken.isClosed() && hub.RoomSize("c1") == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(publisher.PublishedTo(routingKeyWS)) == 1 }, time.Second, 5*time.Millisecond)
	publisher.AssertExpectations(t)
}

func TestBroadcastChangeDoesNotWaitOnSlowClients(t *testing.T) {
	hub := NewHub(nil, nil)
	slow := &fakeConn{release: make(chan struct{})}
	hub.AddClient("c1", slow, ConnInfo{ConnID: "slow"})
	defer close(slow.release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// one event in the stalled write plus a full queue, then one more
		for i := 0; i < sendBuffer+2; i++ {
			hub.BroadcastChange(models.ChatEvent{Type: models.EventMessage, ConversationID: "c1"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastChange blocked on a stalled connection")
	}

	assert.True(t, slow.isClosed())
	assert.Zero(t, hub.RoomSize("c1"))
}

func TestPublishWSEventSurvivesPublisherError(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, routingKeyWS, mock.Anything).Return(errors.New("down")).Once()

	hub := NewHub(publisher, nil)
	hub.publishWSEvent(context.Background(), "ws_connect", ConnInfo{ConnID: "x"}, "")
	publisher.AssertExpectations(t)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}
