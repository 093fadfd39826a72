package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KomuDhara/nocturne-memory/pkg/types"
)

func newRunningHub(t *testing.T) *WebSocketHub {
	t.Helper()
	hub := NewWebSocketHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := newRunningHub(t)

	client := &MockClient{SendChan: make(chan []byte, 4)}
	hub.Register(client)

	hub.Broadcast(map[string]any{"type": "entity.created", "entity_id": "alice"})

	select {
	case data := <-client.SendChan:
		var event map[string]any
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "entity.created", event["type"])
		assert.Equal(t, "alice", event["entity_id"])
	case <-time.After(time.Second):
		t.Fatal("client did not receive broadcast")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := newRunningHub(t)

	client := &MockClient{SendChan: make(chan []byte, 4)}
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.SendChan:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := newRunningHub(t)

	// Zero-capacity channel: the first broadcast cannot be delivered.
	slow := &MockClient{SendChan: make(chan []byte)}
	hub.Register(slow)

	hub.Broadcast(map[string]any{"type": "entity.updated"})

	select {
	case _, ok := <-slow.SendChan:
		assert.False(t, ok, "slow client's channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}

func TestHandlersBroadcastOnMutation(t *testing.T) {
	hub := newRunningHub(t)
	client := &MockClient{SendChan: make(chan []byte, 4)}
	hub.Register(client)

	store := &mockStore{
		createEntityFn: func(ctx context.Context, entityID string, kind types.EntityKind, name, content, task string) (*types.CreateEntityResult, error) {
			return &types.CreateEntityResult{EntityID: entityID, StateID: entityID + "_v1", Version: 1}, nil
		},
	}
	h := NewHandlers(store, nil, hub)

	rec := doRequest(h, "POST", "/nodes/entities",
		`{"entity_id":"alice","node_type":"character","name":"Alice","content":"x"}`)
	require.Equal(t, 200, rec.Code)

	select {
	case data := <-client.SendChan:
		var event map[string]any
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "entity.created", event["type"])
	case <-time.After(time.Second):
		t.Fatal("no event was broadcast for the mutation")
	}
}
