package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticAttacher hands out a fixed snapshot
type staticAttacher struct {
	snapshot domain.Snapshot
}

func (a staticAttacher) Attach(_ context.Context, fn func(domain.Snapshot)) {
	fn(a.snapshot)
}

func newTestClient(hub *Hub, username string, queue int) *Client {
	return &Client{
		hub:      hub,
		send:     make(chan []byte, queue),
		username: username,
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = hub.Run(ctx)
	}()
	t.Cleanup(cancel)
	return hub, cancel
}

type frameEnvelope struct {
	Type     string                  `json:"type"`
	Messages []domain.Message        `json:"messages"`
	Colors   map[string]domain.Color `json:"colors"`
	Message  domain.Message          `json:"message"`
	Error    string                  `json:"error"`
	Code     string                  `json:"code"`
}

func readFrame(t *testing.T, ch <-chan []byte) frameEnvelope {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "send channel closed")
		var frame frameEnvelope
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return frameEnvelope{}
	}
}

func waitClosed(t *testing.T, ch <-chan []byte) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel was not closed")
		}
	}
}

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Messages: []domain.Message{
			testutil.NewTestMessage(
				testutil.WithID("m1"),
				testutil.WithSeq(1),
				testutil.WithMessageUsername("alice"),
				testutil.WithText("hi"),
				testutil.WithColor("#AABBCC"),
			),
		},
		Colors: map[string]domain.Color{"alice": "#AABBCC", "bob": "#CCBBAA"},
	}
}

func TestHub_NewHub(t *testing.T) {
	hub := NewHub()

	require.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.events)
	assert.NotNil(t, hub.done)
	assert.Equal(t, 0, hub.ActiveClients())
}

func TestHub_ContextCancellation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Run(ctx)
	}()

	cancel()

	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop within timeout")
	}

	select {
	case <-hub.Done():
	default:
		t.Fatal("done channel not closed after Run returned")
	}
}

func TestHub_Subscribe_SnapshotFramesFirst(t *testing.T) {
	hub, _ := startHub(t)
	client := newTestClient(hub, "alice", clientQueueSize)

	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{testSnapshot()}, client))
	hub.Publish(domain.Message{ID: "m2", Seq: 2, Username: "bob", Text: "yo", Color: "#CCBBAA"})

	load := readFrame(t, client.send)
	assert.Equal(t, FrameLoadMessages, load.Type)
	require.Len(t, load.Messages, 1)
	assert.Equal(t, "m1", load.Messages[0].ID)

	colors := readFrame(t, client.send)
	assert.Equal(t, FrameUserColors, colors.Type)
	assert.Equal(t, domain.Color("#CCBBAA"), colors.Colors["bob"])

	next := readFrame(t, client.send)
	assert.Equal(t, FrameNewMessage, next.Type)
	assert.Equal(t, "m2", next.Message.ID)
	assert.Equal(t, domain.Color("#CCBBAA"), next.Message.Color)
}

func TestHub_Subscribe_FullHistoryInOrder(t *testing.T) {
	hub, _ := startHub(t)
	client := newTestClient(hub, "alice", clientQueueSize)
	history := testutil.NewTestMessages("alice", domain.DefaultHistoryLimit)

	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{domain.Snapshot{Messages: history}}, client))

	load := readFrame(t, client.send)
	require.Len(t, load.Messages, len(history))
	for i, msg := range load.Messages {
		assert.Equal(t, history[i].ID, msg.ID)
		assert.Equal(t, uint64(i+1), msg.Seq)
	}
}

func TestHub_Subscribe_EmptySnapshot(t *testing.T) {
	hub, _ := startHub(t)
	client := newTestClient(hub, "alice", clientQueueSize)

	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, client))

	load := <-client.send
	assert.JSONEq(t, `{"type":"load_messages","messages":[]}`, string(load))
	colors := <-client.send
	assert.JSONEq(t, `{"type":"user_colors","colors":{}}`, string(colors))
}

func TestHub_Publish_AllSubscribersInOrder(t *testing.T) {
	hub, _ := startHub(t)

	clients := []*Client{
		newTestClient(hub, "alice", clientQueueSize),
		newTestClient(hub, "bob", clientQueueSize),
	}
	for _, c := range clients {
		require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, c))
	}

	for i := 1; i <= 10; i++ {
		hub.Publish(domain.Message{ID: fmt.Sprintf("m%d", i), Seq: uint64(i)})
	}

	for _, c := range clients {
		readFrame(t, c.send)
		readFrame(t, c.send)
		for i := 1; i <= 10; i++ {
			frame := readFrame(t, c.send)
			assert.Equal(t, FrameNewMessage, frame.Type)
			assert.Equal(t, uint64(i), frame.Message.Seq)
		}
	}
}

func TestHub_Publish_NotDeliveredBeforeAttach(t *testing.T) {
	hub, _ := startHub(t)
	client := newTestClient(hub, "alice", clientQueueSize)

	hub.Publish(domain.Message{ID: "before", Seq: 1})
	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, client))
	hub.Publish(domain.Message{ID: "after", Seq: 2})

	assert.Equal(t, FrameLoadMessages, readFrame(t, client.send).Type)
	assert.Equal(t, FrameUserColors, readFrame(t, client.send).Type)
	assert.Equal(t, "after", readFrame(t, client.send).Message.ID)
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	hub, _ := startHub(t)

	slow := newTestClient(hub, "slow", 2)
	fast := newTestClient(hub, "fast", clientQueueSize)
	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, slow))
	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, fast))

	hub.Publish(domain.Message{ID: "m1", Seq: 1})

	readFrame(t, fast.send)
	readFrame(t, fast.send)
	assert.Equal(t, "m1", readFrame(t, fast.send).Message.ID)

	// slow's queue holds the two snapshot frames; the message overflows it
	require.Eventually(t, func() bool { return hub.ActiveClients() == 1 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, FrameLoadMessages, readFrame(t, slow.send).Type)
	assert.Equal(t, FrameUserColors, readFrame(t, slow.send).Type)
	waitClosed(t, slow.send)
}

func TestHub_Reply_OnlyTargetClient(t *testing.T) {
	hub, _ := startHub(t)

	alice := newTestClient(hub, "alice", clientQueueSize)
	bob := newTestClient(hub, "bob", clientQueueSize)
	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, alice))
	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, bob))

	hub.Reply(alice, NewErrorFrame(domain.ErrEmptyMessage))
	hub.Publish(domain.Message{ID: "m1", Seq: 1})

	readFrame(t, alice.send)
	readFrame(t, alice.send)
	errFrame := readFrame(t, alice.send)
	assert.Equal(t, FrameError, errFrame.Type)
	assert.Equal(t, domain.CodeEmptyMessage, errFrame.Code)
	assert.NotEmpty(t, errFrame.Error)

	readFrame(t, bob.send)
	readFrame(t, bob.send)
	assert.Equal(t, FrameNewMessage, readFrame(t, bob.send).Type)
}

func TestHub_UnregisterClient(t *testing.T) {
	hub, _ := startHub(t)
	client := newTestClient(hub, "alice", clientQueueSize)

	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, client))
	hub.Unregister(client)
	hub.Publish(domain.Message{ID: "m1", Seq: 1})

	assert.Equal(t, FrameLoadMessages, readFrame(t, client.send).Type)
	assert.Equal(t, FrameUserColors, readFrame(t, client.send).Type)
	waitClosed(t, client.send)
}

func TestHub_DoubleUnregister(t *testing.T) {
	hub, _ := startHub(t)
	client := newTestClient(hub, "alice", clientQueueSize)

	require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, client))
	hub.Unregister(client)
	hub.Unregister(client)

	assert.Eventually(t, func() bool { return hub.ActiveClients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = newTestClient(hub, fmt.Sprintf("user%d", i), clientQueueSize)
		require.NoError(t, hub.Subscribe(context.Background(), staticAttacher{}, clients[i]))
	}

	assert.Eventually(t, func() bool { return hub.ActiveClients() == len(clients) }, time.Second, 10*time.Millisecond)
	cancel()

	for _, c := range clients {
		waitClosed(t, c.send)
	}
	assert.Equal(t, 0, hub.ActiveClients())
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.Done()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < eventQueueSize*2; i++ {
			hub.Publish(domain.Message{Seq: uint64(i)})
		}
		hub.Unregister(newTestClient(hub, "ghost", 1))
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing to a stopped hub blocked")
	}

	err := hub.Subscribe(context.Background(), staticAttacher{}, newTestClient(hub, "late", 1))
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestNewErrorFrame(t *testing.T) {
	frame := NewErrorFrame(domain.ErrTextTooLong)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, domain.CodeTextTooLong, frame.Code)
	assert.Equal(t, domain.ErrTextTooLong.Error(), frame.Error)

	internal := NewErrorFrame(fmt.Errorf("boom"))
	assert.Equal(t, domain.CodeInternal, internal.Code)
	assert.Equal(t, "internal server error", internal.Error)
}
