package domain

import (
	"context"
	"testing"
)

func TestSimplePubSub_PublishSubscribe(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	ch := ps.Subscribe("room:test")
	sessionID := NewSessionID()
	ps.Publish(ctx, "room:test", Message{SessionID: sessionID, Data: []byte("hello")})

	select {
	case msg := <-ch:
		if msg.SessionID != sessionID {
			t.Error("SessionID mismatch")
		}
		if string(msg.Data) != "hello" {
			t.Errorf("Data = %q, want %q", msg.Data, "hello")
		}
	default:
		t.Fatal("message not delivered")
	}
}

func TestSimplePubSub_MultipleSubscribers(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	ch1 := ps.Subscribe("topic")
	ch2 := ps.Subscribe("topic")
	ps.Publish(ctx, "topic", Message{Data: []byte("x")})

	if len(ch1) != 1 || len(ch2) != 1 {
		t.Errorf("delivery counts = (%d, %d), want (1, 1)", len(ch1), len(ch2))
	}
}

func TestSimplePubSub_TopicIsolation(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	a := ps.Subscribe("topic:a")
	b := ps.Subscribe("topic:b")
	ps.Publish(ctx, "topic:a", Message{Data: []byte("x")})

	if len(a) != 1 {
		t.Errorf("topic a deliveries = %d, want 1", len(a))
	}
	if len(b) != 0 {
		t.Errorf("topic b deliveries = %d, want 0", len(b))
	}
}

// Unsubscribe後はチャネルが閉じられ、以後の配信は届かない
func TestSimplePubSub_Unsubscribe(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	ch := ps.Subscribe("topic")
	ps.Unsubscribe("topic", ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// 購読者のいないトピックへのPublishは無害
	ps.Publish(ctx, "topic", Message{Data: []byte("x")})
}

// バッファが満杯の購読者にはブロックせず、メッセージを捨てる
func TestSimplePubSub_DropWhenFull(t *testing.T) {
	ps := NewSimplePubSub()
	ctx := context.Background()

	ch := ps.Subscribe("topic")
	for range subscriberBufferSize + 10 {
		ps.Publish(ctx, "topic", Message{Data: []byte("x")})
	}

	if len(ch) != subscriberBufferSize {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBufferSize)
	}
}
