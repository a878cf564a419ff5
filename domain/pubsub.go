package domain

import (
	"context"
	"log/slog"
	"sync"
)

// Topic は配信先を表すキーです。"session:<id>" / "room:<id>" / "room:<id>:ctrl" の形式を使います。
type Topic string

// Message はトピックに配信される1メッセージです。
type Message struct {
	SessionID SessionID
	Data      []byte
}

// PubSub はセッションとルームの間のメッセージ配送境界です。
type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message)
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

const subscriberBufferSize = 256

// SimplePubSub はプロセス内で完結するPubSub実装です。
// Publishはブロックしません。購読側のバッファが満杯ならメッセージを捨てて警告します。
type SimplePubSub struct {
	mu     sync.RWMutex
	topics map[Topic][]chan Message
}

var _ PubSub = (*SimplePubSub)(nil)

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{
		topics: make(map[Topic][]chan Message),
	}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	p.mu.RLock()
	subscribers := p.topics[topic]
	p.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "pubsub: subscriber buffer full, message dropped", "topic", topic)
		}
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, subscriberBufferSize)
	p.mu.Lock()
	p.topics[topic] = append(p.topics[topic], ch)
	p.mu.Unlock()
	return ch
}

func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subscribers := p.topics[topic]
	for i, sub := range subscribers {
		if sub == ch {
			p.topics[topic] = append(subscribers[:i], subscribers[i+1:]...)
			close(sub)
			break
		}
	}
	if len(p.topics[topic]) == 0 {
		delete(p.topics, topic)
	}
}
