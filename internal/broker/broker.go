package broker

import "sync"

// Broker is a small per-topic pub/sub used to fan session events out from the
// channel adapter to whoever is deriving views from them. Topics are created
// lazily on first publish or subscribe.
type Broker[T any] struct {
	mu          sync.Mutex
	topics      map[string]chan T
	maxSizeChan uint
}

func New[T any](maxCountMsgInTopic uint) *Broker[T] {
	return &Broker[T]{
		topics:      make(map[string]chan T),
		maxSizeChan: maxCountMsgInTopic,
	}
}

// Publish delivers msg to the topic. When the topic buffer is full the
// message is dropped rather than blocking the publisher; the channel read
// loop must never stall on a slow consumer.
func (b *Broker[T]) Publish(topic string, msg T) bool {
	b.mu.Lock()
	ch := b.topic(topic)
	b.mu.Unlock()

	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

func (b *Broker[T]) Subscribe(topic string) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.topic(topic)
}

func (b *Broker[T]) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v, ok := b.topics[topic]; ok {
		close(v)
	}
	delete(b.topics, topic)
}

func (b *Broker[T]) topic(name string) chan T {
	if _, ok := b.topics[name]; !ok {
		b.topics[name] = make(chan T, b.maxSizeChan)
	}
	return b.topics[name]
}
