package bus

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryBus implements Bus in process. It backs tests and local runs where
// no broker is available; deliveries are dispatched synchronously to every
// listener of the exchange/routing-key pair.
type MemoryBus struct {
	mu        sync.RWMutex
	listeners map[string][]Handler

	// Resolved deliveries, keyed by delivery id, for inspection in tests.
	resolved sync.Map
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		listeners: make(map[string][]Handler),
	}
}

func topicKey(exchange, routingKey string) string {
	return strings.Join([]string{exchange, routingKey}, "/")
}

// Listen registers h for the exchange/routing-key pair.
func (b *MemoryBus) Listen(_ context.Context, exchange, routingKey string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := topicKey(exchange, routingKey)
	b.listeners[key] = append(b.listeners[key], h)
	return nil
}

// Publish dispatches body to every listener of the pair. Messages without
// listeners are dropped, matching broker semantics for unbound keys.
func (b *MemoryBus) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.listeners[topicKey(exchange, routingKey)]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		d := &memoryDelivery{
			id:   uuid.NewString(),
			body: body,
			bus:  b,
		}
		h(ctx, d)
	}
	return nil
}

// Resolution reports how a delivery was resolved: "ack", "reject", or ""
// while unresolved.
func (b *MemoryBus) Resolution(deliveryID string) string {
	v, ok := b.resolved.Load(deliveryID)
	if !ok {
		return ""
	}
	return v.(string)
}

type memoryDelivery struct {
	id   string
	body []byte
	once sync.Once
	bus  *MemoryBus
}

func (d *memoryDelivery) ID() string   { return d.id }
func (d *memoryDelivery) Body() []byte { return d.body }

func (d *memoryDelivery) Ack() {
	d.once.Do(func() { d.bus.resolved.Store(d.id, "ack") })
}

func (d *memoryDelivery) Reject() {
	d.once.Do(func() { d.bus.resolved.Store(d.id, "reject") })
}
