package bus

import (
	"context"
	"testing"
)

func TestMemoryBus_PublishReachesListener(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	var got []byte
	err := b.Listen(ctx, "ex", "key", func(_ context.Context, d Delivery) {
		got = d.Body()
		d.Ack()
	})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	if err := b.Publish(ctx, "ex", "key", []byte(`{"hello":1}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if string(got) != `{"hello":1}` {
		t.Errorf("unexpected body %q", got)
	}
}

func TestMemoryBus_UnboundKeyIsDropped(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	called := false
	_ = b.Listen(ctx, "ex", "key", func(_ context.Context, d Delivery) {
		called = true
	})

	if err := b.Publish(ctx, "ex", "other", []byte("x")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if called {
		t.Error("listener received a message for a different routing key")
	}
}

func TestMemoryDelivery_ResolvesOnce(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	var id string
	_ = b.Listen(ctx, "ex", "key", func(_ context.Context, d Delivery) {
		id = d.ID()
		d.Ack()
		d.Reject() // must not override the ack
	})

	_ = b.Publish(ctx, "ex", "key", []byte("x"))

	if got := b.Resolution(id); got != "ack" {
		t.Errorf("resolution = %q, want ack", got)
	}
}
