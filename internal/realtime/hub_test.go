package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/scanhub/internal/model"
	"go.uber.org/zap"
)

func strptr(s string) *string { return &s }

func receiveOne(t *testing.T, sub *Subscription) *model.Scan {
	t.Helper()
	select {
	case scan := <-sub.C:
		return scan
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHub_PublishReachesAllGlobalSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a := hub.Subscribe(nil)
	b := hub.Subscribe(nil)
	defer a.Close()
	defer b.Close()

	scan := &model.Scan{ID: 1, Code: 1234567, OwnerID: strptr("user1")}
	hub.Publish(scan)

	assert.Equal(t, scan, receiveOne(t, a))
	assert.Equal(t, scan, receiveOne(t, b))
}

func TestHub_OwnerFilter(t *testing.T) {
	hub := NewHub(zap.NewNop())

	own := hub.Subscribe(strptr("user1"))
	defer own.Close()

	hub.Publish(&model.Scan{ID: 1, OwnerID: strptr("user2")})
	hub.Publish(&model.Scan{ID: 2, OwnerID: nil})
	hub.Publish(&model.Scan{ID: 3, OwnerID: strptr("user1")})

	got := receiveOne(t, own)
	assert.Equal(t, int64(3), got.ID)

	select {
	case extra := <-own.C:
		t.Fatalf("unexpected extra event: %+v", extra)
	default:
	}
}

func TestHub_CloseStopsDeliveryAndIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())

	sub := hub.Subscribe(nil)
	sub.Close()
	sub.Close()

	// The channel is closed, not leaked.
	_, ok := <-sub.C
	require.False(t, ok)

	// Publishing after close must not panic.
	hub.Publish(&model.Scan{ID: 1})
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())

	sub := hub.Subscribe(nil)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overfill the buffer; Publish must never block.
		for i := 0; i < 100; i++ {
			hub.Publish(&model.Scan{ID: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
