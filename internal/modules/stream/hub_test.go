package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHub_NotifyOutcome_DeliversToSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	cl := hub.register("user-1")
	hub.subscribe(cl, "CHZ_r1")

	hub.NotifyOutcome("CHZ_r1", "SUCCESS", "", "결제가 완료되었습니다.")

	select {
	case event := <-cl.send:
		assert.Equal(t, KindSuccess, event.Kind)
		assert.Equal(t, "CHZ_r1", event.OrderID)
		assert.Equal(t, "결제가 완료되었습니다.", event.Message)
		assert.False(t, event.Timestamp.IsZero())
	default:
		t.Fatal("expected an event on the subscriber channel")
	}
}

func TestHub_NotifyOutcome_OtherOrderNotDelivered(t *testing.T) {
	hub := NewHub(zap.NewNop())
	cl := hub.register("user-1")
	hub.subscribe(cl, "CHZ_r1")

	hub.NotifyOutcome("CHZ_r2", "FAIL", "AMOUNT_MISMATCH", "금액이 일치하지 않습니다.")

	assert.Empty(t, cl.send)
}

func TestHub_NotifyOutcome_UnknownKindDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	cl := hub.register("user-1")
	hub.subscribe(cl, "CHZ_r1")

	hub.NotifyOutcome("CHZ_r1", "EXPLODE", "", "")

	assert.Empty(t, cl.send)
}

func TestHub_NotifyOutcome_SlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	cl := hub.register("user-1")
	hub.subscribe(cl, "CHZ_r1")

	// Nobody drains the channel; the hub must never block.
	for i := 0; i < sendBuffer+5; i++ {
		hub.NotifyOutcome("CHZ_r1", "LOG", "", "progress")
	}

	assert.Len(t, cl.send, sendBuffer)
}

func TestHub_Unregister_RemovesSubscriptions(t *testing.T) {
	hub := NewHub(zap.NewNop())
	cl := hub.register("user-1")
	hub.subscribe(cl, "CHZ_r1")
	assert.Equal(t, 1, hub.SubscriberCount("CHZ_r1"))

	hub.unregister(cl)

	assert.Equal(t, 0, hub.SubscriberCount("CHZ_r1"))
	// NotifyOutcome after unregister must not panic on the closed channel.
	hub.NotifyOutcome("CHZ_r1", "SUCCESS", "", "")

	_, open := <-cl.send
	assert.False(t, open)
}

func TestHub_SubscribeAfterUnregisterIsNoOp(t *testing.T) {
	hub := NewHub(zap.NewNop())
	cl := hub.register("user-1")
	hub.unregister(cl)

	hub.subscribe(cl, "CHZ_r1")

	assert.Equal(t, 0, hub.SubscriberCount("CHZ_r1"))
}
