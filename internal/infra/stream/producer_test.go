package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop/internal/domain/model"
)

func testEvent() model.OrderEvent {
	return model.OrderEvent{OrderID: 1, Type: "created", Message: "Order placed.", CreatedAt: time.Now()}
}

// ブローカー未設定のときはnilで、全操作がno-op。
func TestProducer_NilIsNoop(t *testing.T) {
	p := NewProducer(nil, "order-events", 4)
	require.Nil(t, p)

	assert.NotPanics(t, func() {
		p.Start(t.Context())
		p.PublishOrderEvent(testEvent())
		p.Close()
	})
}

// Close後のPublishはpanicせず捨てられる。
func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "order-events", 4)
	require.NotNil(t, p)

	p.Close()
	assert.NotPanics(t, func() {
		p.PublishOrderEvent(testEvent())
		p.PublishOrderEvent(testEvent())
	})
	assert.Empty(t, p.inbox)
}

func TestProducer_CloseTwiceIsSafe(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "order-events", 4)
	assert.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
}

// バッファ満杯でもPublishはブロックしない。
func TestProducer_FullBufferDoesNotBlock(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "order-events", 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.PublishOrderEvent(testEvent())
		p.PublishOrderEvent(testEvent()) //2件目は捨てられる
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}
	assert.Len(t, p.inbox, 1)
}
