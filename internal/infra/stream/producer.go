package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"shop/internal/domain/model"
)

// OrderEventMessage はorder-eventsトピックに流すペイロード。
type OrderEventMessage struct {
	OrderID int64     `json:"order_id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Actor   string    `json:"actor"`
	At      time.Time `json:"at"`
}

// Producer は注文イベントを非同期で配信する。
// ブローカー未設定（nil）のときは全操作がno-op。
// inboxは閉じない。停止はdoneの通知で行い、停止後のPublishは捨てられる。
type Producer struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}
	stop  sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case <-p.done:
				p.drain()
				return
			case m := <-p.inbox:
				_ = p.w.WriteMessages(context.Background(), m)
			}
		}
	}()
}

// drain は停止時にバッファの残りを流し切ってからwriterを閉じる。
func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			_ = p.w.WriteMessages(context.Background(), m)
		default:
			_ = p.w.Close()
			return
		}
	}
}

// PublishOrderEvent は注文IDをキーにしてイベントを流す（同一注文の順序維持）。
// 確定済みイベントのベストエフォート配信なので、停止後・バッファ満杯時は捨てる。
func (p *Producer) PublishOrderEvent(ev model.OrderEvent) {
	if p == nil {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}

	msg := OrderEventMessage{
		OrderID: ev.OrderID,
		Type:    ev.Type,
		Message: ev.Message,
		Actor:   ev.Actor,
		At:      ev.CreatedAt,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case p.inbox <- kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: b,
		Time:  time.Now(),
	}:
	case <-p.done:
	default:
	}
}

// Close は停止を通知する。2回呼んでも安全。
func (p *Producer) Close() {
	if p == nil {
		return
	}
	p.stop.Do(func() { close(p.done) })
}
