// Package events publishes cycle and trade events to Kafka. Publishing is
// optional and strictly best-effort: a broker outage degrades to warnings,
// never to a stalled simulation.
package events

import (
	"encoding/json"
	"time"

	"papertrader/internal/logger"

	"github.com/IBM/sarama"
)

// CycleEvent is emitted once per committed decision cycle.
type CycleEvent struct {
	RunID     string    `json:"run_id"`
	Seq       int64     `json:"seq"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Price     float64   `json:"price"`
	Equity    float64   `json:"equity"`
	Degraded  bool      `json:"degraded"`
	TriggerAt time.Time `json:"trigger_at"`
}

// Publisher is what the simulation loop sees. The nil-safe no-op keeps event
// wiring out of every call site when Kafka is disabled.
type Publisher interface {
	PublishCycle(ev CycleEvent)
	Close() error
}

// Nop discards all events.
type Nop struct{}

func (Nop) PublishCycle(CycleEvent) {}
func (Nop) Close() error            { return nil }

// KafkaPublisher sends cycle events through an async producer. Delivery
// errors are drained and logged in the background.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	done     chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Max = 3
	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p, nil
}

func (p *KafkaPublisher) drainErrors() {
	defer close(p.done)
	for err := range p.producer.Errors() {
		logger.Warnf("events: kafka publish failed: %v", err)
	}
}

func (p *KafkaPublisher) PublishCycle(ev CycleEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warnf("events: marshal cycle event: %v", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.RunID),
		Value: sarama.ByteEncoder(payload),
	}
	select {
	case p.producer.Input() <- msg:
	default:
		logger.Warnf("events: producer queue full, dropping cycle %d", ev.Seq)
	}
}

func (p *KafkaPublisher) Close() error {
	err := p.producer.Close()
	<-p.done
	return err
}
