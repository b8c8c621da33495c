// Package events publishes ride lifecycle events to Kafka so downstream
// consumers (driver dispatch, analytics, receipts) see every route and
// settlement change.
package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"corrida/internal/modules/ride"
	"corrida/internal/types"
)

const (
	TypeRouteUpdated   = "ride.route_updated"
	TypeSessionChanged = "ride.session_changed"
)

// Envelope is the wire format of one ride event. RideID keys the message so
// a partition sees one ride's events in order.
type Envelope struct {
	ID         types.ID  `json:"id"`
	Type       string    `json:"type"`
	RideID     types.ID  `json:"ride_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Status      string  `json:"status,omitempty"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	DurationMin int     `json:"duration_min,omitempty"`
	FareExact   int64   `json:"fare_exact,omitempty"`
	Currency    string  `json:"currency,omitempty"`

	Method       string `json:"payment_method,omitempty"`
	SessionState string `json:"session_state,omitempty"`
	ChangeDue    int64  `json:"change_due,omitempty"`
	Disposition  string `json:"change_disposition,omitempty"`
}

// Producer implements ride.Observer on top of a synchronous Kafka producer.
// Publish failures are logged and dropped: the settlement must never stall
// on the event bus.
type Producer struct {
	producer sarama.SyncProducer
	log      *zap.Logger
	topic    string
}

func NewProducer(brokers []string, topic string, log *zap.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: sp, log: log, topic: topic}, nil
}

func (p *Producer) RouteUpdated(r *ride.Ride) {
	e := Envelope{
		ID:         types.NewID(),
		Type:       TypeRouteUpdated,
		RideID:     r.ID,
		OccurredAt: time.Now(),
		Status:     string(r.Status),
	}
	if r.Route != nil {
		e.DistanceKm = r.Route.DistanceKm
		e.DurationMin = r.Route.DurationMin
	}
	if r.Quote != nil {
		e.FareExact = r.Quote.Exact.Amount
		e.Currency = r.Quote.Exact.Currency
	}
	p.publish(e)
}

func (p *Producer) SessionChanged(r *ride.Ride, s *ride.Session) {
	e := Envelope{
		ID:         types.NewID(),
		Type:       TypeSessionChanged,
		RideID:     r.ID,
		OccurredAt: time.Now(),
		Status:     string(r.Status),
	}
	if s != nil {
		e.Method = string(s.Method)
		e.SessionState = string(s.State)
		e.ChangeDue = s.ChangeDue.Amount
		e.Disposition = string(s.Disposition)
		e.Currency = s.AmountDue.Currency
	}
	p.publish(e)
}

func (p *Producer) publish(e Envelope) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Error("marshal ride event", zap.Error(err), zap.String("ride_id", string(e.RideID)))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.RideID),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("publish ride event",
			zap.Error(err),
			zap.String("type", e.Type),
			zap.String("ride_id", string(e.RideID)),
		)
		return
	}
	p.log.Debug("ride event published",
		zap.String("type", e.Type),
		zap.String("ride_id", string(e.RideID)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
}

func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
