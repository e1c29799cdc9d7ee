package amqp

import (
	"encoding/json"
	"time"

	"moneytalk/internal/core"
)

const (
	KindTransactionCreated = "transaction.created"
	KindTransactionUpdated = "transaction.updated"
	KindTransactionDeleted = "transaction.deleted"
	KindRecommendations    = "recommendations.generated"
)

// Envelope wraps every message on the events queue so the worker can
// dispatch on kind without guessing at the body shape.
type Envelope struct {
	Kind      string          `json:"kind"`
	Body      json.RawMessage `json:"body"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionEvent is published on every transaction mutation. It carries
// only identity plus the affected month; the worker re-reads the rows it
// needs from the database.
type TransactionEvent struct {
	UserID        string `json:"user_id"`
	TransactionID int64  `json:"transaction_id"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
}

// RecommendationsEvent carries a freshly generated recommendation slot for
// the worker to persist into the server-side mirror.
type RecommendationsEvent struct {
	UserID      string                `json:"user_id"`
	Data        []core.Recommendation `json:"data"`
	GeneratedAt time.Time             `json:"generated_at"`
}

func newEnvelope(kind string, body any) (*Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Envelope{Kind: kind, Body: raw, Timestamp: time.Now()}, nil
}

// ToJSON converts the envelope to JSON bytes
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON creates an envelope from JSON bytes
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeTransactionEvent unpacks the body of a transaction.* envelope.
func (e *Envelope) DecodeTransactionEvent() (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(e.Body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeRecommendationsEvent unpacks the body of a
// recommendations.generated envelope.
func (e *Envelope) DecodeRecommendationsEvent() (*RecommendationsEvent, error) {
	var ev RecommendationsEvent
	if err := json.Unmarshal(e.Body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
