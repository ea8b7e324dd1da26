// Package shared contains common domain types, errors and events that are
// used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the matching lifecycle.
const (
	// Proposal lifecycle events
	EventProposalCreated  EventType = "matching.proposal_created"
	EventProposalAccepted EventType = "matching.proposal_accepted"
	EventProposalRejected EventType = "matching.proposal_rejected"
	EventProposalsExpired EventType = "matching.proposals_expired"

	// Mutual match events
	EventMutualMatchCreated EventType = "matching.mutual_match_created"

	// Round orchestration events
	EventRoundCompleted EventType = "matching.round_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Proposal Events
// ═══════════════════════════════════════════════════════════════════════════

// ProposalCreatedEvent is emitted when a weekly drop produces a proposal.
type ProposalCreatedEvent struct {
	BaseEvent
	ProposalID  string `json:"proposal_id"`
	ProposerID  string `json:"proposer_id"`
	CandidateID string `json:"candidate_id"`
	WeekKey     string `json:"week_key"`
	Round       string `json:"round"`
	Score       int    `json:"score"`
}

// Payload implements Event interface.
func (e ProposalCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"proposal_id":  e.ProposalID,
		"proposer_id":  e.ProposerID,
		"candidate_id": e.CandidateID,
		"week_key":     e.WeekKey,
		"round":        e.Round,
		"score":        e.Score,
	}
}

// NewProposalCreatedEvent creates a new ProposalCreatedEvent.
func NewProposalCreatedEvent(proposalID, proposerID, candidateID, weekKey, round string, score int) ProposalCreatedEvent {
	return ProposalCreatedEvent{
		BaseEvent:   NewBaseEvent(EventProposalCreated, proposalID),
		ProposalID:  proposalID,
		ProposerID:  proposerID,
		CandidateID: candidateID,
		WeekKey:     weekKey,
		Round:       round,
		Score:       score,
	}
}

// ProposalRespondedEvent is emitted when a user accepts or rejects a proposal.
type ProposalRespondedEvent struct {
	BaseEvent
	ProposalID string `json:"proposal_id"`
	ProposerID string `json:"proposer_id"`
	WeekKey    string `json:"week_key"`
	Status     string `json:"status"`
}

// Payload implements Event interface.
func (e ProposalRespondedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"proposal_id": e.ProposalID,
		"proposer_id": e.ProposerID,
		"week_key":    e.WeekKey,
		"status":      e.Status,
	}
}

// NewProposalAcceptedEvent creates an accepted-response event.
func NewProposalAcceptedEvent(proposalID, proposerID, weekKey string) ProposalRespondedEvent {
	return ProposalRespondedEvent{
		BaseEvent:  NewBaseEvent(EventProposalAccepted, proposalID),
		ProposalID: proposalID,
		ProposerID: proposerID,
		WeekKey:    weekKey,
		Status:     "accepted",
	}
}

// NewProposalRejectedEvent creates a rejected-response event.
func NewProposalRejectedEvent(proposalID, proposerID, weekKey string) ProposalRespondedEvent {
	return ProposalRespondedEvent{
		BaseEvent:  NewBaseEvent(EventProposalRejected, proposalID),
		ProposalID: proposalID,
		ProposerID: proposerID,
		WeekKey:    weekKey,
		Status:     "rejected",
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mutual Match Events
// ═══════════════════════════════════════════════════════════════════════════

// MutualMatchCreatedEvent is emitted exactly once per mutual transition,
// by the side whose accept performed the flip.
type MutualMatchCreatedEvent struct {
	BaseEvent
	UserAID string `json:"user_a_id"`
	UserBID string `json:"user_b_id"`
	WeekKey string `json:"week_key"`
}

// Payload implements Event interface.
func (e MutualMatchCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_a_id": e.UserAID,
		"user_b_id": e.UserBID,
		"week_key":  e.WeekKey,
	}
}

// NewMutualMatchCreatedEvent creates a new MutualMatchCreatedEvent.
func NewMutualMatchCreatedEvent(userAID, userBID, weekKey string) MutualMatchCreatedEvent {
	return MutualMatchCreatedEvent{
		BaseEvent: NewBaseEvent(EventMutualMatchCreated, userAID),
		UserAID:   userAID,
		UserBID:   userBID,
		WeekKey:   weekKey,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Sweeper / Round Events
// ═══════════════════════════════════════════════════════════════════════════

// ProposalsExpiredEvent is emitted after an expiration sweep.
type ProposalsExpiredEvent struct {
	BaseEvent
	WeekKey      string `json:"week_key"`
	Round        string `json:"round"`
	ExpiredCount int64  `json:"expired_count"`
}

// Payload implements Event interface.
func (e ProposalsExpiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"week_key":      e.WeekKey,
		"round":         e.Round,
		"expired_count": e.ExpiredCount,
	}
}

// NewProposalsExpiredEvent creates a new ProposalsExpiredEvent.
func NewProposalsExpiredEvent(weekKey, round string, count int64) ProposalsExpiredEvent {
	return ProposalsExpiredEvent{
		BaseEvent:    NewBaseEvent(EventProposalsExpired, weekKey+":"+round),
		WeekKey:      weekKey,
		Round:        round,
		ExpiredCount: count,
	}
}

// RoundCompletedEvent is emitted when a round orchestrator finishes a full
// pass over the population.
type RoundCompletedEvent struct {
	BaseEvent
	WeekKey      string `json:"week_key"`
	Round        string `json:"round"`
	MatchedCount int    `json:"matched_count"`
	NoMatchCount int    `json:"no_match_count"`
	FailedCount  int    `json:"failed_count"`
}

// Payload implements Event interface.
func (e RoundCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"week_key":       e.WeekKey,
		"round":          e.Round,
		"matched_count":  e.MatchedCount,
		"no_match_count": e.NoMatchCount,
		"failed_count":   e.FailedCount,
	}
}

// NewRoundCompletedEvent creates a new RoundCompletedEvent.
func NewRoundCompletedEvent(weekKey, round string, matched, noMatch, failed int) RoundCompletedEvent {
	return RoundCompletedEvent{
		BaseEvent:    NewBaseEvent(EventRoundCompleted, weekKey+":"+round),
		WeekKey:      weekKey,
		Round:        round,
		MatchedCount: matched,
		NoMatchCount: noMatch,
		FailedCount:  failed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
