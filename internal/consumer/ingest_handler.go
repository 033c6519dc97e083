package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"example.com/moodtrack/internal/domain"
	"example.com/moodtrack/internal/events"
	"example.com/moodtrack/internal/observability"
)

// EventPassiveDataReceived is the inbound event type the handler acts on.
const EventPassiveDataReceived = "passive_data.received"

// IngestHandler feeds consumed passive data events into the ingestion
// pipeline. Validation failures and duplicates are terminal outcomes for a
// message: retrying would produce the same result, so they are logged,
// counted, and committed.
type IngestHandler struct {
	service *domain.PassiveDataService
	logger  *log.Logger
}

// NewIngestHandler constructs an IngestHandler.
func NewIngestHandler(service *domain.PassiveDataService) *IngestHandler {
	return &IngestHandler{
		service: service,
		logger:  log.New(log.Writer(), "[ingest] ", log.LstdFlags),
	}
}

// Handle decodes and ingests one event.
func (h *IngestHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != EventPassiveDataReceived {
		return nil
	}

	var event events.PassiveDataReceived
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		observability.RecordPointOutcome(observability.OutcomeInvalid)
		h.logger.Printf("malformed payload (offset=%d): %v", msg.Offset, err)
		return nil
	}

	userID := event.UserID
	if userID == "" {
		userID = msg.UserID
	}
	if userID == "" {
		observability.RecordPointOutcome(observability.OutcomeInvalid)
		h.logger.Printf("event without user id (offset=%d)", msg.Offset)
		return nil
	}

	input := domain.PointInput{
		DataType:     domain.DataType(event.DataType),
		Value:        event.Value,
		Source:       domain.DataSource(event.Source),
		Timestamp:    event.Timestamp,
		Metadata:     event.Metadata,
		QualityScore: event.QualityScore,
	}

	_, err := h.service.Ingest(ctx, userID, input)
	switch {
	case err == nil:
		observability.RecordPointOutcome(observability.OutcomeCreated)
		return nil
	case errors.Is(err, domain.ErrDuplicatePoint):
		observability.RecordPointOutcome(observability.OutcomeDuplicate)
		return nil
	default:
		if verr, ok := domain.IsValidationError(err); ok {
			observability.RecordPointOutcome(observability.OutcomeInvalid)
			h.logger.Printf("rejected point (user=%s, type=%s): %v", userID, event.DataType, verr)
			return nil
		}
		observability.RecordPointOutcome(observability.OutcomeError)
		return fmt.Errorf("ingest point for user %s: %w", userID, err)
	}
}
