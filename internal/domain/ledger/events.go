package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared/valueobject"
)

// AggregateTypeBatch is the aggregate type name carried by batch events
const AggregateTypeBatch = "Batch"

// Event types
const (
	EventTypeBatchReceived        = "ledger.batch.received"
	EventTypeBatchDepleted        = "ledger.batch.depleted"
	EventTypeBatchCorrected       = "ledger.batch.corrected"
	EventTypeBatchExpired         = "ledger.batch.expired"
	EventTypeConsumptionShortfall = "ledger.consumption.shortfall"
)

// BatchReceivedEvent is raised when a batch is created
type BatchReceivedEvent struct {
	shared.BaseDomainEvent
	IngredientID uuid.UUID            `json:"ingredient_id"`
	OutletID     uuid.UUID            `json:"outlet_id"`
	Quantity     valueobject.Quantity `json:"quantity"`
	TotalCost    valueobject.Money    `json:"total_cost"`
}

// NewBatchReceivedEvent creates a BatchReceivedEvent
func NewBatchReceivedEvent(b *Batch) *BatchReceivedEvent {
	return &BatchReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReceived, AggregateTypeBatch, b.ID, b.CreatedAt),
		IngredientID:    b.IngredientID,
		OutletID:        b.OutletID,
		Quantity:        b.ReceivedQuantity,
		TotalCost:       b.TotalCost,
	}
}

// BatchDepletedEvent is raised when a draw empties a batch
type BatchDepletedEvent struct {
	shared.BaseDomainEvent
	IngredientID uuid.UUID `json:"ingredient_id"`
	OutletID     uuid.UUID `json:"outlet_id"`
}

// NewBatchDepletedEvent creates a BatchDepletedEvent
func NewBatchDepletedEvent(b *Batch, at time.Time) *BatchDepletedEvent {
	return &BatchDepletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchDepleted, AggregateTypeBatch, b.ID, at),
		IngredientID:    b.IngredientID,
		OutletID:        b.OutletID,
	}
}

// BatchCorrectedEvent is raised by an audit correction
type BatchCorrectedEvent struct {
	shared.BaseDomainEvent
	IngredientID uuid.UUID            `json:"ingredient_id"`
	OutletID     uuid.UUID            `json:"outlet_id"`
	Delta        valueobject.Quantity `json:"delta"`
	Reason       string               `json:"reason"`
}

// NewBatchCorrectedEvent creates a BatchCorrectedEvent
func NewBatchCorrectedEvent(b *Batch, delta valueobject.Quantity, reason string, at time.Time) *BatchCorrectedEvent {
	return &BatchCorrectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCorrected, AggregateTypeBatch, b.ID, at),
		IngredientID:    b.IngredientID,
		OutletID:        b.OutletID,
		Delta:           delta,
		Reason:          reason,
	}
}

// BatchExpiredEvent is raised when a batch is forced to EXPIRED
type BatchExpiredEvent struct {
	shared.BaseDomainEvent
	IngredientID uuid.UUID            `json:"ingredient_id"`
	OutletID     uuid.UUID            `json:"outlet_id"`
	WrittenOff   valueobject.Quantity `json:"written_off"`
}

// NewBatchExpiredEvent creates a BatchExpiredEvent
func NewBatchExpiredEvent(b *Batch, writtenOff valueobject.Quantity, at time.Time) *BatchExpiredEvent {
	return &BatchExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchExpired, AggregateTypeBatch, b.ID, at),
		IngredientID:    b.IngredientID,
		OutletID:        b.OutletID,
		WrittenOff:      writtenOff,
	}
}

// ConsumptionShortfallEvent is raised when active batches could not cover a request
type ConsumptionShortfallEvent struct {
	shared.BaseDomainEvent
	IngredientID uuid.UUID            `json:"ingredient_id"`
	OutletID     uuid.UUID            `json:"outlet_id"`
	Requested    valueobject.Quantity `json:"requested"`
	Shortfall    valueobject.Quantity `json:"shortfall"`
}

// NewConsumptionShortfallEvent creates a ConsumptionShortfallEvent.
// The aggregate is the ingredient since no single batch owns a shortfall.
func NewConsumptionShortfallEvent(ingredientID, outletID uuid.UUID, requested, shortfall valueobject.Quantity, at time.Time) *ConsumptionShortfallEvent {
	return &ConsumptionShortfallEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConsumptionShortfall, "Ingredient", ingredientID, at),
		IngredientID:    ingredientID,
		OutletID:        outletID,
		Requested:       requested,
		Shortfall:       shortfall,
	}
}
