package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appledger "github.com/rai1001/ChefOsv2-sub002/internal/application/ledger"
)

// BatchHandler handles ingredient and batch endpoints
type BatchHandler struct {
	BaseHandler
	ledger            *appledger.BatchLedger
	expiryWarningDays int
}

// NewBatchHandler creates a new BatchHandler. expiryWarningDays is the
// window used by the expiring-batches query when ?days= is absent.
func NewBatchHandler(l *appledger.BatchLedger, expiryWarningDays int) *BatchHandler {
	return &BatchHandler{
		ledger:            l,
		expiryWarningDays: expiryWarningDays,
	}
}

// RegisterIngredient handles POST /ingredients
func (h *BatchHandler) RegisterIngredient(c *gin.Context) {
	var req appledger.RegisterIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !h.checkOutletScope(c, req.OutletID) {
		return
	}

	ing, err := h.ledger.RegisterIngredient(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toIngredientResponse(ing))
}

// CreateBatch handles POST /batches
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req appledger.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !h.checkOutletScope(c, req.OutletID) {
		return
	}

	batch, err := h.ledger.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toBatchResponse(batch))
}

// GetBatch handles GET /batches/:id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batchID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	batch, err := h.ledger.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchResponse(batch))
}

// ListActiveBatches handles GET /ingredients/:id/batches, in FIFO order
func (h *BatchHandler) ListActiveBatches(c *gin.Context) {
	ingredientID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	outletID, ok := h.queryOutlet(c, true)
	if !ok {
		return
	}

	batches, err := h.ledger.ListActiveBatchesFIFO(c.Request.Context(), ingredientID, *outletID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchResponses(batches))
}

// Consume handles POST /ingredients/:id/consume. A shortfall is reported in
// the body with a 200, never as an error.
func (h *BatchHandler) Consume(c *gin.Context) {
	ingredientID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !h.checkOutletScope(c, req.OutletID) {
		return
	}
	req.IngredientID = ingredientID

	result, err := h.ledger.Consume(c.Request.Context(), req)
	if err != nil {
		// draws committed before the failure stay committed
		if result != nil {
			h.HandleErrorWithData(c, err, ConsumeResponse{ConsumeResult: result, HasShortfall: result.HasShortfall()})
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, ConsumeResponse{ConsumeResult: result, HasShortfall: result.HasShortfall()})
}

// CorrectBatch handles PUT /batches/:id/remaining
func (h *BatchHandler) CorrectBatch(c *gin.Context) {
	batchID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.CorrectBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.BatchID = batchID

	batch, err := h.ledger.CorrectBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchResponse(batch))
}

// ExpireBatch handles POST /batches/:id/expire. The body is optional.
func (h *BatchHandler) ExpireBatch(c *gin.Context) {
	batchID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appledger.ExpireBatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}
	req.BatchID = batchID

	batch, err := h.ledger.ExpireBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchResponse(batch))
}

// DeleteBatch handles DELETE /batches/:id. Only DEPLETED batches go.
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	batchID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeleteDepletedBatch(c.Request.Context(), batchID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListExpiring handles GET /outlets/:id/batches/expiring?days=
func (h *BatchHandler) ListExpiring(c *gin.Context) {
	outletID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	days, ok := h.queryInt(c, "days", h.expiryWarningDays)
	if !ok {
		return
	}

	batches, err := h.ledger.FindBatchesExpiringWithin(c.Request.Context(), outletID, days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toExpiringBatchResponses(batches, h.ledger.Now(), h.expiryWarningDays))
}

// ExpireDue handles POST /outlets/:id/expiry-sweep, expiring every batch of
// the outlet whose expiry date has passed.
func (h *BatchHandler) ExpireDue(c *gin.Context) {
	outletID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	asOf := time.Now().UTC()
	expired, err := h.ledger.ExpireDueBatches(c.Request.Context(), outletID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ExpirySweepResponse{OutletID: outletID, Expired: expired, AsOf: asOf})
}
