package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/rai1001/ChefOsv2-sub002/internal/application/ledger"
)

// TransactionHandler handles stock transaction and stock level endpoints
type TransactionHandler struct {
	BaseHandler
	recorder *appledger.TransactionRecorder
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(recorder *appledger.TransactionRecorder) *TransactionHandler {
	return &TransactionHandler{recorder: recorder}
}

// Record handles POST /transactions. The transaction is appended as given;
// no batch is touched.
func (h *TransactionHandler) Record(c *gin.Context) {
	var req appledger.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !h.checkOutletScope(c, req.OutletID) {
		return
	}

	tx, err := h.recorder.Record(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTransactionResponse(tx))
}

// History handles GET /ingredients/:id/transactions?outlet_id=&limit=,
// newest first. Without an outlet it spans every outlet.
func (h *TransactionHandler) History(c *gin.Context) {
	ingredientID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	outletID, ok := h.queryOutlet(c, false)
	if !ok {
		return
	}
	limit, ok := h.queryInt(c, "limit", appledger.DefaultHistoryLimit)
	if !ok {
		return
	}

	txs, err := h.recorder.History(c.Request.Context(), ingredientID, outletID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponses(txs))
}

// HistoryForBatch handles GET /batches/:id/transactions, oldest first
func (h *TransactionHandler) HistoryForBatch(c *gin.Context) {
	batchID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	txs, err := h.recorder.HistoryForBatch(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponses(txs))
}

// StockLevel handles GET /ingredients/:id/stock?outlet_id=
func (h *TransactionHandler) StockLevel(c *gin.Context) {
	ingredientID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	outletID, ok := h.queryOutlet(c, true)
	if !ok {
		return
	}

	level, err := h.recorder.StockLevel(c.Request.Context(), ingredientID, *outletID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}
