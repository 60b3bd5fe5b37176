package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/rai1001/ChefOsv2-sub002/internal/application/ledger"
)

// ReceiptHandler handles purchase-order receipts
type ReceiptHandler struct {
	BaseHandler
	receipts *appledger.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts *appledger.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Receive handles POST /purchase-orders/:id/receipts.
// Lines are booked independently, so partial failures still answer 200 with
// per-line errors. Only a receipt where every line failed becomes an error
// response, carrying the first line's error.
func (h *ReceiptHandler) Receive(c *gin.Context) {
	var req appledger.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !h.checkOutletScope(c, req.OutletID) {
		return
	}
	req.PurchaseOrderID = c.Param("id")

	result, err := h.receipts.ReceivePurchaseOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Failed > 0 && result.Failed == len(result.Lines) {
		h.HandleError(c, result.Lines[0].Err)
		return
	}
	h.Success(c, toReceiptResponse(result))
}
