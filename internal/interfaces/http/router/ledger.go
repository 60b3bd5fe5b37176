package router

import (
	"github.com/rai1001/ChefOsv2-sub002/internal/interfaces/http/handler"
)

// LedgerHandlers are the handlers served under /api/v1
type LedgerHandlers struct {
	Batch       *handler.BatchHandler
	Transaction *handler.TransactionHandler
	Receipt     *handler.ReceiptHandler
}

// LedgerGroups returns the ledger API, one group per resource
func LedgerGroups(h LedgerHandlers) []RouteRegistrar {
	ingredients := NewDomainGroup("ingredients", "/ingredients").
		POST("", h.Batch.RegisterIngredient).
		GET("/:id/batches", h.Batch.ListActiveBatches).
		POST("/:id/consume", h.Batch.Consume).
		GET("/:id/transactions", h.Transaction.History).
		GET("/:id/stock", h.Transaction.StockLevel)

	batches := NewDomainGroup("batches", "/batches").
		POST("", h.Batch.CreateBatch).
		GET("/:id", h.Batch.GetBatch).
		PUT("/:id/remaining", h.Batch.CorrectBatch).
		POST("/:id/expire", h.Batch.ExpireBatch).
		DELETE("/:id", h.Batch.DeleteBatch).
		GET("/:id/transactions", h.Transaction.HistoryForBatch)

	outlets := NewDomainGroup("outlets", "/outlets").
		GET("/:id/batches/expiring", h.Batch.ListExpiring).
		POST("/:id/expiry-sweep", h.Batch.ExpireDue)

	transactions := NewDomainGroup("transactions", "/transactions").
		POST("", h.Transaction.Record)

	purchaseOrders := NewDomainGroup("purchase-orders", "/purchase-orders").
		POST("/:id/receipts", h.Receipt.Receive)

	return []RouteRegistrar{ingredients, batches, outlets, transactions, purchaseOrders}
}
