// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - ledger.go: Ingredient, batch and stock transaction models
//
// Quantities are stored as a decimal amount next to their unit code and money
// as integer minor units next to a currency code.
package models
