package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver and ORM failures onto the ledger's error values.
// Domain errors and cancellation pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return shared.Errorf(shared.ErrRepositoryUnavailable, "database deadline exceeded: %v", err)
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return shared.Errorf(shared.ErrRepositoryUnavailable, "database connection failed: %v", err)
	}
	return shared.Errorf(shared.ErrRepositoryUnavailable, "database error: %v", err)
}
