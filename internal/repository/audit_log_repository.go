package repository

import (
	"context"

	"foodcart/internal/domain/model"
)

// AuditLogFilter selects audit entries. Zero fields match everything.
type AuditLogFilter struct {
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   string
	// default 50, at most 200
	Limit int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// List returns matching entries, oldest first.
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
