package model

import "time"

type AuditAction string

const (
	// settlement signature did not match; kept as a fraud signal
	AuditActionSignatureRejected AuditAction = "SIGNATURE_REJECTED"
	AuditActionOrderCommitted    AuditAction = "ORDER_COMMITTED"
)

type AuditResourceType string

const (
	AuditResourcePayment AuditResourceType = "payment"
	AuditResourceOrder   AuditResourceType = "order"
)

// Who did what to which resource.
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	// intent id for payments, order id for orders
	ResourceID string `gorm:"type:varchar(255);not null;index" json:"resource_id"`

	DetailJSON string    `gorm:"type:text" json:"detail_json"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}
