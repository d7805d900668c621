package models

import "time"

// PaymentWebhookEvent is an append-only audit trail of gateway callback
// deliveries. It is never consulted to decide whether a delivery should be
// processed; duplicate-credit protection lives on the Purchase row itself
// so a retried delivery can still finish a credit that failed half-way.
type PaymentWebhookEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CorrelationKey  string    `gorm:"type:varchar(64);index" json:"correlation_key"`
	Outcome         string    `gorm:"type:varchar(40)" json:"outcome"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessingError string    `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
