package models

import "time"

// Purchase lifecycle statuses. PayPhone reports "Approved" / "Canceled" on
// its callbacks; anything else the gateway sends is stored as-is for audit.
const (
	PurchaseStatusPending  = "pending"
	PurchaseStatusApproved = "Approved"
	PurchaseStatusCanceled = "Canceled"
	PurchaseStatusFailed   = "Failed"
)

// Purchase records one payment attempt. The internal reference is the
// primary key; the gateway correlation id is kept as a separate indexed
// column so callbacks can be matched either way.
type Purchase struct {
	Reference           string     `gorm:"primaryKey;type:varchar(64)" json:"reference"`
	ClientTransactionID string     `gorm:"type:varchar(64);index" json:"client_transaction_id"`
	UserID              string     `gorm:"type:varchar(64);index" json:"user_id"`
	ChildID             string     `gorm:"type:varchar(64);default:''" json:"child_id,omitempty"`
	ProductID           string     `gorm:"type:varchar(64)" json:"product_id"`
	Amount              float64    `gorm:"not null" json:"amount"`
	Status              string     `gorm:"type:varchar(40);not null;default:'pending';index" json:"status"`
	CreditedAt          *time.Time `gorm:"type:timestamp;default:null" json:"credited_at,omitempty"`
	RawPayload          string     `gorm:"type:longtext" json:"-"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Beneficiary returns the person the purchase pays for. Older clients send
// childId for treatments booked on a child profile, newer ones send userId.
func (p *Purchase) Beneficiary() string {
	if p.ChildID != "" {
		return p.ChildID
	}
	return p.UserID
}

// IsCredited reports whether this purchase already contributed to a ledger.
func (p *Purchase) IsCredited() bool {
	return p.CreditedAt != nil
}
