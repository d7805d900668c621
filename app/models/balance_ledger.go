package models

import "time"

// BalanceLedger holds the running prepaid balance per beneficiary. Rows are
// created when a patient profile is set up; the reconciliation flow only
// ever increments them.
type BalanceLedger struct {
	PersonID         string    `gorm:"primaryKey;type:varchar(64)" json:"person_id"`
	DepositedBalance float64   `gorm:"not null;default:0" json:"deposited_balance"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
