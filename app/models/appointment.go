package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCanceled  = "canceled"
)

// Appointment is a booking request submitted from the appointment form.
type Appointment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(64);index" json:"user_id,omitempty"`
	PatientName string    `gorm:"type:varchar(150);not null" json:"patient_name" validate:"required,min=3,max=150"`
	Phone       string    `gorm:"type:varchar(20);not null" json:"phone" validate:"required,min=7,max=20"`
	Email       string    `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email"`
	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at" validate:"required"`
	Reason      string    `gorm:"type:text" json:"reason" validate:"max=1000"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Appointment) Validate() error {
	v := validator.New()

	return v.Struct(a)
}
