package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/odontobb/odontobb/app/models"
)

// appointmentRepository implements the AppointmentRepository interface
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository instance
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(appointment *models.Appointment) error {
	return r.db.Create(appointment).Error
}

func (r *appointmentRepository) GetByID(id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.db.First(&appointment, id).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByUserID(userID string, offset, limit int) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.Where("user_id = ?", userID).
		Order("scheduled_at DESC").Offset(offset).Limit(limit).
		Find(&appointments).Error
	return appointments, err
}

// ListByDay returns appointments scheduled within the given calendar day.
func (r *appointmentRepository) ListByDay(day time.Time) ([]models.Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var appointments []models.Appointment
	err := r.db.Where("scheduled_at >= ? AND scheduled_at < ?", start, end).
		Order("scheduled_at ASC").Find(&appointments).Error
	return appointments, err
}

func (r *appointmentRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Appointment{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *appointmentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Appointment{}, id).Error
}
