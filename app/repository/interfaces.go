package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/odontobb/odontobb/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByOAuth(provider, oauthID string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// ImageRepository defines the interface for image-related database operations
type ImageRepository interface {
	Create(image *models.Image) error
	GetByID(id string) (*models.Image, error)
	List(offset, limit int) ([]models.Image, error)
	ListByUserID(userID string, offset, limit int) ([]models.Image, error)
	Update(image *models.Image) error
	Delete(id string) error
	Count() (int64, error)
	CountByUserID(userID string) (int64, error)
}

// AppointmentRepository defines the interface for appointment operations
type AppointmentRepository interface {
	Create(appointment *models.Appointment) error
	GetByID(id uint) (*models.Appointment, error)
	ListByUserID(userID string, offset, limit int) ([]models.Appointment, error)
	ListByDay(day time.Time) ([]models.Appointment, error)
	UpdateStatus(id uint, status string) error
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	Image       ImageRepository
	Appointment AppointmentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Image:       NewImageRepository(db),
		Appointment: NewAppointmentRepository(db),
	}
}
