package repository

import (
	"gorm.io/gorm"

	"github.com/odontobb/odontobb/app/models"
)

// imageRepository implements the ImageRepository interface
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository instance
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create creates a new image record in the database
func (r *imageRepository) Create(image *models.Image) error {
	return r.db.Create(image).Error
}

// GetByID retrieves an image by its ID
func (r *imageRepository) GetByID(id string) (*models.Image, error) {
	var image models.Image
	if err := r.db.Where("id = ?", id).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// List retrieves images ordered by upload time with pagination
func (r *imageRepository) List(offset, limit int) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&images).Error
	return images, err
}

// ListByUserID retrieves images belonging to a specific user with pagination
func (r *imageRepository) ListByUserID(userID string, offset, limit int) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&images).Error
	return images, err
}

// Update updates an existing image record
func (r *imageRepository) Update(image *models.Image) error {
	return r.db.Save(image).Error
}

// Delete removes an image record
func (r *imageRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Image{}).Error
}

func (r *imageRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Count(&count).Error
	return count, err
}

func (r *imageRepository) CountByUserID(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
