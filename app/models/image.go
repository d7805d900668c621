package models

import "time"

// Image stores metadata for an uploaded patient image. The binary lives in
// the blob store under StoragePath; DownloadURL is the public object URL.
type Image struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID         string     `gorm:"type:varchar(64);index" json:"user_id,omitempty"`
	OriginalName   string     `gorm:"type:varchar(255)" json:"original_name"`
	Size           int64      `gorm:"not null" json:"size"`
	ContentType    string     `gorm:"type:varchar(100)" json:"content_type"`
	StoragePath    string     `gorm:"type:varchar(255);not null" json:"storage_path"`
	DownloadURL    string     `gorm:"type:varchar(500)" json:"download_url"`
	ThumbnailURL   string     `gorm:"type:varchar(500)" json:"thumbnail_url,omitempty"`
	CameraModel    string     `gorm:"type:varchar(100);default:''" json:"camera_model,omitempty"`
	TakenAt        *time.Time `gorm:"type:timestamp;default:null" json:"taken_at,omitempty"`
	Processed      bool       `gorm:"default:false;index" json:"processed"`
	ViewCount      int64      `gorm:"default:0" json:"view_count"`
	DetectionsJSON string     `gorm:"type:longtext" json:"-"`
	ProcessedAt    *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"uploaded_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
