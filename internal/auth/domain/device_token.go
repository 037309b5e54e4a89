package domain

import "time"

// DeviceToken is a push registration for one browser or device.
type DeviceToken struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserID     string    `json:"user_id" gorm:"size:128;index;not null"`
	Token      string    `json:"-" gorm:"size:512;uniqueIndex;not null"` // never exposed
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string { return "device_tokens" }
