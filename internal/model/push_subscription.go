package model

import "time"

// PushSubscription holds the information for a browser push subscription
// and the teams whose request activity it follows.
type PushSubscription struct {
	Endpoint  string     `gorm:"primaryKey"`
	P256DH    string     `gorm:"column:p256dh;not null"`
	Auth      string     `gorm:"not null"`
	Teams     StringList `gorm:"type:text;not null"`
	CreatedAt time.Time  `gorm:"not null"`
}
