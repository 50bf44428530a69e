package model

import "time"

// StaffSubscription is a browser push subscription belonging to venue staff.
// Staff receive alerts when automation for a booking needs manual attention.
type StaffSubscription struct {
	Endpoint  string    `gorm:"primaryKey;size:512" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"-"`
	Label     string    `gorm:"size:128" json:"label"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
