package model

import "time"

// Role separates the administrator from team logins.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleTeam  Role = "team"
)

// Identity is a login derived from the team directory.
type Identity struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id" bson:"_id"`
	Username     string    `gorm:"uniqueIndex;size:128;not null" json:"username" bson:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"passwordHash" bson:"passwordHash"`
	Role         Role      `gorm:"size:16;not null" json:"role" bson:"role"`
	TeamID       string    `gorm:"size:64" json:"teamId,omitempty" bson:"teamId,omitempty"`
	Name         string    `gorm:"size:256" json:"name" bson:"name"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// TableName matches the "users" collection of the other backends.
func (Identity) TableName() string { return "users" }
