package model

import "time"

// Team is a maintenance crew responsible for a subset of the equipment.
type Team struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id" bson:"_id"`
	Name        string     `gorm:"uniqueIndex;size:128;not null" json:"name" bson:"name"`
	Members     StringList `gorm:"type:text;not null" json:"members" bson:"members"`
	Description string     `gorm:"type:text" json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   time.Time  `gorm:"index;not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt" bson:"updatedAt"`
}

// TeamPatch holds the fields of a partial team update. Nil means unchanged.
type TeamPatch struct {
	Name        *string
	Members     *[]string
	Description *string
}

// Apply merges the patch into t.
func (p TeamPatch) Apply(t *Team) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Members != nil {
		t.Members = append(StringList{}, (*p.Members)...)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
}
