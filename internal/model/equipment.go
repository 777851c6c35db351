package model

import "time"

// EquipmentStatus is the operational state of an asset.
type EquipmentStatus string

const (
	EquipmentActive      EquipmentStatus = "Active"
	EquipmentMaintenance EquipmentStatus = "Maintenance"
	EquipmentScrap       EquipmentStatus = "Scrap"
)

// EquipmentStatuses lists the allowed equipment statuses.
var EquipmentStatuses = []EquipmentStatus{EquipmentActive, EquipmentMaintenance, EquipmentScrap}

// Equipment is a tracked physical asset owned by one team.
type Equipment struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id" bson:"_id"`
	Name            string          `gorm:"size:256;not null" json:"name" bson:"name"`
	SerialNumber    string          `gorm:"uniqueIndex;size:128;not null" json:"serialNumber" bson:"serialNumber"`
	Department      string          `gorm:"index;size:128;not null" json:"department" bson:"department"`
	Location        string          `gorm:"size:256;not null" json:"location" bson:"location"`
	Status          EquipmentStatus `gorm:"size:32;not null" json:"status" bson:"status"`
	Category        string          `gorm:"size:128;not null" json:"category" bson:"category"`
	PurchaseDate    time.Time       `gorm:"not null" json:"purchaseDate" bson:"purchaseDate"`
	WarrantyEnd     *time.Time      `json:"warrantyEnd,omitempty" bson:"warrantyEnd,omitempty"`
	AssignedTo      string          `gorm:"size:256" json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	ImageURL        string          `gorm:"size:1024" json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	MaintenanceTeam string          `gorm:"index;size:64;not null" json:"maintenanceTeam" bson:"maintenanceTeam"`
	CreatedAt       time.Time       `gorm:"index;not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updatedAt" bson:"updatedAt"`
}

// EquipmentPatch holds the fields of a partial equipment update.
type EquipmentPatch struct {
	Name            *string
	SerialNumber    *string
	Department      *string
	Location        *string
	Status          *EquipmentStatus
	Category        *string
	PurchaseDate    *time.Time
	WarrantyEnd     *time.Time
	AssignedTo      *string
	ImageURL        *string
	MaintenanceTeam *string
}

// Apply merges the patch into e.
func (p EquipmentPatch) Apply(e *Equipment) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.SerialNumber != nil {
		e.SerialNumber = *p.SerialNumber
	}
	if p.Department != nil {
		e.Department = *p.Department
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.PurchaseDate != nil {
		e.PurchaseDate = *p.PurchaseDate
	}
	if p.WarrantyEnd != nil {
		w := *p.WarrantyEnd
		e.WarrantyEnd = &w
	}
	if p.AssignedTo != nil {
		e.AssignedTo = *p.AssignedTo
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.MaintenanceTeam != nil {
		e.MaintenanceTeam = *p.MaintenanceTeam
	}
}

// TableName pins the table name; "equipment" has no plural.
func (Equipment) TableName() string { return "equipment" }
