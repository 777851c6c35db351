package model

import "time"

// RequestType distinguishes breakdowns from routine work.
type RequestType string

const (
	RequestCorrective RequestType = "Corrective"
	RequestPreventive RequestType = "Preventive"
)

// RequestStatus is the lifecycle state of a maintenance request.
type RequestStatus string

const (
	StatusNew        RequestStatus = "New"
	StatusInProgress RequestStatus = "In Progress"
	StatusRepaired   RequestStatus = "Repaired"
	StatusScrap      RequestStatus = "Scrap"
)

// Open reports whether the request still blocks deletion of its equipment.
func (s RequestStatus) Open() bool {
	return s != StatusRepaired && s != StatusScrap
}

// ClosedStatuses are the statuses that no longer hold on to the equipment.
var ClosedStatuses = []RequestStatus{StatusRepaired, StatusScrap}

// RequestPriority ranks urgency.
type RequestPriority string

const (
	PriorityLow      RequestPriority = "Low"
	PriorityMedium   RequestPriority = "Medium"
	PriorityHigh     RequestPriority = "High"
	PriorityCritical RequestPriority = "Critical"
)

// Request is a maintenance work item against one equipment item.
type Request struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id" bson:"_id"`
	Subject         string          `gorm:"size:256;not null" json:"subject" bson:"subject"`
	Equipment       string          `gorm:"index;size:64;not null" json:"equipment" bson:"equipment"`
	Type            RequestType     `gorm:"size:32;not null" json:"type" bson:"type"`
	Status          RequestStatus   `gorm:"index;size:32;not null" json:"status" bson:"status"`
	Priority        RequestPriority `gorm:"size:32;not null" json:"priority" bson:"priority"`
	Description     string          `gorm:"type:text" json:"description,omitempty" bson:"description,omitempty"`
	RequestedBy     string          `gorm:"size:256;not null" json:"requestedBy" bson:"requestedBy"`
	AssignedTo      string          `gorm:"size:256" json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	ScheduledDate   *time.Time      `json:"scheduledDate,omitempty" bson:"scheduledDate,omitempty"`
	CompletionDate  *time.Time      `json:"completionDate,omitempty" bson:"completionDate,omitempty"`
	DurationHours   *float64        `json:"durationHours,omitempty" bson:"durationHours,omitempty"`
	MaintenanceTeam string          `gorm:"index;size:64;not null" json:"maintenanceTeam" bson:"maintenanceTeam"`
	CreatedAt       time.Time       `gorm:"index;not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updatedAt" bson:"updatedAt"`
}

// RequestPatch holds the fields of a partial request update. The owning
// equipment and team are fixed at creation and cannot be patched.
type RequestPatch struct {
	Subject        *string
	Type           *RequestType
	Status         *RequestStatus
	Priority       *RequestPriority
	Description    *string
	RequestedBy    *string
	AssignedTo     *string
	ScheduledDate  *time.Time
	CompletionDate *time.Time
	DurationHours  *float64
}

// Apply merges the patch into r.
func (p RequestPatch) Apply(r *Request) {
	if p.Subject != nil {
		r.Subject = *p.Subject
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.RequestedBy != nil {
		r.RequestedBy = *p.RequestedBy
	}
	if p.AssignedTo != nil {
		r.AssignedTo = *p.AssignedTo
	}
	if p.ScheduledDate != nil {
		d := *p.ScheduledDate
		r.ScheduledDate = &d
	}
	if p.CompletionDate != nil {
		d := *p.CompletionDate
		r.CompletionDate = &d
	}
	if p.DurationHours != nil {
		h := *p.DurationHours
		r.DurationHours = &h
	}
}

// TableName avoids the generic "requests" table name.
func (Request) TableName() string { return "maintenance_requests" }
