package service

import (
	"strings"

	"gearguard-backend/internal/model"
)

// TeamInput is the body of a team creation.
type TeamInput struct {
	Name        string   `json:"name" validate:"required,notblank,teamname,max=128"`
	Members     []string `json:"members" validate:"omitempty,dive,notblank"`
	Description string   `json:"description"`
}

func (in TeamInput) toModel() model.Team {
	return model.Team{
		Name:        strings.TrimSpace(in.Name),
		Members:     append(model.StringList{}, in.Members...),
		Description: in.Description,
	}
}

// TeamUpdate is the body of a partial team update.
type TeamUpdate struct {
	Name        *string   `json:"name" validate:"omitempty,notblank,teamname,max=128"`
	Members     *[]string `json:"members" validate:"omitempty,dive,notblank"`
	Description *string   `json:"description"`
}

func (in TeamUpdate) toPatch() model.TeamPatch {
	p := model.TeamPatch{Members: in.Members, Description: in.Description}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		p.Name = &name
	}
	return p
}

// MemberInput names a member to add to a team.
type MemberInput struct {
	Name string `json:"name" validate:"required,notblank,max=256"`
}

// EquipmentInput is the body of an equipment creation.
type EquipmentInput struct {
	Name            string                `json:"name" validate:"required,notblank,max=256"`
	SerialNumber    string                `json:"serialNumber" validate:"required,notblank,max=128"`
	Department      string                `json:"department" validate:"required,notblank,max=128"`
	Location        string                `json:"location" validate:"required,notblank,max=256"`
	Status          model.EquipmentStatus `json:"status" validate:"omitempty,equipmentstatus"`
	Category        string                `json:"category" validate:"required,notblank,max=128"`
	PurchaseDate    string                `json:"purchaseDate" validate:"required,date"`
	WarrantyEnd     string                `json:"warrantyEnd" validate:"omitempty,date"`
	AssignedTo      string                `json:"assignedTo" validate:"max=256"`
	ImageURL        string                `json:"imageUrl" validate:"omitempty,url"`
	MaintenanceTeam string                `json:"maintenanceTeam" validate:"required,notblank"`
}

func (in EquipmentInput) toModel() model.Equipment {
	status := in.Status
	if status == "" {
		status = model.EquipmentActive
	}
	purchased, _ := parseDate(in.PurchaseDate)
	return model.Equipment{
		Name:            in.Name,
		SerialNumber:    strings.TrimSpace(in.SerialNumber),
		Department:      in.Department,
		Location:        in.Location,
		Status:          status,
		Category:        in.Category,
		PurchaseDate:    purchased,
		WarrantyEnd:     optionalDate(&in.WarrantyEnd),
		AssignedTo:      in.AssignedTo,
		ImageURL:        in.ImageURL,
		MaintenanceTeam: in.MaintenanceTeam,
	}
}

// EquipmentUpdate is the body of a partial equipment update.
type EquipmentUpdate struct {
	Name            *string                `json:"name" validate:"omitempty,notblank,max=256"`
	SerialNumber    *string                `json:"serialNumber" validate:"omitempty,notblank,max=128"`
	Department      *string                `json:"department" validate:"omitempty,notblank,max=128"`
	Location        *string                `json:"location" validate:"omitempty,notblank,max=256"`
	Status          *model.EquipmentStatus `json:"status" validate:"omitempty,equipmentstatus"`
	Category        *string                `json:"category" validate:"omitempty,notblank,max=128"`
	PurchaseDate    *string                `json:"purchaseDate" validate:"omitempty,date"`
	WarrantyEnd     *string                `json:"warrantyEnd" validate:"omitempty,date"`
	AssignedTo      *string                `json:"assignedTo" validate:"omitempty,max=256"`
	ImageURL        *string                `json:"imageUrl" validate:"omitempty,url"`
	MaintenanceTeam *string                `json:"maintenanceTeam" validate:"omitempty,notblank"`
}

func (in EquipmentUpdate) toPatch() model.EquipmentPatch {
	p := model.EquipmentPatch{
		Name:            in.Name,
		Department:      in.Department,
		Location:        in.Location,
		Status:          in.Status,
		Category:        in.Category,
		PurchaseDate:    optionalDate(in.PurchaseDate),
		WarrantyEnd:     optionalDate(in.WarrantyEnd),
		AssignedTo:      in.AssignedTo,
		ImageURL:        in.ImageURL,
		MaintenanceTeam: in.MaintenanceTeam,
	}
	if in.SerialNumber != nil {
		serial := strings.TrimSpace(*in.SerialNumber)
		p.SerialNumber = &serial
	}
	return p
}

// RequestInput is the body of a request creation. MaintenanceTeam is
// accepted for compatibility and always replaced by the equipment's team.
type RequestInput struct {
	Subject         string                `json:"subject" validate:"required,notblank,max=256"`
	Equipment       string                `json:"equipment" validate:"required,notblank"`
	Type            model.RequestType     `json:"type" validate:"required,requesttype"`
	Status          model.RequestStatus   `json:"status" validate:"omitempty,requeststatus"`
	Priority        model.RequestPriority `json:"priority" validate:"omitempty,priority"`
	Description     string                `json:"description"`
	RequestedBy     string                `json:"requestedBy" validate:"max=256"`
	AssignedTo      string                `json:"assignedTo" validate:"max=256"`
	ScheduledDate   string                `json:"scheduledDate" validate:"omitempty,date"`
	DurationHours   *float64              `json:"durationHours" validate:"omitempty,gte=0"`
	MaintenanceTeam string                `json:"maintenanceTeam"`
}

// Request defaults.
const (
	DefaultRequestedBy = "System Admin"
)

func (in RequestInput) toModel() model.Request {
	r := model.Request{
		Subject:       in.Subject,
		Equipment:     in.Equipment,
		Type:          in.Type,
		Status:        in.Status,
		Priority:      in.Priority,
		Description:   in.Description,
		RequestedBy:   strings.TrimSpace(in.RequestedBy),
		AssignedTo:    in.AssignedTo,
		ScheduledDate: optionalDate(&in.ScheduledDate),
		DurationHours: in.DurationHours,
	}
	if r.Status == "" {
		r.Status = model.StatusNew
	}
	if r.Priority == "" {
		r.Priority = model.PriorityMedium
	}
	if r.RequestedBy == "" {
		r.RequestedBy = DefaultRequestedBy
	}
	return r
}

// RequestUpdate is the body of a partial request update. It has no
// equipment or team field: both are fixed at creation.
type RequestUpdate struct {
	Subject        *string                `json:"subject" validate:"omitempty,notblank,max=256"`
	Type           *model.RequestType     `json:"type" validate:"omitempty,requesttype"`
	Status         *model.RequestStatus   `json:"status" validate:"omitempty,requeststatus"`
	Priority       *model.RequestPriority `json:"priority" validate:"omitempty,priority"`
	Description    *string                `json:"description"`
	RequestedBy    *string                `json:"requestedBy" validate:"omitempty,max=256"`
	AssignedTo     *string                `json:"assignedTo" validate:"omitempty,max=256"`
	ScheduledDate  *string                `json:"scheduledDate" validate:"omitempty,date"`
	CompletionDate *string                `json:"completionDate" validate:"omitempty,date"`
	DurationHours  *float64               `json:"durationHours" validate:"omitempty,gte=0"`
}

func (in RequestUpdate) toPatch() model.RequestPatch {
	return model.RequestPatch{
		Subject:        in.Subject,
		Type:           in.Type,
		Status:         in.Status,
		Priority:       in.Priority,
		Description:    in.Description,
		RequestedBy:    in.RequestedBy,
		AssignedTo:     in.AssignedTo,
		ScheduledDate:  optionalDate(in.ScheduledDate),
		CompletionDate: optionalDate(in.CompletionDate),
		DurationHours:  in.DurationHours,
	}
}

