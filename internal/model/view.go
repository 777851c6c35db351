package model

import "encoding/json"

// Ref is a reference to another record. It marshals as the record when
// Value is resolved and as the bare id otherwise.
type Ref[T any] struct {
	ID    string
	Value *T
}

// MarshalJSON implements json.Marshaler.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(r.Value)
	}
	return json.Marshal(r.ID)
}

// RequestView is a request with its equipment and team optionally
// resolved into records.
type RequestView struct {
	Request
	Equipment       Ref[Equipment] `json:"equipment"`
	MaintenanceTeam Ref[Team]      `json:"maintenanceTeam"`
}

// EquipmentView is an equipment item with its team optionally resolved.
type EquipmentView struct {
	Equipment
	MaintenanceTeam Ref[Team] `json:"maintenanceTeam"`
}
