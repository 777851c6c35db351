package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
	"gearguard-backend/internal/store"
)

// Expandable reference names accepted by ParseExpansion.
const (
	ExpandTeam      = "team"
	ExpandEquipment = "equipment"
)

// Expansion selects the references a read resolves into records.
type Expansion struct {
	Team      bool
	Equipment bool
}

// ParseExpansion reads a comma separated list such as "team,equipment".
// Names outside allowed are a validation error on the expand field.
func ParseExpansion(raw string, allowed ...string) (Expansion, error) {
	var x Expansion
	for _, name := range strings.Split(raw, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !slices.Contains(allowed, name) {
			return Expansion{}, apperr.Invalid("expand", "cannot expand "+name)
		}
		switch name {
		case ExpandTeam:
			x.Team = true
		case ExpandEquipment:
			x.Equipment = true
		}
	}
	return x, nil
}

// ExpandRequests resolves the references selected by x. References to
// records that no longer exist stay as ids.
func (s *Service) ExpandRequests(ctx context.Context, rs []model.Request, x Expansion) ([]model.RequestView, error) {
	var teamIDs, equipmentIDs []string
	for _, r := range rs {
		if x.Team {
			teamIDs = append(teamIDs, r.MaintenanceTeam)
		}
		if x.Equipment {
			equipmentIDs = append(equipmentIDs, r.Equipment)
		}
	}
	teams, err := s.teamsByID(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	equipment, err := s.equipmentByID(ctx, equipmentIDs)
	if err != nil {
		return nil, err
	}

	out := make([]model.RequestView, 0, len(rs))
	for _, r := range rs {
		out = append(out, model.RequestView{
			Request:         r,
			Equipment:       model.Ref[model.Equipment]{ID: r.Equipment, Value: equipment[r.Equipment]},
			MaintenanceTeam: model.Ref[model.Team]{ID: r.MaintenanceTeam, Value: teams[r.MaintenanceTeam]},
		})
	}
	return out, nil
}

// ExpandEquipment resolves the maintenance team when x.Team is set.
func (s *Service) ExpandEquipment(ctx context.Context, items []model.Equipment, x Expansion) ([]model.EquipmentView, error) {
	var teamIDs []string
	if x.Team {
		for _, e := range items {
			teamIDs = append(teamIDs, e.MaintenanceTeam)
		}
	}
	teams, err := s.teamsByID(ctx, teamIDs)
	if err != nil {
		return nil, err
	}

	out := make([]model.EquipmentView, 0, len(items))
	for _, e := range items {
		out = append(out, model.EquipmentView{
			Equipment:       e,
			MaintenanceTeam: model.Ref[model.Team]{ID: e.MaintenanceTeam, Value: teams[e.MaintenanceTeam]},
		})
	}
	return out, nil
}

// teamsByID loads the named teams with one store read: a Get for a single
// id, a full list otherwise.
func (s *Service) teamsByID(ctx context.Context, ids []string) (map[string]*model.Team, error) {
	ids = distinct(ids)
	out := make(map[string]*model.Team, len(ids))
	switch len(ids) {
	case 0:
		return out, nil
	case 1:
		t, err := s.store.GetTeam(ctx, ids[0])
		if err != nil {
			return out, ignoreNotFound(err)
		}
		out[t.ID] = t
		return out, nil
	}
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		out[teams[i].ID] = &teams[i]
	}
	return out, nil
}

func (s *Service) equipmentByID(ctx context.Context, ids []string) (map[string]*model.Equipment, error) {
	ids = distinct(ids)
	out := make(map[string]*model.Equipment, len(ids))
	switch len(ids) {
	case 0:
		return out, nil
	case 1:
		e, err := s.store.GetEquipment(ctx, ids[0])
		if err != nil {
			return out, ignoreNotFound(err)
		}
		out[e.ID] = e
		return out, nil
	}
	items, err := s.store.ListEquipment(ctx, store.EquipmentFilter{})
	if err != nil {
		return nil, err
	}
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func ignoreNotFound(err error) error {
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}
