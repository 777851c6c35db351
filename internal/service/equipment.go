package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
	"gearguard-backend/internal/store"
)

// ListEquipment returns the equipment matching f, newest first.
func (s *Service) ListEquipment(ctx context.Context, f store.EquipmentFilter) ([]model.Equipment, error) {
	return s.store.ListEquipment(ctx, f)
}

// GetEquipment returns one equipment item.
func (s *Service) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	return s.store.GetEquipment(ctx, id)
}

// CreateEquipment validates the input and checks that the maintenance team
// exists before storing.
func (s *Service) CreateEquipment(ctx context.Context, in EquipmentInput) (*model.Equipment, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.requireTeam(ctx, in.MaintenanceTeam); err != nil {
		return nil, err
	}
	e, err := s.store.CreateEquipment(ctx, in.toModel())
	if err != nil {
		return nil, err
	}
	s.log.Info("equipment created", zap.String("id", e.ID), zap.String("serial", e.SerialNumber))
	return e, nil
}

// UpdateEquipment applies a partial update. A changed maintenance team must
// exist.
func (s *Service) UpdateEquipment(ctx context.Context, id string, in EquipmentUpdate) (*model.Equipment, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.MaintenanceTeam != nil {
		if err := s.requireTeam(ctx, *in.MaintenanceTeam); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateEquipment(ctx, id, in.toPatch())
}

// DeleteEquipment removes equipment that has no open requests.
func (s *Service) DeleteEquipment(ctx context.Context, id string) error {
	if _, err := s.store.GetEquipment(ctx, id); err != nil {
		return err
	}
	if err := s.guardEquipmentDelete(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	s.log.Info("equipment deleted", zap.String("id", id))
	return nil
}

// requireTeam turns a missing team into a validation failure on the
// maintenanceTeam field.
func (s *Service) requireTeam(ctx context.Context, teamID string) error {
	_, err := s.store.GetTeam(ctx, teamID)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return apperr.Invalid("maintenanceTeam", "team "+teamID+" does not exist")
	}
	return err
}
