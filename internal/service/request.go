package service

import (
	"context"

	"go.uber.org/zap"

	"gearguard-backend/internal/model"
	"gearguard-backend/internal/store"
)

// ListRequests returns the requests matching f, newest first.
func (s *Service) ListRequests(ctx context.Context, f store.RequestFilter) ([]model.Request, error) {
	return s.store.ListRequests(ctx, f)
}

// GetRequest returns one request.
func (s *Service) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	return s.store.GetRequest(ctx, id)
}

// CreateRequest stores a new request owned by the equipment's team. Any
// team in the input is discarded.
func (s *Service) CreateRequest(ctx context.Context, in RequestInput) (*model.Request, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	r := in.toModel()
	team, err := s.resolveTeam(ctx, r.Equipment)
	if err != nil {
		return nil, err
	}
	r.MaintenanceTeam = team

	created, err := s.store.CreateRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	s.log.Info("request created",
		zap.String("id", created.ID),
		zap.String("equipment", created.Equipment),
		zap.String("team", created.MaintenanceTeam),
	)
	s.notifier.RequestCreated(*created)
	return created, nil
}

// resolveTeam returns the maintenance team of the equipment. A missing
// equipment is reported as not found.
func (s *Service) resolveTeam(ctx context.Context, equipmentID string) (string, error) {
	e, err := s.store.GetEquipment(ctx, equipmentID)
	if err != nil {
		return "", err
	}
	return e.MaintenanceTeam, nil
}

// DeleteRequest removes a request. Requests have no dependents.
func (s *Service) DeleteRequest(ctx context.Context, id string) error {
	if _, err := s.store.GetRequest(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteRequest(ctx, id)
}
