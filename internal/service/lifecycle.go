package service

import (
	"context"

	"go.uber.org/zap"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

// UpdateRequest applies a partial update to a request and runs the status
// Scrap cascade. Any status may follow any other.
//
// Setting the status to Scrap also scraps the equipment. That second write
// is not atomic with the first: if it fails the updated request is returned
// together with an *apperr.CascadeError.
func (s *Service) UpdateRequest(ctx context.Context, id string, in RequestUpdate) (*model.Request, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	current, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := in.toPatch()
	updated, err := s.store.UpdateRequest(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if updated.Status != current.Status {
		s.log.Info("request status changed",
			zap.String("id", updated.ID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(updated.Status)),
		)
		s.notifier.RequestStatusChanged(*updated, current.Status)
	}

	if patch.Status != nil && *patch.Status == model.StatusScrap {
		if err := s.scrapEquipment(ctx, updated); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

func (s *Service) scrapEquipment(ctx context.Context, r *model.Request) error {
	scrap := model.EquipmentScrap
	_, err := s.store.UpdateEquipment(ctx, r.Equipment, model.EquipmentPatch{Status: &scrap})
	if err == nil {
		return nil
	}
	s.metrics.CascadeFailed()
	s.log.Error("scrap cascade failed; request updated but equipment unchanged",
		zap.String("request", r.ID),
		zap.String("equipment", r.Equipment),
		zap.Error(err),
	)
	return &apperr.CascadeError{RequestID: r.ID, EquipmentID: r.Equipment, Err: err}
}
