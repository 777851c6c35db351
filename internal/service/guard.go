package service

import (
	"context"
	"fmt"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/store"
)

// The guards run immediately before the delete they protect. A concurrent
// insert between the count and the delete is not prevented.

func (s *Service) guardEquipmentDelete(ctx context.Context, equipmentID string) error {
	n, err := s.store.CountOpenRequests(ctx, equipmentID)
	if err != nil {
		return err
	}
	if n > 0 {
		return &apperr.ConflictError{
			Entity: store.EntityEquipment,
			ID:     equipmentID,
			Reason: fmt.Sprintf("%d open maintenance request(s) reference this equipment", n),
			Count:  n,
		}
	}
	return nil
}

func (s *Service) guardTeamDelete(ctx context.Context, teamID string) error {
	n, err := s.store.CountEquipmentByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if n > 0 {
		return &apperr.ConflictError{
			Entity: store.EntityTeam,
			ID:     teamID,
			Reason: fmt.Sprintf("%d equipment item(s) are maintained by this team", n),
			Count:  n,
		}
	}
	return nil
}
