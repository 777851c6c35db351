package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

// ListTeams returns all teams, newest first.
func (s *Service) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.store.ListTeams(ctx)
}

// GetTeam returns one team.
func (s *Service) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	return s.store.GetTeam(ctx, id)
}

// CreateTeam validates and stores a new team.
func (s *Service) CreateTeam(ctx context.Context, in TeamInput) (*model.Team, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTeam(ctx, in.toModel())
	if err != nil {
		return nil, err
	}
	s.log.Info("team created", zap.String("id", t.ID), zap.String("name", t.Name))
	return t, nil
}

// UpdateTeam applies a partial update.
func (s *Service) UpdateTeam(ctx context.Context, id string, in TeamUpdate) (*model.Team, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	return s.store.UpdateTeam(ctx, id, in.toPatch())
}

// DeleteTeam removes a team that no equipment references.
func (s *Service) DeleteTeam(ctx context.Context, id string) error {
	if _, err := s.store.GetTeam(ctx, id); err != nil {
		return err
	}
	if err := s.guardTeamDelete(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.log.Info("team deleted", zap.String("id", id))
	return nil
}

// AddMember appends a member to the team. Adding an existing member is a
// no-op.
func (s *Service) AddMember(ctx context.Context, teamID string, in MemberInput) (*model.Team, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	t, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if t.Members.Contains(name) {
		return t, nil
	}
	members := append([]string(t.Members), name)
	return s.store.UpdateTeam(ctx, teamID, model.TeamPatch{Members: &members})
}

// RemoveMember removes a member from the team.
func (s *Service) RemoveMember(ctx context.Context, teamID, member string) (*model.Team, error) {
	t, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.Members.Contains(member) {
		return nil, apperr.NotFound("member", member)
	}
	members := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m != member {
			members = append(members, m)
		}
	}
	return s.store.UpdateTeam(ctx, teamID, model.TeamPatch{Members: &members})
}
