package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

// AdminUsername is the login of the fixed administrator identity.
const AdminUsername = "admin"

// DirectoryConfig sets the initial passwords of generated identities.
type DirectoryConfig struct {
	AdminPassword string
	TeamPassword  string
	BcryptCost    int
}

// DefaultDirectoryConfig returns the stock demo credentials.
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		AdminPassword: "admin123",
		TeamPassword:  "pass",
		BcryptCost:    bcrypt.DefaultCost,
	}
}

// Username derives a team's login: the name lowercased with all whitespace
// removed, so "IT Support" logs in as "itsupport".
func Username(teamName string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, teamName)
}

// Identities returns the login identities, first adding the administrator
// and one identity per team when they are missing. Existing identities are
// never rewritten, so a renamed team keeps its old login and gains a new one.
func (s *Service) Identities(ctx context.Context) ([]model.Identity, error) {
	existing, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	missing, err := s.missingIdentities(existing, teams)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return existing, nil
	}

	err = s.store.AddIdentities(ctx, missing)
	var conflict *apperr.ConflictError
	switch {
	case err == nil:
		s.log.Info("generated identities", zap.Int("count", len(missing)))
	case errors.As(err, &conflict):
		// Another caller generated them first.
	default:
		return nil, err
	}
	return s.store.ListIdentities(ctx)
}

func (s *Service) missingIdentities(existing []model.Identity, teams []model.Team) ([]model.Identity, error) {
	seen := make(map[string]bool, len(existing)+len(teams)+1)
	for _, id := range existing {
		seen[id.Username] = true
	}

	var missing []model.Identity
	add := func(id model.Identity, password string) error {
		if id.Username == "" || seen[id.Username] {
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost())
		if err != nil {
			return apperr.Unexpected(err)
		}
		id.PasswordHash = string(hash)
		seen[id.Username] = true
		missing = append(missing, id)
		return nil
	}

	if err := add(model.Identity{Username: AdminUsername, Role: model.RoleAdmin, Name: DefaultRequestedBy}, s.dir.AdminPassword); err != nil {
		return nil, err
	}
	// Oldest team first, so the earlier team keeps a contested username.
	ordered := append([]model.Team(nil), teams...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })
	for _, t := range ordered {
		id := model.Identity{Username: Username(t.Name), Role: model.RoleTeam, TeamID: t.ID, Name: t.Name}
		if err := add(id, s.dir.TeamPassword); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (s *Service) bcryptCost() int {
	if s.dir.BcryptCost < bcrypt.MinCost || s.dir.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return s.dir.BcryptCost
}

// FindIdentity looks up one identity by id.
func (s *Service) FindIdentity(ctx context.Context, id string) (*model.Identity, error) {
	identities, err := s.Identities(ctx)
	if err != nil {
		return nil, err
	}
	for _, ident := range identities {
		if ident.ID == id {
			return &ident, nil
		}
	}
	return nil, apperr.NotFound("user", id)
}
