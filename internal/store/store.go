package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"gearguard-backend/internal/model"
)

// Entity names used in errors.
const (
	EntityTeam      = "team"
	EntityEquipment = "equipment"
	EntityRequest   = "request"
	EntityIdentity  = "user"
)

// TeamRepository is the team collection.
type TeamRepository interface {
	ListTeams(ctx context.Context) ([]model.Team, error)
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	CreateTeam(ctx context.Context, t model.Team) (*model.Team, error)
	UpdateTeam(ctx context.Context, id string, p model.TeamPatch) (*model.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

// EquipmentRepository is the equipment collection.
type EquipmentRepository interface {
	ListEquipment(ctx context.Context, f EquipmentFilter) ([]model.Equipment, error)
	GetEquipment(ctx context.Context, id string) (*model.Equipment, error)
	CreateEquipment(ctx context.Context, e model.Equipment) (*model.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, p model.EquipmentPatch) (*model.Equipment, error)
	DeleteEquipment(ctx context.Context, id string) error
	CountEquipmentByTeam(ctx context.Context, teamID string) (int64, error)
}

// RequestRepository is the maintenance request collection.
type RequestRepository interface {
	ListRequests(ctx context.Context, f RequestFilter) ([]model.Request, error)
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	CreateRequest(ctx context.Context, r model.Request) (*model.Request, error)
	UpdateRequest(ctx context.Context, id string, p model.RequestPatch) (*model.Request, error)
	DeleteRequest(ctx context.Context, id string) error
	CountOpenRequests(ctx context.Context, equipmentID string) (int64, error)
}

// IdentityRepository is the users collection backing the team directory.
type IdentityRepository interface {
	ListIdentities(ctx context.Context) ([]model.Identity, error)
	AddIdentities(ctx context.Context, identities []model.Identity) error
}

// Store is the entity store every backend implements. Integrity rules are
// enforced by callers; Delete* is idempotent here.
type Store interface {
	TeamRepository
	EquipmentRepository
	RequestRepository
	IdentityRepository
	// Backend names the implementation, for logs and metrics.
	Backend() string
}

// EquipmentFilter narrows ListEquipment. Search is a case-insensitive
// substring over name, serial number and assignee; Department is exact.
type EquipmentFilter struct {
	Search     string
	Department string
}

func (f EquipmentFilter) matches(e model.Equipment) bool {
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(e.Name), needle) ||
		strings.Contains(strings.ToLower(e.SerialNumber), needle) ||
		strings.Contains(strings.ToLower(e.AssignedTo), needle)
}

// RequestFilter narrows ListRequests. Empty fields match everything.
type RequestFilter struct {
	Equipment string
	Team      string
	Status    model.RequestStatus
}

func (f RequestFilter) matches(r model.Request) bool {
	if f.Equipment != "" && r.Equipment != f.Equipment {
		return false
	}
	if f.Team != "" && r.MaintenanceTeam != f.Team {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// now is the store clock. Millisecond precision keeps timestamps identical
// across backends (mongo stores milliseconds).
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func stampCreated(created, updated *time.Time) {
	t := now()
	if created.IsZero() {
		*created = t
	}
	if updated.IsZero() {
		*updated = *created
	}
}

// newFileID generates the fallback store's identifiers: 12 hex characters,
// visibly different from postgres UUIDs and mongo ObjectIDs.
func newFileID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func sortTeams(items []model.Team) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}

func sortEquipment(items []model.Equipment) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}

func sortRequests(items []model.Request) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}

func closedStatusValues() []string {
	out := make([]string, 0, len(model.ClosedStatuses))
	for _, s := range model.ClosedStatuses {
		out = append(out, string(s))
	}
	return out
}
