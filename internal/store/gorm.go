package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gearguard-backend/internal/db"
	"gearguard-backend/internal/model"
)

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	backend string

	schemaMu sync.Mutex
	migrated bool
}

// NewGormStore creates a new GORM-backed primary store. backend names the
// dialect ("postgres" or "sqlite") for logs and error messages.
func NewGormStore(gdb *gorm.DB, backend string) Store {
	return &gormStore{db: gdb, backend: backend}
}

func (s *gormStore) Backend() string { return s.backend }

// conn returns a session bound to ctx, migrating the schema on first use.
// Migration is retried on every call until it succeeds once.
func (s *gormStore) conn(ctx context.Context) (*gorm.DB, error) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if !s.migrated {
		if err := db.Migrate(s.db.WithContext(ctx)); err != nil {
			return nil, translateSQL(s.backend, "schema", "", err)
		}
		s.migrated = true
	}
	return s.db.WithContext(ctx), nil
}

// --- teams ---

func (s *gormStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	teams := []model.Team{}
	if err := tx.Order("created_at DESC").Find(&teams).Error; err != nil {
		return nil, translateSQL(s.backend, EntityTeam, "", err)
	}
	return teams, nil
}

func (s *gormStore) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var t model.Team
	if err := tx.First(&t, "id = ?", id).Error; err != nil {
		return nil, translateSQL(s.backend, EntityTeam, id, err)
	}
	return &t, nil
}

func (s *gormStore) CreateTeam(ctx context.Context, t model.Team) (*model.Team, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Members == nil {
		t.Members = model.StringList{}
	}
	stampCreated(&t.CreatedAt, &t.UpdatedAt)
	if err := tx.Create(&t).Error; err != nil {
		return nil, translateSQL(s.backend, EntityTeam, t.ID, err)
	}
	return &t, nil
}

func (s *gormStore) UpdateTeam(ctx context.Context, id string, p model.TeamPatch) (*model.Team, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var t model.Team
	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			return err
		}
		p.Apply(&t)
		t.UpdatedAt = now()
		return tx.Save(&t).Error
	})
	if err != nil {
		return nil, translateSQL(s.backend, EntityTeam, id, err)
	}
	return &t, nil
}

func (s *gormStore) DeleteTeam(ctx context.Context, id string) error {
	tx, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := tx.Delete(&model.Team{}, "id = ?", id).Error; err != nil {
		return translateSQL(s.backend, EntityTeam, id, err)
	}
	return nil
}

// --- equipment ---

func (s *gormStore) ListEquipment(ctx context.Context, f EquipmentFilter) ([]model.Equipment, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := tx.Model(&model.Equipment{})
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		q = q.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(serial_number) LIKE ? ESCAPE '\' OR LOWER(assigned_to) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	items := []model.Equipment{}
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, translateSQL(s.backend, EntityEquipment, "", err)
	}
	return items, nil
}

func (s *gormStore) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var e model.Equipment
	if err := tx.First(&e, "id = ?", id).Error; err != nil {
		return nil, translateSQL(s.backend, EntityEquipment, id, err)
	}
	return &e, nil
}

func (s *gormStore) CreateEquipment(ctx context.Context, e model.Equipment) (*model.Equipment, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	stampCreated(&e.CreatedAt, &e.UpdatedAt)
	if err := tx.Create(&e).Error; err != nil {
		return nil, translateSQL(s.backend, EntityEquipment, e.ID, err)
	}
	return &e, nil
}

func (s *gormStore) UpdateEquipment(ctx context.Context, id string, p model.EquipmentPatch) (*model.Equipment, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var e model.Equipment
	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, "id = ?", id).Error; err != nil {
			return err
		}
		p.Apply(&e)
		e.UpdatedAt = now()
		return tx.Save(&e).Error
	})
	if err != nil {
		return nil, translateSQL(s.backend, EntityEquipment, id, err)
	}
	return &e, nil
}

func (s *gormStore) DeleteEquipment(ctx context.Context, id string) error {
	tx, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := tx.Delete(&model.Equipment{}, "id = ?", id).Error; err != nil {
		return translateSQL(s.backend, EntityEquipment, id, err)
	}
	return nil
}

func (s *gormStore) CountEquipmentByTeam(ctx context.Context, teamID string) (int64, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Model(&model.Equipment{}).Where("maintenance_team = ?", teamID).Count(&n).Error; err != nil {
		return 0, translateSQL(s.backend, EntityEquipment, "", err)
	}
	return n, nil
}

// --- requests ---

func (s *gormStore) ListRequests(ctx context.Context, f RequestFilter) ([]model.Request, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := tx.Model(&model.Request{})
	if f.Equipment != "" {
		q = q.Where("equipment = ?", f.Equipment)
	}
	if f.Team != "" {
		q = q.Where("maintenance_team = ?", f.Team)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	items := []model.Request{}
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, translateSQL(s.backend, EntityRequest, "", err)
	}
	return items, nil
}

func (s *gormStore) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var r model.Request
	if err := tx.First(&r, "id = ?", id).Error; err != nil {
		return nil, translateSQL(s.backend, EntityRequest, id, err)
	}
	return &r, nil
}

func (s *gormStore) CreateRequest(ctx context.Context, r model.Request) (*model.Request, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	stampCreated(&r.CreatedAt, &r.UpdatedAt)
	if err := tx.Create(&r).Error; err != nil {
		return nil, translateSQL(s.backend, EntityRequest, r.ID, err)
	}
	return &r, nil
}

func (s *gormStore) UpdateRequest(ctx context.Context, id string, p model.RequestPatch) (*model.Request, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var r model.Request
	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&r, "id = ?", id).Error; err != nil {
			return err
		}
		p.Apply(&r)
		r.UpdatedAt = now()
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, translateSQL(s.backend, EntityRequest, id, err)
	}
	return &r, nil
}

func (s *gormStore) DeleteRequest(ctx context.Context, id string) error {
	tx, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := tx.Delete(&model.Request{}, "id = ?", id).Error; err != nil {
		return translateSQL(s.backend, EntityRequest, id, err)
	}
	return nil
}

func (s *gormStore) CountOpenRequests(ctx context.Context, equipmentID string) (int64, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = tx.Model(&model.Request{}).
		Where("equipment = ? AND status NOT IN ?", equipmentID, closedStatusValues()).
		Count(&n).Error
	if err != nil {
		return 0, translateSQL(s.backend, EntityRequest, "", err)
	}
	return n, nil
}

// --- identities ---

func (s *gormStore) ListIdentities(ctx context.Context) ([]model.Identity, error) {
	tx, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	items := []model.Identity{}
	if err := tx.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, translateSQL(s.backend, EntityIdentity, "", err)
	}
	return items, nil
}

func (s *gormStore) AddIdentities(ctx context.Context, identities []model.Identity) error {
	if len(identities) == 0 {
		return nil
	}
	tx, err := s.conn(ctx)
	if err != nil {
		return err
	}
	for i := range identities {
		if identities[i].ID == "" {
			identities[i].ID = uuid.NewString()
		}
		if identities[i].CreatedAt.IsZero() {
			identities[i].CreatedAt = now()
		}
	}
	if err := tx.Create(&identities).Error; err != nil {
		return translateSQL(s.backend, EntityIdentity, "", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
