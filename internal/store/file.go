package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

const backendFile = "file"

// document is the on-disk layout of the fallback store.
type document struct {
	Teams     []model.Team      `json:"teams"`
	Equipment []model.Equipment `json:"equipment"`
	Requests  []model.Request   `json:"requests"`
	Users     []model.Identity  `json:"users"`
}

func (d *document) normalize() {
	if d.Teams == nil {
		d.Teams = []model.Team{}
	}
	if d.Equipment == nil {
		d.Equipment = []model.Equipment{}
	}
	if d.Requests == nil {
		d.Requests = []model.Request{}
	}
	if d.Users == nil {
		d.Users = []model.Identity{}
	}
}

// FileOption configures the fallback store.
type FileOption func(*fileStore)

// WithDemoSeed fills a newly created data file with the demo fleet.
func WithDemoSeed(enabled bool) FileOption {
	return func(s *fileStore) { s.seedDemo = enabled }
}

// fileStore keeps every collection in one JSON document. Each operation
// reads the file, and each write rewrites it whole, inside one mutex
// section, so the process never interleaves two read-modify-write cycles.
type fileStore struct {
	path     string
	seedDemo bool

	mu sync.Mutex
}

// NewFileStore creates the fallback store backed by the JSON file at path.
// The file is created on first use.
func NewFileStore(path string, opts ...FileOption) Store {
	s := &fileStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *fileStore) Backend() string { return backendFile }

// view runs fn against the current document without writing it back.
func (s *fileStore) view(ctx context.Context, fn func(*document) error) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn against the current document and persists it when fn
// succeeds.
func (s *fileStore) update(ctx context.Context, fn func(*document) error) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

// ensure creates the data file when it does not exist yet.
func (s *fileStore) ensure(ctx context.Context) error {
	s.mu.Lock()
	_, err := os.Stat(s.path)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		if err := s.write(&document{}); err != nil {
			s.mu.Unlock()
			return err
		}
		created = true
	default:
		s.mu.Unlock()
		return apperr.Unexpected(fmt.Errorf("stat %s: %w", s.path, err))
	}
	s.mu.Unlock()

	if created && s.seedDemo {
		if _, err := Seed(ctx, s); err != nil {
			return fmt.Errorf("seed fallback file: %w", err)
		}
	}
	return nil
}

func (s *fileStore) read() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("read %s: %w", s.path, err))
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("decode %s: %w", s.path, err))
	}
	doc.normalize()
	return &doc, nil
}

// write replaces the file atomically through a temp file in the same
// directory.
func (s *fileStore) write(doc *document) error {
	doc.normalize()
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.Unexpected(fmt.Errorf("encode %s: %w", s.path, err))
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Unexpected(err)
	}
	tmp, err := os.CreateTemp(dir, ".gearguard-*.tmp")
	if err != nil {
		return apperr.Unexpected(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return apperr.Unexpected(err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Unexpected(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperr.Unexpected(fmt.Errorf("replace %s: %w", s.path, err))
	}
	return nil
}

// --- teams ---

func (s *fileStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	var out []model.Team
	err := s.view(ctx, func(d *document) error {
		out = append([]model.Team{}, d.Teams...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTeams(out)
	return out, nil
}

func (s *fileStore) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var out *model.Team
	err := s.view(ctx, func(d *document) error {
		i := indexOf(d.Teams, func(t model.Team) bool { return t.ID == id })
		if i < 0 {
			return apperr.NotFound(EntityTeam, id)
		}
		t := d.Teams[i]
		out = &t
		return nil
	})
	return out, err
}

func (s *fileStore) CreateTeam(ctx context.Context, t model.Team) (*model.Team, error) {
	if t.ID == "" {
		t.ID = newFileID()
	}
	if t.Members == nil {
		t.Members = model.StringList{}
	}
	stampCreated(&t.CreatedAt, &t.UpdatedAt)
	err := s.update(ctx, func(d *document) error {
		if indexOf(d.Teams, func(o model.Team) bool { return o.Name == t.Name }) >= 0 {
			return duplicate(EntityTeam, t.ID, "name")
		}
		d.Teams = append(d.Teams, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *fileStore) UpdateTeam(ctx context.Context, id string, p model.TeamPatch) (*model.Team, error) {
	var out *model.Team
	err := s.update(ctx, func(d *document) error {
		i := indexOf(d.Teams, func(t model.Team) bool { return t.ID == id })
		if i < 0 {
			return apperr.NotFound(EntityTeam, id)
		}
		t := d.Teams[i]
		p.Apply(&t)
		if indexOf(d.Teams, func(o model.Team) bool { return o.ID != id && o.Name == t.Name }) >= 0 {
			return duplicate(EntityTeam, id, "name")
		}
		t.UpdatedAt = now()
		d.Teams[i] = t
		out = &t
		return nil
	})
	return out, err
}

func (s *fileStore) DeleteTeam(ctx context.Context, id string) error {
	return s.update(ctx, func(d *document) error {
		d.Teams = removeWhere(d.Teams, func(t model.Team) bool { return t.ID == id })
		return nil
	})
}

// --- equipment ---

func (s *fileStore) ListEquipment(ctx context.Context, f EquipmentFilter) ([]model.Equipment, error) {
	out := []model.Equipment{}
	err := s.view(ctx, func(d *document) error {
		for _, e := range d.Equipment {
			if f.matches(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEquipment(out)
	return out, nil
}

func (s *fileStore) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	var out *model.Equipment
	err := s.view(ctx, func(d *document) error {
		i := indexOf(d.Equipment, func(e model.Equipment) bool { return e.ID == id })
		if i < 0 {
			return apperr.NotFound(EntityEquipment, id)
		}
		e := d.Equipment[i]
		out = &e
		return nil
	})
	return out, err
}

func (s *fileStore) CreateEquipment(ctx context.Context, e model.Equipment) (*model.Equipment, error) {
	if e.ID == "" {
		e.ID = newFileID()
	}
	stampCreated(&e.CreatedAt, &e.UpdatedAt)
	err := s.update(ctx, func(d *document) error {
		if indexOf(d.Equipment, func(o model.Equipment) bool { return o.SerialNumber == e.SerialNumber }) >= 0 {
			return duplicate(EntityEquipment, e.ID, "serialNumber")
		}
		d.Equipment = append(d.Equipment, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *fileStore) UpdateEquipment(ctx context.Context, id string, p model.EquipmentPatch) (*model.Equipment, error) {
	var out *model.Equipment
	err := s.update(ctx, func(d *document) error {
		i := indexOf(d.Equipment, func(e model.Equipment) bool { return e.ID == id })
		if i < 0 {
			return apperr.NotFound(EntityEquipment, id)
		}
		e := d.Equipment[i]
		p.Apply(&e)
		if indexOf(d.Equipment, func(o model.Equipment) bool { return o.ID != id && o.SerialNumber == e.SerialNumber }) >= 0 {
			return duplicate(EntityEquipment, id, "serialNumber")
		}
		e.UpdatedAt = now()
		d.Equipment[i] = e
		out = &e
		return nil
	})
	return out, err
}

func (s *fileStore) DeleteEquipment(ctx context.Context, id string) error {
	return s.update(ctx, func(d *document) error {
		d.Equipment = removeWhere(d.Equipment, func(e model.Equipment) bool { return e.ID == id })
		return nil
	})
}

func (s *fileStore) CountEquipmentByTeam(ctx context.Context, teamID string) (int64, error) {
	var n int64
	err := s.view(ctx, func(d *document) error {
		for _, e := range d.Equipment {
			if e.MaintenanceTeam == teamID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// --- requests ---

func (s *fileStore) ListRequests(ctx context.Context, f RequestFilter) ([]model.Request, error) {
	out := []model.Request{}
	err := s.view(ctx, func(d *document) error {
		for _, r := range d.Requests {
			if f.matches(r) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRequests(out)
	return out, nil
}

func (s *fileStore) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	var out *model.Request
	err := s.view(ctx, func(d *document) error {
		i := indexOf(d.Requests, func(r model.Request) bool { return r.ID == id })
		if i < 0 {
			return apperr.NotFound(EntityRequest, id)
		}
		r := d.Requests[i]
		out = &r
		return nil
	})
	return out, err
}

func (s *fileStore) CreateRequest(ctx context.Context, r model.Request) (*model.Request, error) {
	if r.ID == "" {
		r.ID = newFileID()
	}
	stampCreated(&r.CreatedAt, &r.UpdatedAt)
	err := s.update(ctx, func(d *document) error {
		d.Requests = append(d.Requests, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *fileStore) UpdateRequest(ctx context.Context, id string, p model.RequestPatch) (*model.Request, error) {
	var out *model.Request
	err := s.update(ctx, func(d *document) error {
		i := indexOf(d.Requests, func(r model.Request) bool { return r.ID == id })
		if i < 0 {
			return apperr.NotFound(EntityRequest, id)
		}
		r := d.Requests[i]
		p.Apply(&r)
		r.UpdatedAt = now()
		d.Requests[i] = r
		out = &r
		return nil
	})
	return out, err
}

func (s *fileStore) DeleteRequest(ctx context.Context, id string) error {
	return s.update(ctx, func(d *document) error {
		d.Requests = removeWhere(d.Requests, func(r model.Request) bool { return r.ID == id })
		return nil
	})
}

func (s *fileStore) CountOpenRequests(ctx context.Context, equipmentID string) (int64, error) {
	var n int64
	err := s.view(ctx, func(d *document) error {
		for _, r := range d.Requests {
			if r.Equipment == equipmentID && r.Status.Open() {
				n++
			}
		}
		return nil
	})
	return n, err
}

// --- identities ---

func (s *fileStore) ListIdentities(ctx context.Context) ([]model.Identity, error) {
	var out []model.Identity
	err := s.view(ctx, func(d *document) error {
		out = append([]model.Identity{}, d.Users...)
		return nil
	})
	return out, err
}

func (s *fileStore) AddIdentities(ctx context.Context, identities []model.Identity) error {
	if len(identities) == 0 {
		return nil
	}
	return s.update(ctx, func(d *document) error {
		for _, id := range identities {
			if indexOf(d.Users, func(u model.Identity) bool { return u.Username == id.Username }) >= 0 {
				return duplicate(EntityIdentity, id.ID, "username")
			}
			if id.ID == "" {
				id.ID = newFileID()
			}
			if id.CreatedAt.IsZero() {
				id.CreatedAt = now()
			}
			d.Users = append(d.Users, id)
		}
		return nil
	})
}

func duplicate(entity, id, field string) error {
	return &apperr.ConflictError{Entity: entity, ID: id, Reason: "duplicate " + field, Count: 1}
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}
