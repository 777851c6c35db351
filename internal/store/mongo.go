package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

const backendMongo = "mongo"

// Collection names shared with the fallback document.
const (
	collTeams     = "teams"
	collEquipment = "equipment"
	collRequests  = "requests"
	collUsers     = "users"
)

type mongoStore struct {
	db *mongo.Database

	indexMu sync.Mutex
	indexed bool
}

// NewMongoStore creates a document-database primary store on db.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{db: db}
}

func (s *mongoStore) Backend() string { return backendMongo }

// coll returns the named collection, creating the unique indexes on first use.
func (s *mongoStore) coll(ctx context.Context, name string) (*mongo.Collection, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if !s.indexed {
		if err := s.ensureIndexes(ctx); err != nil {
			return nil, translateMongo("schema", "", err)
		}
		s.indexed = true
	}
	return s.db.Collection(name), nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	unique := func(key string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: key, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	specs := map[string][]mongo.IndexModel{
		collTeams:     {unique("name")},
		collEquipment: {unique("serialNumber"), {Keys: bson.D{{Key: "maintenanceTeam", Value: 1}}}},
		collRequests:  {{Keys: bson.D{{Key: "equipment", Value: 1}, {Key: "status", Value: 1}}}},
		collUsers:     {unique("username")},
	}
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func newObjectID() string { return primitive.NewObjectID().Hex() }

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

// findAll decodes every document matching filter into out.
func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, opts *options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findByID[T any](ctx context.Context, c *mongo.Collection, id string) (*T, error) {
	var v T
	if err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// --- teams ---

func (s *mongoStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	c, err := s.coll(ctx, collTeams)
	if err != nil {
		return nil, err
	}
	teams, err := findAll[model.Team](ctx, c, bson.M{}, newestFirst)
	if err != nil {
		return nil, translateMongo(EntityTeam, "", err)
	}
	return teams, nil
}

func (s *mongoStore) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	c, err := s.coll(ctx, collTeams)
	if err != nil {
		return nil, err
	}
	t, err := findByID[model.Team](ctx, c, id)
	if err != nil {
		return nil, translateMongo(EntityTeam, id, err)
	}
	return t, nil
}

func (s *mongoStore) CreateTeam(ctx context.Context, t model.Team) (*model.Team, error) {
	c, err := s.coll(ctx, collTeams)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = newObjectID()
	}
	if t.Members == nil {
		t.Members = model.StringList{}
	}
	stampCreated(&t.CreatedAt, &t.UpdatedAt)
	if _, err := c.InsertOne(ctx, t); err != nil {
		return nil, translateMongo(EntityTeam, t.ID, err)
	}
	return &t, nil
}

func (s *mongoStore) UpdateTeam(ctx context.Context, id string, p model.TeamPatch) (*model.Team, error) {
	c, err := s.coll(ctx, collTeams)
	if err != nil {
		return nil, err
	}
	t, err := findByID[model.Team](ctx, c, id)
	if err != nil {
		return nil, translateMongo(EntityTeam, id, err)
	}
	p.Apply(t)
	t.UpdatedAt = now()
	if err := replaceByID(ctx, c, id, t); err != nil {
		return nil, translateMongo(EntityTeam, id, err)
	}
	return t, nil
}

func (s *mongoStore) DeleteTeam(ctx context.Context, id string) error {
	return s.deleteByID(ctx, collTeams, EntityTeam, id)
}

// --- equipment ---

func (s *mongoStore) ListEquipment(ctx context.Context, f EquipmentFilter) ([]model.Equipment, error) {
	c, err := s.coll(ctx, collEquipment)
	if err != nil {
		return nil, err
	}
	filter := bson.M{}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"serialNumber": re},
			bson.M{"assignedTo": re},
		}
	}
	items, err := findAll[model.Equipment](ctx, c, filter, newestFirst)
	if err != nil {
		return nil, translateMongo(EntityEquipment, "", err)
	}
	return items, nil
}

func (s *mongoStore) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	c, err := s.coll(ctx, collEquipment)
	if err != nil {
		return nil, err
	}
	e, err := findByID[model.Equipment](ctx, c, id)
	if err != nil {
		return nil, translateMongo(EntityEquipment, id, err)
	}
	return e, nil
}

func (s *mongoStore) CreateEquipment(ctx context.Context, e model.Equipment) (*model.Equipment, error) {
	c, err := s.coll(ctx, collEquipment)
	if err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = newObjectID()
	}
	stampCreated(&e.CreatedAt, &e.UpdatedAt)
	if _, err := c.InsertOne(ctx, e); err != nil {
		return nil, translateMongo(EntityEquipment, e.ID, err)
	}
	return &e, nil
}

func (s *mongoStore) UpdateEquipment(ctx context.Context, id string, p model.EquipmentPatch) (*model.Equipment, error) {
	c, err := s.coll(ctx, collEquipment)
	if err != nil {
		return nil, err
	}
	e, err := findByID[model.Equipment](ctx, c, id)
	if err != nil {
		return nil, translateMongo(EntityEquipment, id, err)
	}
	p.Apply(e)
	e.UpdatedAt = now()
	if err := replaceByID(ctx, c, id, e); err != nil {
		return nil, translateMongo(EntityEquipment, id, err)
	}
	return e, nil
}

func (s *mongoStore) DeleteEquipment(ctx context.Context, id string) error {
	return s.deleteByID(ctx, collEquipment, EntityEquipment, id)
}

func (s *mongoStore) CountEquipmentByTeam(ctx context.Context, teamID string) (int64, error) {
	c, err := s.coll(ctx, collEquipment)
	if err != nil {
		return 0, err
	}
	n, err := c.CountDocuments(ctx, bson.M{"maintenanceTeam": teamID})
	if err != nil {
		return 0, translateMongo(EntityEquipment, "", err)
	}
	return n, nil
}

// --- requests ---

func (s *mongoStore) ListRequests(ctx context.Context, f RequestFilter) ([]model.Request, error) {
	c, err := s.coll(ctx, collRequests)
	if err != nil {
		return nil, err
	}
	filter := bson.M{}
	if f.Equipment != "" {
		filter["equipment"] = f.Equipment
	}
	if f.Team != "" {
		filter["maintenanceTeam"] = f.Team
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	items, err := findAll[model.Request](ctx, c, filter, newestFirst)
	if err != nil {
		return nil, translateMongo(EntityRequest, "", err)
	}
	return items, nil
}

func (s *mongoStore) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	c, err := s.coll(ctx, collRequests)
	if err != nil {
		return nil, err
	}
	r, err := findByID[model.Request](ctx, c, id)
	if err != nil {
		return nil, translateMongo(EntityRequest, id, err)
	}
	return r, nil
}

func (s *mongoStore) CreateRequest(ctx context.Context, r model.Request) (*model.Request, error) {
	c, err := s.coll(ctx, collRequests)
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = newObjectID()
	}
	stampCreated(&r.CreatedAt, &r.UpdatedAt)
	if _, err := c.InsertOne(ctx, r); err != nil {
		return nil, translateMongo(EntityRequest, r.ID, err)
	}
	return &r, nil
}

func (s *mongoStore) UpdateRequest(ctx context.Context, id string, p model.RequestPatch) (*model.Request, error) {
	c, err := s.coll(ctx, collRequests)
	if err != nil {
		return nil, err
	}
	r, err := findByID[model.Request](ctx, c, id)
	if err != nil {
		return nil, translateMongo(EntityRequest, id, err)
	}
	p.Apply(r)
	r.UpdatedAt = now()
	if err := replaceByID(ctx, c, id, r); err != nil {
		return nil, translateMongo(EntityRequest, id, err)
	}
	return r, nil
}

func (s *mongoStore) DeleteRequest(ctx context.Context, id string) error {
	return s.deleteByID(ctx, collRequests, EntityRequest, id)
}

func (s *mongoStore) CountOpenRequests(ctx context.Context, equipmentID string) (int64, error) {
	c, err := s.coll(ctx, collRequests)
	if err != nil {
		return 0, err
	}
	n, err := c.CountDocuments(ctx, bson.M{
		"equipment": equipmentID,
		"status":    bson.M{"$nin": closedStatusValues()},
	})
	if err != nil {
		return 0, translateMongo(EntityRequest, "", err)
	}
	return n, nil
}

// --- identities ---

func (s *mongoStore) ListIdentities(ctx context.Context) ([]model.Identity, error) {
	c, err := s.coll(ctx, collUsers)
	if err != nil {
		return nil, err
	}
	items, err := findAll[model.Identity](ctx, c, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, translateMongo(EntityIdentity, "", err)
	}
	return items, nil
}

func (s *mongoStore) AddIdentities(ctx context.Context, identities []model.Identity) error {
	if len(identities) == 0 {
		return nil
	}
	c, err := s.coll(ctx, collUsers)
	if err != nil {
		return err
	}
	docs := make([]any, 0, len(identities))
	for _, id := range identities {
		if id.ID == "" {
			id.ID = newObjectID()
		}
		if id.CreatedAt.IsZero() {
			id.CreatedAt = now()
		}
		docs = append(docs, id)
	}
	if _, err := c.InsertMany(ctx, docs); err != nil {
		return translateMongo(EntityIdentity, "", err)
	}
	return nil
}

func replaceByID(ctx context.Context, c *mongo.Collection, id string, doc any) error {
	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *mongoStore) deleteByID(ctx context.Context, name, entity, id string) error {
	c, err := s.coll(ctx, name)
	if err != nil {
		return err
	}
	if _, err := c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return translateMongo(entity, id, err)
	}
	return nil
}

// translateMongo maps mongo driver errors onto the apperr taxonomy.
func translateMongo(entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.Known(err) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(entity, id)
	}
	if mongo.IsDuplicateKeyError(err) {
		return &apperr.ConflictError{Entity: entity, ID: id, Reason: "duplicate value for a unique field", Count: 1}
	}
	if isMongoConnectivity(err) {
		return apperr.Unreachable(backendMongo, err)
	}
	return apperr.Unexpected(fmt.Errorf("mongo %s: %w", entity, err))
}

func isMongoConnectivity(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var sel topology.ServerSelectionError
	return errors.As(err, &sel)
}
