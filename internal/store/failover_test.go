package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/model"
)

// stubStore fails every call with err and counts the calls.
type stubStore struct {
	err   error
	calls int
}

func unreachable() *stubStore {
	return &stubStore{err: apperr.Unreachable("postgres", refused())}
}

func (s *stubStore) fail() error {
	s.calls++
	return s.err
}

func (s *stubStore) Backend() string { return "postgres" }
func (s *stubStore) ListTeams(context.Context) ([]model.Team, error) {
	return nil, s.fail()
}
func (s *stubStore) GetTeam(context.Context, string) (*model.Team, error) {
	return nil, s.fail()
}
func (s *stubStore) CreateTeam(context.Context, model.Team) (*model.Team, error) {
	return nil, s.fail()
}
func (s *stubStore) UpdateTeam(context.Context, string, model.TeamPatch) (*model.Team, error) {
	return nil, s.fail()
}
func (s *stubStore) DeleteTeam(context.Context, string) error { return s.fail() }
func (s *stubStore) ListEquipment(context.Context, EquipmentFilter) ([]model.Equipment, error) {
	return nil, s.fail()
}
func (s *stubStore) GetEquipment(context.Context, string) (*model.Equipment, error) {
	return nil, s.fail()
}
func (s *stubStore) CreateEquipment(context.Context, model.Equipment) (*model.Equipment, error) {
	return nil, s.fail()
}
func (s *stubStore) UpdateEquipment(context.Context, string, model.EquipmentPatch) (*model.Equipment, error) {
	return nil, s.fail()
}
func (s *stubStore) DeleteEquipment(context.Context, string) error { return s.fail() }
func (s *stubStore) CountEquipmentByTeam(context.Context, string) (int64, error) {
	return 0, s.fail()
}
func (s *stubStore) ListRequests(context.Context, RequestFilter) ([]model.Request, error) {
	return nil, s.fail()
}
func (s *stubStore) GetRequest(context.Context, string) (*model.Request, error) {
	return nil, s.fail()
}
func (s *stubStore) CreateRequest(context.Context, model.Request) (*model.Request, error) {
	return nil, s.fail()
}
func (s *stubStore) UpdateRequest(context.Context, string, model.RequestPatch) (*model.Request, error) {
	return nil, s.fail()
}
func (s *stubStore) DeleteRequest(context.Context, string) error { return s.fail() }
func (s *stubStore) CountOpenRequests(context.Context, string) (int64, error) {
	return 0, s.fail()
}
func (s *stubStore) ListIdentities(context.Context) ([]model.Identity, error) {
	return nil, s.fail()
}
func (s *stubStore) AddIdentities(context.Context, []model.Identity) error { return s.fail() }

func TestFailover_EveryOperationFallsBack(t *testing.T) {
	ctx := context.Background()
	primary := unreachable()
	core, logs := observer.New(zap.WarnLevel)
	f := NewFailover(primary, newTestFileStore(t), WithLogger(zap.New(core)), WithMetrics(metrics.New()))

	team, err := f.CreateTeam(ctx, newTeam("Mechanics", "Mike Ross"))
	require.NoError(t, err)
	_, err = f.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	_, err = f.ListTeams(ctx)
	require.NoError(t, err)
	_, err = f.UpdateTeam(ctx, team.ID, model.TeamPatch{Description: strPtr("heavy machinery")})
	require.NoError(t, err)

	e, err := f.CreateEquipment(ctx, newEquipment("Hydraulic Press", "HYD-5544", team.ID))
	require.NoError(t, err)
	_, err = f.GetEquipment(ctx, e.ID)
	require.NoError(t, err)
	_, err = f.ListEquipment(ctx, EquipmentFilter{Search: "press"})
	require.NoError(t, err)
	_, err = f.UpdateEquipment(ctx, e.ID, model.EquipmentPatch{Location: strPtr("Floor 2")})
	require.NoError(t, err)
	n, err := f.CountEquipmentByTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	r, err := f.CreateRequest(ctx, newRequest("Leak", e.ID, team.ID, model.StatusNew))
	require.NoError(t, err)
	_, err = f.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	_, err = f.ListRequests(ctx, RequestFilter{Equipment: e.ID})
	require.NoError(t, err)
	_, err = f.UpdateRequest(ctx, r.ID, model.RequestPatch{AssignedTo: strPtr("Mike Ross")})
	require.NoError(t, err)
	n, err = f.CountOpenRequests(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, f.AddIdentities(ctx, []model.Identity{{Username: "mechanics", Role: model.RoleTeam, PasswordHash: "h"}}))
	_, err = f.ListIdentities(ctx)
	require.NoError(t, err)

	require.NoError(t, f.DeleteRequest(ctx, r.ID))
	require.NoError(t, f.DeleteEquipment(ctx, e.ID))
	require.NoError(t, f.DeleteTeam(ctx, team.ID))

	assert.Equal(t, 19, primary.calls, "each operation tries the primary exactly once")
	assert.Equal(t, 19, logs.FilterMessage("primary store unreachable, using fallback").Len())
}

func TestFailover_DomainErrorsDoNotFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gearguard-data.json")
	primary := &stubStore{err: apperr.NotFound(EntityTeam, "t1")}
	f := NewFailover(primary, NewFileStore(path))

	_, err := f.GetTeam(context.Background(), "t1")

	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "fallback must not be touched")
}

func TestFailover_CallerCancellationDoesNotFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gearguard-data.json")
	f := NewFailover(unreachable(), NewFileStore(path))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ListTeams(ctx)

	var connErr *apperr.ConnectivityError
	assert.ErrorAs(t, err, &connErr)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFailover_BothBackendsUnreachable(t *testing.T) {
	f := NewFailover(unreachable(), unreachable())

	_, err := f.ListTeams(context.Background())

	var unexpected *apperr.UnexpectedError
	assert.ErrorAs(t, err, &unexpected)
}

func TestFailover_NoPrimary(t *testing.T) {
	f := NewFailover(nil, newTestFileStore(t))
	assert.Equal(t, "file", f.Backend())

	team, err := f.CreateTeam(context.Background(), newTeam("Mechanics"))
	require.NoError(t, err)
	assert.Len(t, team.ID, 12)
}

// slowStore blocks until its context ends, like a primary that stopped
// answering.
type slowStore struct{ stubStore }

func (s *slowStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	<-ctx.Done()
	return nil, translateSQL("postgres", EntityTeam, "", ctx.Err())
}

func TestFailover_OpTimeout(t *testing.T) {
	f := NewFailover(&slowStore{}, newTestFileStore(t), WithOpTimeout(20*time.Millisecond))

	start := time.Now()
	teams, err := f.ListTeams(context.Background())

	require.NoError(t, err)
	assert.Empty(t, teams)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFailover_RecordShapesMatchPrimary(t *testing.T) {
	ctx := context.Background()
	primary := newSQLiteStore(t)
	viaFallback := NewFailover(unreachable(), newTestFileStore(t))

	fromPrimary, err := primary.CreateTeam(ctx, newTeam("Mechanics", "Mike Ross"))
	require.NoError(t, err)
	fromFallback, err := viaFallback.CreateTeam(ctx, newTeam("Mechanics", "Mike Ross"))
	require.NoError(t, err)
	assert.Equal(t, jsonKeys(t, fromPrimary), jsonKeys(t, fromFallback))

	ePrimary, err := primary.CreateEquipment(ctx, newEquipment("Press", "HYD-1", fromPrimary.ID))
	require.NoError(t, err)
	eFallback, err := viaFallback.CreateEquipment(ctx, newEquipment("Press", "HYD-1", fromFallback.ID))
	require.NoError(t, err)
	assert.Equal(t, jsonKeys(t, ePrimary), jsonKeys(t, eFallback))

	rPrimary, err := primary.CreateRequest(ctx, newRequest("Leak", ePrimary.ID, fromPrimary.ID, model.StatusNew))
	require.NoError(t, err)
	rFallback, err := viaFallback.CreateRequest(ctx, newRequest("Leak", eFallback.ID, fromFallback.ID, model.StatusNew))
	require.NoError(t, err)
	assert.Equal(t, jsonKeys(t, rPrimary), jsonKeys(t, rFallback))
}

func jsonKeys(t *testing.T, v any) []string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
