package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gearguard-backend/config"
	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/model"
	"gearguard-backend/internal/notification"
	"gearguard-backend/internal/service"
	"gearguard-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	svc    *service.Service
}

type envOptions struct {
	wrap     func(store.Store) store.Store
	subs     notification.Subscriptions
	required bool
	burst    int
}

func testConfig(required bool) config.Config {
	var cfg config.Config
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 60
	cfg.Auth.RequireIdentity = required
	return cfg
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	var st store.Store = store.NewFileStore(filepath.Join(t.TempDir(), "gearguard-data.json"))
	if opts.wrap != nil {
		st = opts.wrap(st)
	}
	svc := service.New(st, service.WithDirectory(service.DirectoryConfig{
		AdminPassword: "admin123",
		TeamPassword:  "pass",
		BcryptCost:    bcrypt.MinCost,
	}))
	authn := auth.New(svc, "test-secret", time.Hour)
	var push *webpush.Options
	if opts.subs != nil {
		push = &webpush.Options{VAPIDPublicKey: "test-public-key"}
	}
	h := NewHandler(svc, authn, opts.subs, push, zap.NewNop())
	cfg := testConfig(opts.required)
	if opts.burst > 0 {
		cfg.Server.RateLimitPerSec = 0.001
		cfg.Server.RateLimitBurst = opts.burst
	}
	return &testEnv{
		router: NewRouter(cfg, h, metrics.New(), zap.NewNop()),
		svc:    svc,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func equipmentBody(name, serial, teamID string) gin.H {
	return gin.H{
		"name":            name,
		"serialNumber":    serial,
		"department":      "Production",
		"location":        "Factory Floor 1",
		"category":        "Heavy Machinery",
		"purchaseDate":    "2023-01-15",
		"maintenanceTeam": teamID,
	}
}

// seedFleet creates a team, one equipment item and returns the admin token.
func (e *testEnv) seedFleet(t *testing.T) (admin string, team model.Team, eq model.Equipment) {
	t.Helper()
	admin = e.login(t, "admin", "admin123")

	w := e.do(t, http.MethodPost, "/api/teams", admin, gin.H{"name": "Mechanics", "members": []string{"Mike Ross"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	team = decode[model.Team](t, w)

	w = e.do(t, http.MethodPost, "/api/equipment", admin, equipmentBody("Hydraulic Press", "HP-2024-001", team.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	eq = decode[model.Equipment](t, w)
	return admin, team, eq
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := env.login(t, "admin", "admin123")

	w = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User map[string]any `json:"user"`
	}](t, w)
	assert.Equal(t, "admin", me.User["username"])
	assert.Equal(t, "admin", me.User["role"])
	assert.NotContains(t, me.User, "passwordHash")

	w = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "logout without a session still succeeds")
}

func TestTeamRoutes_AdminOnly(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin, team, _ := env.seedFleet(t)
	mechanics := env.login(t, "mechanics", "pass")

	testCases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"anonymous create", http.MethodPost, "/api/teams", "", gin.H{"name": "IT Support"}, http.StatusUnauthorized},
		{"team create", http.MethodPost, "/api/teams", mechanics, gin.H{"name": "IT Support"}, http.StatusForbidden},
		{"team rename", http.MethodPatch, "/api/teams/" + team.ID, mechanics, gin.H{"name": "Fixers"}, http.StatusForbidden},
		{"anonymous list", http.MethodGet, "/api/teams", "", nil, http.StatusOK},
		{"team adds member", http.MethodPost, "/api/teams/" + team.ID + "/members", mechanics, gin.H{"name": "Rachel Zane"}, http.StatusOK},
		{"admin rename", http.MethodPatch, "/api/teams/" + team.ID, admin, gin.H{"description": "Heavy machinery"}, http.StatusOK},
		{"bad token", http.MethodGet, "/api/teams", "forged", nil, http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	env := newTestEnv(t, envOptions{required: true})

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/equipment", "", nil).Code)
	token := env.login(t, "admin", "admin123")
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/equipment", token, nil).Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin, team, eq := env.seedFleet(t)

	t.Run("validation", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/equipment", admin, gin.H{"name": " "})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}](t, w)
		assert.Contains(t, body.Fields, "name")
		assert.Contains(t, body.Fields, "serialNumber")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/requests/does-not-exist", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("duplicate serial", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/equipment", admin, equipmentBody("Other Press", "HP-2024-001", team.ID))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("team delete guard", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/teams/"+team.ID, admin, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		body := decode[struct {
			Count int64 `json:"count"`
		}](t, w)
		assert.EqualValues(t, 1, body.Count)
	})

	t.Run("equipment delete guard", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/requests", admin, gin.H{"subject": "Leaking Oil", "equipment": eq.ID, "type": "Corrective"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, http.MethodDelete, "/api/equipment/"+eq.ID, admin, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		body := decode[struct {
			Count int64 `json:"count"`
		}](t, w)
		assert.EqualValues(t, 1, body.Count)
	})
}

func TestRequestLifecycle(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin, team, eq := env.seedFleet(t)

	w := env.do(t, http.MethodPost, "/api/requests", admin, gin.H{
		"subject":         "Leaking Oil",
		"equipment":       eq.ID,
		"type":            "Corrective",
		"maintenanceTeam": "someone-else",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	req := decode[model.Request](t, w)
	assert.Equal(t, team.ID, req.MaintenanceTeam, "team comes from the equipment")
	assert.Equal(t, model.StatusNew, req.Status)
	assert.Equal(t, model.PriorityMedium, req.Priority)

	w = env.do(t, http.MethodGet, "/api/requests?team="+team.ID+"&status=New", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Request](t, w), 1)

	w = env.do(t, http.MethodPatch, "/api/requests/"+req.ID, admin, gin.H{"status": "Repaired"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	repaired := decode[model.Request](t, w)
	assert.Equal(t, model.StatusRepaired, repaired.Status)
	assert.Nil(t, repaired.CompletionDate)

	w = env.do(t, http.MethodPatch, "/api/requests/"+req.ID, admin, gin.H{"status": "Scrap"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/equipment/"+eq.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.EquipmentScrap, decode[model.Equipment](t, w).Status)

	w = env.do(t, http.MethodDelete, "/api/requests/"+req.ID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Request deleted"}`, w.Body.String())
}

func TestListsReflectMutations(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin, _, _ := env.seedFleet(t)

	w := env.do(t, http.MethodGet, "/api/teams", "", nil)
	require.Len(t, decode[[]model.Team](t, w), 1)

	w = env.do(t, http.MethodPost, "/api/teams", admin, gin.H{"name": "IT Support"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/teams", "", nil)
	assert.Len(t, decode[[]model.Team](t, w), 2)

	w = env.do(t, http.MethodGet, "/api/equipment?search=hp-2024", "", nil)
	assert.Len(t, decode[[]model.Equipment](t, w), 1)
	w = env.do(t, http.MethodGet, "/api/equipment?department=Logistics", "", nil)
	assert.Empty(t, decode[[]model.Equipment](t, w))
}

type brokenEquipmentWrites struct {
	store.Store
}

func (b brokenEquipmentWrites) UpdateEquipment(context.Context, string, model.EquipmentPatch) (*model.Equipment, error) {
	return nil, apperr.Unreachable("file", context.DeadlineExceeded)
}

func TestScrapCascadeFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{wrap: func(s store.Store) store.Store { return brokenEquipmentWrites{s} }})
	admin, _, eq := env.seedFleet(t)

	w := env.do(t, http.MethodPost, "/api/requests", admin, gin.H{"subject": "Cracked frame", "equipment": eq.ID, "type": "Corrective"})
	require.Equal(t, http.StatusCreated, w.Code)
	req := decode[model.Request](t, w)

	w = env.do(t, http.MethodPatch, "/api/requests/"+req.ID, admin, gin.H{"status": "Scrap"})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	body := decode[struct {
		Request model.Request `json:"request"`
		Error   string        `json:"error"`
	}](t, w)
	assert.Equal(t, model.StatusScrap, body.Request.Status)
	assert.Contains(t, body.Error, eq.ID)
}

func TestAssignmentLock(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin, _, eq := env.seedFleet(t)
	mechanics := env.login(t, "mechanics", "pass")

	w := env.do(t, http.MethodPost, "/api/requests", admin, gin.H{"subject": "Belt", "equipment": eq.ID, "type": "Preventive"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[model.Request](t, w).ID

	steps := []struct {
		name     string
		token    string
		assignee string
		want     int
	}{
		{"team claims unassigned", mechanics, "Mike Ross", http.StatusOK},
		{"team cannot take over", mechanics, "Harvey Specter", http.StatusForbidden},
		{"admin reassigns", admin, "Harvey Specter", http.StatusOK},
	}
	for _, step := range steps {
		w := env.do(t, http.MethodPatch, "/api/requests/"+id, step.token, gin.H{"assignedTo": step.assignee})
		assert.Equal(t, step.want, w.Code, step.name)
	}

	w = env.do(t, http.MethodPatch, "/api/requests/"+id, mechanics, gin.H{"status": "In Progress"})
	assert.Equal(t, http.StatusOK, w.Code, "status changes are not locked")
}

func newSQLiteSubscriptions(t *testing.T) notification.Subscriptions {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return notification.NewGormSubscriptions(gdb)
}

func TestPutSubscription_BadRequest(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptions_Disabled(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/vapid_public_key", "", nil).Code)
	w := env.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{"endpoint": "https://push.example/1", "p256dh": "k", "auth": "a"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t, envOptions{subs: newSQLiteSubscriptions(t)})
	_, team, _ := env.seedFleet(t)
	endpoint := "https://push.example/send/abc%2Bdef"

	w := env.do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{"endpoint": endpoint, "p256dh": "k", "auth": "a", "teams": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{"endpoint": endpoint, "p256dh": "k", "auth": "a", "teams": []string{" "}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "blank team ids fail binding")

	w = env.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{"endpoint": endpoint, "p256dh": "k", "auth": "a", "teams": []string{team.ID, team.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"teams":["`+team.ID+`"]}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/api/subscriptions", "", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRateLimitPerClient(t *testing.T) {
	env := newTestEnv(t, envOptions{burst: 2})
	from := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
		req.RemoteAddr = addr
		env.router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2:5000"), "each client has its own bucket")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health checks are not limited")
}

func TestExpandReferences(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin, team, eq := env.seedFleet(t)

	w := env.do(t, http.MethodPost, "/api/requests", admin, gin.H{"subject": "Leaking Oil", "equipment": eq.ID, "type": "Corrective"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	req := decode[model.Request](t, w)

	w = env.do(t, http.MethodGet, "/api/requests", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	plain := decode[[]map[string]any](t, w)
	require.Len(t, plain, 1)
	assert.Equal(t, eq.ID, plain[0]["equipment"])
	assert.Equal(t, team.ID, plain[0]["maintenanceTeam"])

	w = env.do(t, http.MethodGet, "/api/requests?expand=team,equipment", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	expanded := decode[[]struct {
		ID              string          `json:"id"`
		Equipment       model.Equipment `json:"equipment"`
		MaintenanceTeam model.Team      `json:"maintenanceTeam"`
	}](t, w)
	require.Len(t, expanded, 1)
	assert.Equal(t, req.ID, expanded[0].ID)
	assert.Equal(t, "HP-2024-001", expanded[0].Equipment.SerialNumber)
	assert.Equal(t, "Mechanics", expanded[0].MaintenanceTeam.Name)

	w = env.do(t, http.MethodGet, "/api/requests/"+req.ID+"?expand=equipment", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	one := decode[map[string]any](t, w)
	assert.Equal(t, "Hydraulic Press", one["equipment"].(map[string]any)["name"])
	assert.Equal(t, team.ID, one["maintenanceTeam"])

	w = env.do(t, http.MethodGet, "/api/equipment/"+eq.ID+"?expand=team", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	item := decode[map[string]any](t, w)
	assert.Equal(t, "Mechanics", item["maintenanceTeam"].(map[string]any)["name"])

	w = env.do(t, http.MethodGet, "/api/equipment?expand=team", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]map[string]any](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, team.ID, items[0]["maintenanceTeam"].(map[string]any)["id"])

	w = env.do(t, http.MethodGet, "/api/equipment?expand=equipment", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w)["fields"], "expand")
}
