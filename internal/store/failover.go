package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/model"
)

// Failover routes every call to the primary store and retries it once on the
// fallback when the primary is unreachable. Domain errors from the primary
// are returned as they are.
type Failover struct {
	primary   Store
	fallback  Store
	opTimeout time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// FailoverOption configures a Failover.
type FailoverOption func(*Failover)

// WithOpTimeout bounds each primary call. Zero leaves only the caller's
// deadline.
func WithOpTimeout(d time.Duration) FailoverOption {
	return func(f *Failover) { f.opTimeout = d }
}

// WithLogger sets the logger used for failover warnings.
func WithLogger(l *zap.Logger) FailoverOption {
	return func(f *Failover) { f.log = l }
}

// WithMetrics records failovers and per-backend latencies.
func WithMetrics(m *metrics.Metrics) FailoverOption {
	return func(f *Failover) { f.metrics = m }
}

// NewFailover creates the dispatcher. primary may be nil when no primary is
// configured; every call then goes to the fallback.
func NewFailover(primary, fallback Store, opts ...FailoverOption) *Failover {
	f := &Failover{primary: primary, fallback: fallback, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Backend names the primary, or the fallback when there is none.
func (f *Failover) Backend() string {
	if f.primary == nil {
		return f.fallback.Backend()
	}
	return f.primary.Backend() + "+" + f.fallback.Backend()
}

func run[T any](ctx context.Context, f *Failover, op string, call func(context.Context, Store) (T, error)) (T, error) {
	if f.primary == nil {
		return timed(ctx, f, f.fallback, op, call)
	}

	pctx := ctx
	if f.opTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, f.opTimeout)
		defer cancel()
	}
	v, err := timed(pctx, f, f.primary, op, call)
	if apperr.Classify(err) != apperr.ClassEnvironment {
		return v, err
	}
	if ctx.Err() != nil {
		return v, err
	}

	f.log.Warn("primary store unreachable, using fallback",
		zap.String("operation", op),
		zap.String("primary", f.primary.Backend()),
		zap.String("fallback", f.fallback.Backend()),
		zap.Error(err),
	)
	f.metrics.Failover(op)

	fv, ferr := timed(ctx, f, f.fallback, op, call)
	if ferr != nil && apperr.Classify(ferr) == apperr.ClassEnvironment {
		return fv, &apperr.UnexpectedError{Err: fmt.Errorf("primary: %w; fallback: %w", err, ferr)}
	}
	return fv, ferr
}

func timed[T any](ctx context.Context, f *Failover, s Store, op string, call func(context.Context, Store) (T, error)) (T, error) {
	start := time.Now()
	v, err := call(ctx, s)
	f.metrics.ObserveStore(s.Backend(), op, err == nil, time.Since(start))
	return v, err
}

// runErr adapts calls that return only an error.
func runErr(ctx context.Context, f *Failover, op string, call func(context.Context, Store) error) error {
	_, err := run(ctx, f, op, func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, call(ctx, s)
	})
	return err
}

func (f *Failover) ListTeams(ctx context.Context) ([]model.Team, error) {
	return run(ctx, f, "ListTeams", func(ctx context.Context, s Store) ([]model.Team, error) {
		return s.ListTeams(ctx)
	})
}

func (f *Failover) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	return run(ctx, f, "GetTeam", func(ctx context.Context, s Store) (*model.Team, error) {
		return s.GetTeam(ctx, id)
	})
}

func (f *Failover) CreateTeam(ctx context.Context, t model.Team) (*model.Team, error) {
	return run(ctx, f, "CreateTeam", func(ctx context.Context, s Store) (*model.Team, error) {
		return s.CreateTeam(ctx, t)
	})
}

func (f *Failover) UpdateTeam(ctx context.Context, id string, p model.TeamPatch) (*model.Team, error) {
	return run(ctx, f, "UpdateTeam", func(ctx context.Context, s Store) (*model.Team, error) {
		return s.UpdateTeam(ctx, id, p)
	})
}

func (f *Failover) DeleteTeam(ctx context.Context, id string) error {
	return runErr(ctx, f, "DeleteTeam", func(ctx context.Context, s Store) error {
		return s.DeleteTeam(ctx, id)
	})
}

func (f *Failover) ListEquipment(ctx context.Context, flt EquipmentFilter) ([]model.Equipment, error) {
	return run(ctx, f, "ListEquipment", func(ctx context.Context, s Store) ([]model.Equipment, error) {
		return s.ListEquipment(ctx, flt)
	})
}

func (f *Failover) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	return run(ctx, f, "GetEquipment", func(ctx context.Context, s Store) (*model.Equipment, error) {
		return s.GetEquipment(ctx, id)
	})
}

func (f *Failover) CreateEquipment(ctx context.Context, e model.Equipment) (*model.Equipment, error) {
	return run(ctx, f, "CreateEquipment", func(ctx context.Context, s Store) (*model.Equipment, error) {
		return s.CreateEquipment(ctx, e)
	})
}

func (f *Failover) UpdateEquipment(ctx context.Context, id string, p model.EquipmentPatch) (*model.Equipment, error) {
	return run(ctx, f, "UpdateEquipment", func(ctx context.Context, s Store) (*model.Equipment, error) {
		return s.UpdateEquipment(ctx, id, p)
	})
}

func (f *Failover) DeleteEquipment(ctx context.Context, id string) error {
	return runErr(ctx, f, "DeleteEquipment", func(ctx context.Context, s Store) error {
		return s.DeleteEquipment(ctx, id)
	})
}

func (f *Failover) CountEquipmentByTeam(ctx context.Context, teamID string) (int64, error) {
	return run(ctx, f, "CountEquipmentByTeam", func(ctx context.Context, s Store) (int64, error) {
		return s.CountEquipmentByTeam(ctx, teamID)
	})
}

func (f *Failover) ListRequests(ctx context.Context, flt RequestFilter) ([]model.Request, error) {
	return run(ctx, f, "ListRequests", func(ctx context.Context, s Store) ([]model.Request, error) {
		return s.ListRequests(ctx, flt)
	})
}

func (f *Failover) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	return run(ctx, f, "GetRequest", func(ctx context.Context, s Store) (*model.Request, error) {
		return s.GetRequest(ctx, id)
	})
}

func (f *Failover) CreateRequest(ctx context.Context, r model.Request) (*model.Request, error) {
	return run(ctx, f, "CreateRequest", func(ctx context.Context, s Store) (*model.Request, error) {
		return s.CreateRequest(ctx, r)
	})
}

func (f *Failover) UpdateRequest(ctx context.Context, id string, p model.RequestPatch) (*model.Request, error) {
	return run(ctx, f, "UpdateRequest", func(ctx context.Context, s Store) (*model.Request, error) {
		return s.UpdateRequest(ctx, id, p)
	})
}

func (f *Failover) DeleteRequest(ctx context.Context, id string) error {
	return runErr(ctx, f, "DeleteRequest", func(ctx context.Context, s Store) error {
		return s.DeleteRequest(ctx, id)
	})
}

func (f *Failover) CountOpenRequests(ctx context.Context, equipmentID string) (int64, error) {
	return run(ctx, f, "CountOpenRequests", func(ctx context.Context, s Store) (int64, error) {
		return s.CountOpenRequests(ctx, equipmentID)
	})
}

func (f *Failover) ListIdentities(ctx context.Context) ([]model.Identity, error) {
	return run(ctx, f, "ListIdentities", func(ctx context.Context, s Store) ([]model.Identity, error) {
		return s.ListIdentities(ctx)
	})
}

func (f *Failover) AddIdentities(ctx context.Context, identities []model.Identity) error {
	return runErr(ctx, f, "AddIdentities", func(ctx context.Context, s Store) error {
		return s.AddIdentities(ctx, identities)
	})
}
