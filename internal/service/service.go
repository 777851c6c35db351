// Package service holds the maintenance domain rules that sit above the
// entity store.
package service

import (
	"go.uber.org/zap"

	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/model"
	"gearguard-backend/internal/store"
)

// Notifier is told about request activity. Implementations must not block.
type Notifier interface {
	RequestCreated(r model.Request)
	RequestStatusChanged(r model.Request, from model.RequestStatus)
}

type nopNotifier struct{}

func (nopNotifier) RequestCreated(model.Request)                            {}
func (nopNotifier) RequestStatusChanged(model.Request, model.RequestStatus) {}

// Service implements the team, equipment and request operations.
type Service struct {
	store    store.Store
	validate *Validator
	log      *zap.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	dir      DirectoryConfig
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics records cascade failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier receives request events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithDirectory sets the passwords and hash cost of generated identities.
func WithDirectory(cfg DirectoryConfig) Option {
	return func(s *Service) { s.dir = cfg }
}

// WithValidator shares a validator instance, typically the one registered
// with the HTTP binding engine.
func WithValidator(v *Validator) Option {
	return func(s *Service) { s.validate = v }
}

// New creates a Service on top of st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		log:      zap.NewNop(),
		notifier: nopNotifier{},
		dir:      DefaultDirectoryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = NewValidator()
	}
	return s
}
