package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

// Subscriptions persists browser push subscriptions.
type Subscriptions interface {
	Get(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	Put(ctx context.Context, sub *model.PushSubscription) error
	Delete(ctx context.Context, endpoint string) error
	ForTeam(ctx context.Context, teamID string) ([]model.PushSubscription, error)
}

type gormSubscriptions struct {
	db *gorm.DB

	schemaMu sync.Mutex
	migrated bool
}

// NewGormSubscriptions keeps subscriptions in the relational primary.
func NewGormSubscriptions(db *gorm.DB) Subscriptions {
	return &gormSubscriptions{db: db}
}

func (s *gormSubscriptions) conn(ctx context.Context) (*gorm.DB, error) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	db := s.db.WithContext(ctx)
	if !s.migrated {
		if err := db.AutoMigrate(&model.PushSubscription{}); err != nil {
			return nil, fmt.Errorf("migrate push subscriptions: %w", err)
		}
		s.migrated = true
	}
	return db, nil
}

func (s *gormSubscriptions) Get(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var sub model.PushSubscription
	if err := db.First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("subscription", endpoint)
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// Put creates the subscription or replaces its keys and teams.
func (s *gormSubscriptions) Put(ctx context.Context, sub *model.PushSubscription) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if sub.Teams == nil {
		sub.Teams = model.StringList{}
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "teams"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("put subscription: %w", err)
	}
	return nil
}

func (s *gormSubscriptions) Delete(ctx context.Context, endpoint string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := db.Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ForTeam returns the subscriptions following teamID. The LIKE prefilter
// runs on the JSON text of the teams column; Contains makes it exact.
func (s *gormSubscriptions) ForTeam(ctx context.Context, teamID string) ([]model.PushSubscription, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []model.PushSubscription
	if err := db.Where("teams LIKE ?", "%\""+teamID+"\"%").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions for team %s: %w", teamID, err)
	}
	subs := candidates[:0]
	for _, sub := range candidates {
		if sub.Teams.Contains(teamID) {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}
