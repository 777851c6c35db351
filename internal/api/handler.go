package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/notification"
	"gearguard-backend/internal/service"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *service.Service
	auth    *auth.Authenticator
	subs    notification.Subscriptions
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler. subs and webpushOptions may be nil
// when push notifications are not configured.
func NewHandler(svc *service.Service, authn *auth.Authenticator, subs notification.Subscriptions, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:     svc,
		auth:    authn,
		subs:    subs,
		webpush: webpushOptions,
		log:     log.Named("api"),
	}
}
