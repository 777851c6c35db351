package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gearguard-backend/config"
	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/mw"
	"gearguard-backend/internal/service"
)

// NewRouter creates and configures the gin engine.
func NewRouter(cfg config.Config, h *Handler, m *metrics.Metrics, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(log))

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterRules(v); err != nil {
			log.Error("registering binding rules failed", zap.Error(err))
		}
	}

	if len(cfg.Server.AllowedOrigins) == 0 {
		r.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.Server.AllowedOrigins
		cc.AllowMethods = append(cc.AllowMethods, http.MethodPatch)
		cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
		r.Use(cors.New(cc))
	}

	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	responses := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	identify := mw.Identify(h.auth, cfg.Auth.RequireIdentity, log)
	admin := mw.RequireAdmin()
	caching := responses.Cache()

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter))
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", h.Me)
		authGroup.POST("/logout", h.Logout)

		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)

		data := api.Group("")
		data.Use(identify, responses.Invalidate())

		data.GET("/teams", caching, h.ListTeams)
		data.POST("/teams", admin, h.CreateTeam)
		data.GET("/teams/:id", caching, h.GetTeam)
		data.PATCH("/teams/:id", admin, h.UpdateTeam)
		data.DELETE("/teams/:id", admin, h.DeleteTeam)
		data.POST("/teams/:id/members", h.AddTeamMember)
		data.DELETE("/teams/:id/members/:member", h.RemoveTeamMember)

		data.GET("/equipment", caching, h.ListEquipment)
		data.POST("/equipment", h.CreateEquipment)
		data.GET("/equipment/:id", caching, h.GetEquipment)
		data.PATCH("/equipment/:id", h.UpdateEquipment)
		data.DELETE("/equipment/:id", h.DeleteEquipment)

		data.GET("/requests", caching, h.ListRequests)
		data.POST("/requests", h.CreateRequest)
		data.GET("/requests/:id", caching, h.GetRequest)
		data.PATCH("/requests/:id", h.UpdateRequest)
		data.DELETE("/requests/:id", h.DeleteRequest)
	}

	return r
}
