package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/rondo/internal/config"
	"github.com/smallbiznis/rondo/internal/identity"
	identityservice "github.com/smallbiznis/rondo/internal/identity/service"
	"github.com/smallbiznis/rondo/internal/observability"
	obsmiddleware "github.com/smallbiznis/rondo/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/rondo/internal/observability/metrics"
	obstracing "github.com/smallbiznis/rondo/internal/observability/tracing"
	"github.com/smallbiznis/rondo/internal/ratelimit"
	"github.com/smallbiznis/rondo/internal/room"
	roomdomain "github.com/smallbiznis/rondo/internal/room/domain"
	"github.com/smallbiznis/rondo/internal/rotation"
	rotationdomain "github.com/smallbiznis/rondo/internal/rotation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	room.Module,
	rotation.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	identitySvc identityservice.Service
	roomSvc     roomdomain.Service
	rotationSvc rotationdomain.Service
	joinLimiter *ratelimit.JoinLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	IdentitySvc identityservice.Service
	RoomSvc     roomdomain.Service
	RotationSvc rotationdomain.Service
	JoinLimiter *ratelimit.JoinLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		identitySvc: p.IdentitySvc,
		roomSvc:     p.RoomSvc,
		rotationSvc: p.RotationSvc,
		joinLimiter: p.JoinLimiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.IdentityRequired())

	api.GET("/me", s.Me)

	api.GET("/rooms", s.ListRooms)
	api.POST("/rooms", s.CreateRoom)
	api.POST("/rooms/join", s.JoinRoom)
	api.GET("/rooms/:id", s.GetRoom)
	api.POST("/rooms/:id/advance", s.AdvanceTurn)
	api.GET("/rooms/:id/turns", s.ListTurns)
}
