package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tradesmap/internal/account"
	accountservice "github.com/smallbiznis/tradesmap/internal/account/service"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	"github.com/smallbiznis/tradesmap/internal/company"
	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/smallbiznis/tradesmap/internal/geocoding"
	"github.com/smallbiznis/tradesmap/internal/identity"
	"github.com/smallbiznis/tradesmap/internal/navigation"
	"github.com/smallbiznis/tradesmap/internal/observability"
	obslogger "github.com/smallbiznis/tradesmap/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tradesmap/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tradesmap/internal/observability/tracing"
	"github.com/smallbiznis/tradesmap/internal/profile"
	"github.com/smallbiznis/tradesmap/internal/ratelimit"
	"github.com/smallbiznis/tradesmap/internal/redisclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	redisclient.Module,
	ratelimit.Module,
	navigation.Module,
	identity.Module,
	geocoding.Module,
	profile.Module,
	company.Module,
	account.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	accounts *accountservice.Service
	sessions *session.Manager
	cookies  *cookieJar
	limiter  *ratelimit.AccountLimiter
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Accounts *accountservice.Service
	Sessions *session.Manager
	Limiter  *ratelimit.AccountLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		accounts: p.Accounts,
		sessions: p.Sessions,
		cookies:  newCookieJar(p.Cfg),
		limiter:  p.Limiter,
	}

	s.registerAuthRoutes()
	s.registerProfileRoutes()
	s.registerOpsRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth", s.SessionRequired())

	auth.POST("/sign-in", s.SignInRateLimit(), s.SignIn)
	auth.POST("/providers/:provider", s.SignInWithProvider)
	auth.GET("/callback/:provider", s.ProviderCallback)
	auth.POST("/sign-out", s.SignOut)

	s.engine.POST("/accounts", s.SessionRequired(), s.SignInRateLimit(), s.CreateAccount)
	s.engine.GET("/session", s.SessionRequired(), s.GetSession)
}

func (s *Server) registerProfileRoutes() {
	profile := s.engine.Group("/profile", s.SessionRequired())

	profile.GET("", s.GetProfile)
	profile.PUT("", s.UpdateProfile)
	profile.GET("/stream", s.StreamProfile)
}

// Reconciliation of orphaned identities stays off the public surface in production.
func (s *Server) registerOpsRoutes() {
	if s.cfg.Environment == "production" {
		return
	}
	ops := s.engine.Group("/ops")
	ops.GET("/orphans", s.ListOrphans)
	ops.POST("/orphans/:uid/reconcile", s.ReconcileOrphan)
}
