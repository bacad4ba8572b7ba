package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lemur767/assistext-backend-sub001/internal/analytics"
	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/cache"
	"github.com/lemur767/assistext-backend-sub001/internal/config"
	"github.com/lemur767/assistext-backend-sub001/internal/conversation"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/message"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"github.com/lemur767/assistext-backend-sub001/internal/observability"
	obsmetrics "github.com/lemur767/assistext-backend-sub001/internal/observability/metrics"
	obstracing "github.com/lemur767/assistext-backend-sub001/internal/observability/tracing"
	"github.com/lemur767/assistext-backend-sub001/internal/usage"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.Module,
	cache.Module,
	usage.Module,
	conversation.Module,
	message.Module,
	analytics.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Server owns route registration for the analytics API.
type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	messages      messagedomain.Service
	usage         usagedomain.Service
	conversations conversationdomain.Service
	analytics     analyticsdomain.Service
}

type ServerParams struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.Logger
	Messages      messagedomain.Service
	Usage         usagedomain.Service
	Conversations conversationdomain.Service
	Analytics     analyticsdomain.Service
}

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Engine,
		log:           p.Log.Named("server"),
		messages:      p.Messages,
		usage:         p.Usage,
		conversations: p.Conversations,
		analytics:     p.Analytics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.Use(AccountMiddleware())

	api.POST("/messages", s.IngestMessage)
	api.GET("/messages", s.ListMessages)

	api.GET("/analytics/dashboard", s.Dashboard)
	api.GET("/analytics/messages", s.MessageAnalytics)
	api.GET("/analytics/clients", s.ClientAnalytics)
	api.POST("/analytics/export", s.ExportAnalytics)

	api.GET("/usage", s.UsageHistory)

	api.GET("/conversations", s.ListConversations)
	api.GET("/conversations/top", s.TopConversations)
	api.POST("/conversations/:phone/inactive", s.MarkConversationInactive)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
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

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
