package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neilfarmer/mopenstack/internal/config"
	keystonedomain "github.com/neilfarmer/mopenstack/internal/keystone/domain"
	novadomain "github.com/neilfarmer/mopenstack/internal/nova/domain"
	"github.com/neilfarmer/mopenstack/internal/observability"
	obslogger "github.com/neilfarmer/mopenstack/internal/observability/logger"
	obsmetrics "github.com/neilfarmer/mopenstack/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// portFallbackRange is how many successive ports are tried when the
// configured one is already bound.
const portFallbackRange = 100

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
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

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	identitySvc keystonedomain.Service
	computeSvc  novadomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	IdentitySvc keystonedomain.Service
	ComputeSvc  novadomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		identitySvc: p.IdentitySvc,
		computeSvc:  p.ComputeSvc,
	}

	s.registerRootRoutes()
	s.registerKeystoneRoutes()
	s.registerNovaRoutes()
	s.registerGlanceRoutes()

	return s
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{Handler: r}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := listenWithFallback(cfg.ListenAddr, log)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))

			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
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

// listenWithFallback binds addr, walking forward through successive ports
// when the requested one is taken. Lets several instances share a host
// without coordination.
func listenWithFallback(addr string, log *zap.Logger) (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}

	port, err := net.LookupPort("tcp", portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}

	for offset := 0; offset <= portFallbackRange; offset++ {
		candidate := net.JoinHostPort(host, fmt.Sprintf("%d", port+offset))
		ln, err := net.Listen("tcp", candidate)
		if err == nil {
			if offset > 0 {
				log.Warn("configured port busy, moved to fallback",
					zap.String("configured", addr),
					zap.String("bound", candidate),
				)
			}
			return ln, nil
		}
	}
	return nil, fmt.Errorf("no free port in %s..%d", addr, port+portFallbackRange)
}

// requestBaseURL rebuilds the externally visible base URL from the inbound
// request so catalog entries point back at whatever address the client used.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
