package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/config"
	esttdomain "github.com/wagedesk/wagedesk/internal/establishment/domain"
	ledgerdomain "github.com/wagedesk/wagedesk/internal/ledger/domain"
	obslogger "github.com/wagedesk/wagedesk/internal/observability/logger"
	"github.com/wagedesk/wagedesk/internal/observability/tracing"
)

// Params holds server dependencies.
type Params struct {
	fx.In

	Lifecycle      fx.Lifecycle
	Config         config.Config
	Log            *zap.Logger
	Certs          certdomain.Service
	Ledger         ledgerdomain.Service
	Establishments esttdomain.Service
}

// Server is the HTTP surface of the application.
type Server struct {
	cfg            config.Config
	log            *zap.Logger
	certs          certdomain.Service
	ledger         ledgerdomain.Service
	establishments esttdomain.Service
}

// New constructs the server and hooks it into the application lifecycle.
func New(p Params) *Server {
	s := &Server{
		cfg:            p.Config,
		log:            p.Log.Named("http.server"),
		certs:          p.Certs,
		ledger:         p.Ledger,
		establishments: p.Establishments,
	}

	engine := s.buildEngine()
	srv := &http.Server{
		Addr:              p.Config.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		obslogger.GinMiddleware(s.log, obslogger.MiddlewareConfig{
			Debug:           s.cfg.Environment != "production",
			ErrorClassifier: ClassifyError,
		}),
		tracing.GinMiddleware(),
		ErrorHandlingMiddleware(),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.AppVersion})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1", OrgMiddleware(s.cfg))
	{
		v1.POST("/recoveries", s.createRecovery)
		v1.GET("/recoveries", s.listRecoveries)
		v1.POST("/recoveries/preview", s.previewAllocation)
		v1.POST("/recoveries/import", s.importRecoveries)
		v1.PATCH("/recoveries/:id", s.updateRecovery)
		v1.DELETE("/recoveries/:id", s.deleteRecovery)

		v1.GET("/certificates", s.listCertificates)
		v1.GET("/certificates/trash", s.listTrash)
		v1.GET("/certificates/:number", s.getCertificate)
		v1.POST("/certificates/import", s.importCertificates)
		v1.PATCH("/certificates/shared/:code", s.updateSharedFields)
		v1.DELETE("/certificates/:id", s.softDeleteCertificate)
		v1.POST("/certificates/:id/restore", s.restoreCertificate)
		v1.DELETE("/certificates/:id/purge", s.purgeCertificate)

		v1.GET("/establishments", s.listEstablishments)
		v1.GET("/establishments/:code", s.getEstablishment)
		v1.POST("/establishments/import", s.importEstablishments)
		v1.POST("/establishments/:code/sync", s.syncEstablishment)
	}
	return engine
}
