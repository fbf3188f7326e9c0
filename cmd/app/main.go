package main

import (
	"context"
	"errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"net"
	"net/http"
	"storefront/cmd/fx/config_fx"
	"storefront/cmd/fx/controllers_fx"
	"storefront/cmd/fx/db_fx"
	"storefront/cmd/fx/logger_fx"
	"storefront/cmd/fx/memcache_fx"
	"storefront/cmd/fx/order_fx"
	"storefront/cmd/fx/payment_service_fx"
	"storefront/cmd/fx/reconcile_fx"
	"storefront/internal/api/controllers"
	"storefront/internal/config"
	"storefront/pkg/middleware"
	"time"
)

func main() {
	app := fx.New(
		config_fx.Module,
		logger_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		payment_service_fx.Module,
		order_fx.Module,
		controllers_fx.Module,
		reconcile_fx.Module,

		fx.Invoke(StartServer),
		fx.Provide(ProvideRouter),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.Info("starting HTTP server", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	cfg config.Config,
	log *zap.Logger,
	orderController *controllers.OrderController,
	khqrController *controllers.KHQRController) (*gin.Engine, error) {

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		log.Warn("JWT_SECRET not set, authenticated routes will reject every token")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	controllers.RegisterRoutes(r, orderController, khqrController, []byte(cfg.JWTSecret))

	return r, nil
}
