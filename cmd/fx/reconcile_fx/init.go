package reconcile_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/services"
)

var Module = fx.Options(
	fx.Provide(services.NewReconciler),
	fx.Invoke(registerReconciler),
)

func registerReconciler(lc fx.Lifecycle, cfg config.Config, r *services.Reconciler, log *zap.Logger) {
	if !cfg.Reconcile.Enabled {
		log.Info("payment reconciliation disabled")
		return
	}
	lc.Append(fx.StartStopHook(r.Start, r.Stop))
}
