package payment_service_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/khqr"
	"storefront/internal/services"
	"storefront/pkg/bakong"
	mem "storefront/pkg/memcache"
)

var Module = fx.Provide(
	provideGateway, provideQRService, providePaymentStatusService, provideKHQRService,
)

func provideGateway(cfg config.Config) services.GatewayClient {
	return bakong.NewClient(bakong.Config{
		Token:        cfg.Bakong.APIToken,
		TestMode:     cfg.Bakong.TestMode,
		LiveURL:      cfg.Bakong.LiveURL,
		SandboxURL:   cfg.Bakong.SandboxURL,
		GeneratePath: cfg.Bakong.GeneratePath,
		Timeout:      cfg.Bakong.Timeout,
	})
}

func provideQRService(cfg config.Config, gateway services.GatewayClient, cache *mem.FingerprintCache, log *zap.Logger) services.QRServiceInterface {
	return services.NewQRService(cfg.Bakong, gateway, khqr.NewEncoder(), cache, log)
}

func providePaymentStatusService(cfg config.Config, gateway services.GatewayClient, cache *mem.FingerprintCache, log *zap.Logger) services.PaymentStatusServiceInterface {
	return services.NewPaymentStatusService(cfg, gateway, cache, log)
}

func provideKHQRService(qr services.QRServiceInterface, checker services.PaymentStatusServiceInterface, log *zap.Logger) services.KHQRServiceInterface {
	return services.NewKHQRService(qr, checker, log)
}
