package order_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"storefront/internal/config"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

var Module = fx.Provide(
	provideOrderRepo, provideDiscountRepo, provideOrderService)

func provideOrderRepo(db *gorm.DB) repositories.OrderRepositoryInterface {
	return repositories.NewOrderRepository(db)
}

func provideDiscountRepo(db *gorm.DB) repositories.DiscountRepositoryInterface {
	return repositories.NewDiscountRepository(db)
}

func provideOrderService(
	repo repositories.OrderRepositoryInterface,
	discounts repositories.DiscountRepositoryInterface,
	qr services.QRServiceInterface,
	checker services.PaymentStatusServiceInterface,
	events services.PaymentEventPublisher,
	cfg config.Config,
	log *zap.Logger) services.OrderServiceInterface {

	return services.NewOrderService(repo, discounts, qr, checker, events, cfg, log)
}
