package services

import (
	"context"
	"fmt"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/models/response_models"
	"storefront/internal/repositories"
	"storefront/pkg/utils"
	"time"
)

const (
	DefaultReconcileBatch = 50
	reconcileJobName      = "reconcile-pending-qr-payments"
)

// Reconciler polls the gateway for pending QR payments in the background,
// through the same guarded path as client polling.
type Reconciler struct {
	repo     repositories.OrderRepositoryInterface
	orders   OrderServiceInterface
	interval time.Duration
	batch    int
	qrTTL    time.Duration
	// checkTimeout bounds one order's check so a hanging fingerprint
	// cannot starve the rest of the batch
	checkTimeout time.Duration
	log          *zap.Logger
	now          func() time.Time

	scheduler gocron.Scheduler
	runCtx    context.Context
	cancelRun context.CancelFunc
}

type ReconcileStats struct {
	Checked   int
	Completed int
	Failed    int
}

func NewReconciler(cfg config.Config, repo repositories.OrderRepositoryInterface, orders OrderServiceInterface, log *zap.Logger) *Reconciler {
	batch := cfg.Reconcile.BatchSize
	if batch <= 0 {
		batch = DefaultReconcileBatch
	}
	gatewayTimeout := cfg.Bakong.Timeout
	if gatewayTimeout <= 0 {
		gatewayTimeout = 8 * time.Second
	}
	return &Reconciler{
		repo:         repo,
		orders:       orders,
		interval:     cfg.Reconcile.Interval,
		batch:        batch,
		qrTTL:        cfg.Bakong.QRTTL,
		checkTimeout: gatewayTimeout + 2*time.Second,
		log:          log.Named("reconciler"),
		now:          time.Now,
	}
}

// RunOnce checks every pending QR payment issued within the QR lifetime.
// Each check has its own deadline; one failing or hanging order does not
// stop the batch. Only cancellation of ctx ends the run early.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats
	since := r.now().Add(-r.qrTTL).Unix()

	payments, err := r.repo.ListPendingQRPayments(ctx, since, r.batch)
	if err != nil {
		return stats, fmt.Errorf("list pending payments: %w", err)
	}

	for _, p := range payments {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++
		resp, err := r.checkOne(ctx, p.OrderID.String())
		if err != nil {
			stats.Failed++
			r.log.Warn("reconcile check failed", zap.String("order_id", p.OrderID.String()), zap.Error(err))
			continue
		}
		if resp.GatewayStatus == GatewayCompleted {
			stats.Completed++
		}
	}
	return stats, nil
}

func (r *Reconciler) checkOne(ctx context.Context, orderID string) (*response_models.CheckPaymentResponse, error) {
	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()
	return r.orders.CheckPaymentStatus(checkCtx, orderID)
}

func (r *Reconciler) Start() error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", r.interval)
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(utils.ShopLocation()))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.run),
		gocron.WithName(reconcileJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule reconcile job: %w", err)
	}

	r.runCtx, r.cancelRun = context.WithCancel(context.Background())
	r.scheduler = s
	s.Start()
	r.log.Info("reconciler started", zap.Duration("interval", r.interval), zap.Int("batch", r.batch))
	return nil
}

func (r *Reconciler) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	r.cancelRun()
	err := r.scheduler.Shutdown()
	r.scheduler = nil
	r.log.Info("reconciler stopped")
	return err
}

// run is invoked by the scheduler; singleton mode keeps runs from overlapping
// when a batch outlasts the interval.
func (r *Reconciler) run() {
	stats, err := r.RunOnce(r.runCtx)
	if err != nil {
		r.log.Error("reconcile run failed", zap.Error(err))
		return
	}
	if stats.Checked > 0 {
		r.log.Info("reconcile run finished",
			zap.Int("checked", stats.Checked),
			zap.Int("completed", stats.Completed),
			zap.Int("failed", stats.Failed))
	}
}
