package services

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"net"
	"net/http"
	"storefront/internal/config"
	"storefront/pkg/bakong"
	mem "storefront/pkg/memcache"
	"storefront/pkg/utils"
	"strconv"
	"strings"
	"time"
)

// Checker outcomes. There is deliberately no failed outcome: the absence of
// a confirmation is never evidence that a payment was declined.
const (
	GatewayCompleted = "completed"
	GatewayPending   = "pending"
	GatewayError     = "error"
)

const (
	StatusSourceGateway    = "bakong_api"
	StatusSourceSimulation = "simulation"
	StatusSourceConfig     = "configuration"
)

type StatusResult struct {
	Status          string
	TransactionData any
	Source          string
	Reason          string
	Suggestions     []string
	CheckedAt       time.Time
	// Err wraps utils.ErrGateway when Status is GatewayError.
	Err error
}

func (r StatusResult) Completed() bool { return r.Status == GatewayCompleted }

type PaymentStatusServiceInterface interface {
	Check(ctx context.Context, fingerprint string) StatusResult
	Simulate(ctx context.Context, fingerprint string) (*mem.SimulatedPayment, error)
}

type PaymentStatusService struct {
	cfg        config.BakongConfig
	production bool
	gateway    GatewayClient
	cache      *mem.FingerprintCache
	log        *zap.Logger
	now        func() time.Time
}

func NewPaymentStatusService(cfg config.Config, gateway GatewayClient, cache *mem.FingerprintCache, log *zap.Logger) PaymentStatusServiceInterface {
	return &PaymentStatusService{
		cfg:        cfg.Bakong,
		production: cfg.IsProduction(),
		gateway:    gateway,
		cache:      cache,
		log:        log.Named("payment_status"),
		now:        time.Now,
	}
}

func (s *PaymentStatusService) Check(ctx context.Context, fingerprint string) StatusResult {
	log := s.log.With(zap.String("md5", fingerprint), zap.Bool("test_mode", s.cfg.TestMode))

	if !s.cfg.HasCredential() || s.gateway == nil {
		log.Warn("no Bakong API token configured")
		return StatusResult{
			Status:    GatewayPending,
			Source:    StatusSourceConfig,
			Reason:    "no gateway credential configured",
			CheckedAt: s.now(),
		}
	}

	if !s.production && s.cache != nil {
		sim, found, err := s.cache.Simulated(ctx, fingerprint)
		if err != nil {
			log.Warn("simulation cache lookup failed", zap.Error(err))
		}
		if found {
			log.Info("using simulated payment")
			return StatusResult{
				Status:          GatewayCompleted,
				TransactionData: sim,
				Source:          StatusSourceSimulation,
				CheckedAt:       s.now(),
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	resp, err := s.gateway.CheckTransactionByMD5(callCtx, fingerprint)
	if err != nil {
		reason, suggestions := classifyGatewayError(err)
		log.Warn("Bakong API check failed", zap.String("reason", reason), zap.Error(err))
		return StatusResult{
			Status:      GatewayError,
			Source:      StatusSourceGateway,
			Reason:      reason,
			Suggestions: suggestions,
			CheckedAt:   s.now(),
			Err:         fmt.Errorf("%w: %v", utils.ErrGateway, err),
		}
	}

	completed, data := normalizeStatus(resp)
	if !completed {
		log.Debug("payment not found yet")
		return StatusResult{
			Status:    GatewayPending,
			Source:    StatusSourceGateway,
			Reason:    "payment not completed yet",
			CheckedAt: s.now(),
		}
	}

	log.Info("payment confirmed by gateway")
	return StatusResult{
		Status:          GatewayCompleted,
		TransactionData: data,
		Source:          StatusSourceGateway,
		CheckedAt:       s.now(),
	}
}

func (s *PaymentStatusService) Simulate(ctx context.Context, fingerprint string) (*mem.SimulatedPayment, error) {
	if s.production {
		return nil, utils.ErrSimulationDisabled
	}
	if strings.TrimSpace(fingerprint) == "" {
		return nil, utils.NewValidationError("md5", "is required")
	}
	if s.cache == nil {
		return nil, errors.New("simulation cache is not configured")
	}

	now := s.now()
	sim := mem.SimulatedPayment{
		Status:        GatewayCompleted,
		CompletedAt:   now,
		Simulated:     true,
		TransactionID: "SIM_" + strconv.FormatInt(now.Unix(), 10),
	}
	if err := s.cache.MarkSimulated(ctx, fingerprint, sim, s.cfg.SimulationTTL); err != nil {
		return nil, fmt.Errorf("store simulated payment: %w", err)
	}
	s.log.Info("payment simulated", zap.String("md5", fingerprint))
	return &sim, nil
}

func (s *PaymentStatusService) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return 8 * time.Second
}

// statusRule inspects one response object. matched stops the rule chain.
type statusRule func(resp map[string]any) (matched, completed bool, data any)

// tried in order, first match wins
var statusRules = []statusRule{
	ruleStatusField,
	ruleDataWithoutStatus,
	ruleSuccessFlag,
}

// normalizeStatus classifies a raw gateway response. Anything that is not
// a recognized completion is pending.
func normalizeStatus(resp any) (bool, any) {
	return normalizeStatusDepth(resp, 0)
}

func normalizeStatusDepth(resp any, depth int) (bool, any) {
	switch t := resp.(type) {
	case string:
		if depth > 0 {
			return false, nil
		}
		decoded, ok := decodeJSONString(t)
		if !ok {
			return false, nil
		}
		return normalizeStatusDepth(decoded, depth+1)
	case []any:
		if len(t) == 0 {
			return false, nil
		}
		first, ok := t[0].(map[string]any)
		if !ok {
			return false, nil
		}
		return normalizeObject(first)
	case map[string]any:
		return normalizeObject(t)
	}
	return false, nil
}

func normalizeObject(resp map[string]any) (bool, any) {
	for _, rule := range statusRules {
		if matched, completed, data := rule(resp); matched {
			return completed, data
		}
	}
	return false, nil
}

// ruleStatusField: an explicit status code decides on its own. Only the
// success sentinel 0 together with a non-empty data payload completes.
func ruleStatusField(resp map[string]any) (bool, bool, any) {
	code, present := statusCode(resp)
	if !present {
		return false, false, nil
	}
	data := resp["data"]
	if isZeroCode(code) && !isEmpty(data) {
		return true, true, data
	}
	return true, false, nil
}

func statusCode(resp map[string]any) (any, bool) {
	if status, ok := resp["status"]; ok {
		if nested, ok := status.(map[string]any); ok {
			return nested["code"], true
		}
		return status, true
	}
	if code, ok := resp["responseCode"]; ok {
		return code, true
	}
	return nil, false
}

// ruleDataWithoutStatus treats a non-empty data payload as a completion
// when no status field exists at all.
func ruleDataWithoutStatus(resp map[string]any) (bool, bool, any) {
	data, ok := resp["data"]
	if !ok || isEmpty(data) {
		return false, false, nil
	}
	return true, true, data
}

func ruleSuccessFlag(resp map[string]any) (bool, bool, any) {
	flag, ok := resp["success"]
	if !ok || isEmpty(flag) {
		return false, false, nil
	}
	return true, true, resp
}

var (
	accessDeniedSuggestions = []string{
		"Set BAKONG_TEST_MODE=false to check real payments",
		"Verify your BAKONG_API_TOKEN is valid and not expired",
		"Make sure the QR was generated in the same mode it is checked in",
	}
	expiredTokenSuggestions = []string{
		"Renew the BAKONG_API_TOKEN",
		"Verify the token belongs to the configured environment",
	}
	genericSuggestions = []string{
		"Check the network connection to the gateway",
		"Verify the API configuration",
		"Try again in a few minutes",
	}
)

const (
	accessDeniedReason = "access denied, likely wrong environment mode (sandbox vs live)"
	expiredTokenReason = "authentication failed, likely expired credential"
)

func classifyGatewayError(err error) (string, []string) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "gateway timeout", genericSuggestions
	}

	msg := err.Error()
	var httpErr *bakong.HTTPError
	if errors.As(err, &httpErr) {
		// a status code is authoritative; the body may quote any digits
		switch httpErr.StatusCode {
		case http.StatusForbidden:
			return accessDeniedReason, accessDeniedSuggestions
		case http.StatusUnauthorized:
			return expiredTokenReason, expiredTokenSuggestions
		}
		return "API error: " + msg, genericSuggestions
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "403") || strings.Contains(msg, "CloudFront") || strings.Contains(msg, "Forbidden"):
		return accessDeniedReason, accessDeniedSuggestions
	case strings.Contains(msg, "401") || strings.Contains(msg, "Unauthorized") ||
		strings.Contains(lower, "invalid token") || strings.Contains(lower, "token expired") ||
		strings.Contains(lower, "expired token"):
		return expiredTokenReason, expiredTokenSuggestions
	}
	return "API error: " + msg, genericSuggestions
}
