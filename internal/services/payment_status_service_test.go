package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/pkg/bakong"
	mem "storefront/pkg/memcache"
	"storefront/pkg/utils"
	"strings"
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		completed bool
	}{
		{"response code zero with data", `{"responseCode":0,"responseMessage":"Success","data":{"hash":"abc","amount":27}}`, true},
		{"response code zero as string", `{"responseCode":"0","data":{"hash":"abc"}}`, true},
		{"not found yet", `{"responseCode":1,"responseMessage":"Transaction could not be found","errorCode":1,"data":null}`, false},
		{"code zero without data", `{"responseCode":0,"data":null}`, false},
		{"code zero with empty data", `{"responseCode":0,"data":{}}`, false},
		{"code zero with string zero data", `{"responseCode":0,"data":"0"}`, false},
		{"nested status code", `{"status":{"code":0},"data":{"hash":"x"}}`, true},
		{"nested status code non zero ignores data", `{"status":{"code":3},"data":{"hash":"x"}}`, false},
		{"flat status zero", `{"status":0,"data":[{"hash":"x"}]}`, true},
		{"flat status text", `{"status":"PENDING","data":{"hash":"x"}}`, false},
		{"data without status", `{"data":{"hash":"x"}}`, true},
		{"empty data without status", `{"data":[]}`, false},
		{"success flag", `{"success":true,"transaction":"t1"}`, true},
		{"success false", `{"success":false}`, false},
		{"success zero", `{"success":0}`, false},
		{"unrelated object", `{"error":"nope","message":"declined"}`, false},
		{"empty object", `{}`, false},
		{"array wrapping completion", `[{"responseCode":0,"data":{"hash":"x"}}]`, true},
		{"array of scalars", `[1,2,3]`, false},
		{"empty array", `[]`, false},
		{"bare number", `42`, false},
		{"bare string", `"ok"`, false},
		{"null", `null`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			completed, _ := normalizeStatus(fixture(t, tc.body))
			assert.Equal(t, tc.completed, completed)
		})
	}
}

func TestNormalizeStatus_DataSelection(t *testing.T) {
	completed, data := normalizeStatus(fixture(t, `{"responseCode":0,"data":{"hash":"abc"}}`))
	require.True(t, completed)
	assert.Equal(t, "abc", data.(map[string]any)["hash"])

	completed, data = normalizeStatus(fixture(t, `{"success":true,"ref":"r1"}`))
	require.True(t, completed)
	assert.Equal(t, "r1", data.(map[string]any)["ref"])
}

func TestNormalizeStatus_JSONStringDecodedOnce(t *testing.T) {
	completed, _ := normalizeStatus(`{"responseCode":0,"data":{"hash":"abc"}}`)
	assert.True(t, completed)

	// a string holding a JSON string is not unwrapped twice
	completed, _ = normalizeStatus(`"{\"responseCode\":0,\"data\":{\"hash\":\"abc\"}}"`)
	assert.False(t, completed)

	completed, _ = normalizeStatus("<html>502 Bad Gateway</html>")
	assert.False(t, completed)
}

func TestClassifyGatewayError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"deadline", context.DeadlineExceeded, "gateway timeout"},
		{"http 403", &bakong.HTTPError{StatusCode: 403, Body: "<html>"}, "access denied"},
		{"cloudfront", errors.New("Request blocked by CloudFront"), "access denied"},
		{"forbidden text", errors.New("Forbidden"), "access denied"},
		{"http 401", &bakong.HTTPError{StatusCode: 401, Body: "{}"}, "likely expired credential"},
		{"expired token", errors.New("Token expired at 2025-01-01"), "likely expired credential"},
		{"invalid token", errors.New("invalid token supplied"), "likely expired credential"},
		{"other", errors.New("connection refused"), "API error: connection refused"},
		{"http 500 quoting 403", &bakong.HTTPError{StatusCode: 500, Body: `{"error":"upstream 403 retry"}`}, "API error: "},
		{"http 502 quoting 401", &bakong.HTTPError{StatusCode: 502, Body: "order 4011 failed"}, "API error: "},
		{"wrapped http 403", fmt.Errorf("check: %w", &bakong.HTTPError{StatusCode: 403}), "access denied"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, suggestions := classifyGatewayError(tc.err)
			assert.Contains(t, reason, tc.reason)
			assert.NotEmpty(t, suggestions)
		})
	}
}

func newChecker(cfg config.Config, gw GatewayClient) (PaymentStatusServiceInterface, *mem.FingerprintCache) {
	cache := mem.NewFingerprintCache(mem.NewMemoryStore())
	return NewPaymentStatusService(cfg, gw, cache, zap.NewNop()), cache
}

func TestPaymentStatusService_NoCredentialIsPending(t *testing.T) {
	gw := &fakeGateway{checkResp: fixture(t, `{"responseCode":0,"data":{"hash":"x"}}`)}
	checker, _ := newChecker(testConfig(""), gw)

	res := checker.Check(context.Background(), "fp")
	assert.Equal(t, GatewayPending, res.Status)
	assert.Equal(t, "no gateway credential configured", res.Reason)
	_, checks := gw.calls()
	assert.Zero(t, checks)
}

func TestPaymentStatusService_SimulationShortCircuits(t *testing.T) {
	gw := &fakeGateway{checkResp: fixture(t, `{"responseCode":1,"data":null}`)}
	checker, _ := newChecker(testConfig("tok"), gw)
	ctx := context.Background()

	sim, err := checker.Simulate(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sim.TransactionID, "SIM_"))
	assert.True(t, sim.Simulated)

	res := checker.Check(ctx, "fp")
	assert.Equal(t, GatewayCompleted, res.Status)
	assert.Equal(t, StatusSourceSimulation, res.Source)
	_, checks := gw.calls()
	assert.Zero(t, checks)

	res = checker.Check(ctx, "other")
	assert.Equal(t, GatewayPending, res.Status)
	assert.Equal(t, StatusSourceGateway, res.Source)
}

func TestPaymentStatusService_ProductionIgnoresSimulation(t *testing.T) {
	cfg := testConfig("tok")
	cfg.Environment = config.EnvProduction
	gw := &fakeGateway{checkResp: fixture(t, `{"responseCode":1,"data":null}`)}
	checker, cache := newChecker(cfg, gw)
	ctx := context.Background()

	_, err := checker.Simulate(ctx, "fp")
	assert.ErrorIs(t, err, utils.ErrSimulationDisabled)

	require.NoError(t, cache.MarkSimulated(ctx, "fp", mem.SimulatedPayment{Status: "completed", Simulated: true}, time.Minute))
	res := checker.Check(ctx, "fp")
	assert.Equal(t, GatewayPending, res.Status)
	_, checks := gw.calls()
	assert.Equal(t, 1, checks)
}

func TestPaymentStatusService_GatewayErrorIsNotFailure(t *testing.T) {
	gw := &fakeGateway{checkErr: &bakong.HTTPError{StatusCode: 403, Body: "CloudFront"}}
	checker, _ := newChecker(testConfig("tok"), gw)

	res := checker.Check(context.Background(), "fp")
	assert.Equal(t, GatewayError, res.Status)
	assert.ErrorIs(t, res.Err, utils.ErrGateway)
	assert.Contains(t, res.Reason, "access denied")
	assert.False(t, res.Completed())
}

func TestPaymentStatusService_Timeout(t *testing.T) {
	cfg := testConfig("tok")
	cfg.Bakong.Timeout = 20 * time.Millisecond
	gw := &fakeGateway{checkFn: func(ctx context.Context, _ string) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	checker, _ := newChecker(cfg, gw)

	res := checker.Check(context.Background(), "fp")
	assert.Equal(t, GatewayError, res.Status)
	assert.Equal(t, "gateway timeout", res.Reason)
}

func TestPaymentStatusService_GatewayCompletion(t *testing.T) {
	gw := &fakeGateway{checkResp: fixture(t, `{"responseCode":0,"data":{"hash":"tx-9","amount":27}}`)}
	checker, _ := newChecker(testConfig("tok"), gw)

	res := checker.Check(context.Background(), "fp")
	require.Equal(t, GatewayCompleted, res.Status)
	assert.Equal(t, StatusSourceGateway, res.Source)
	assert.Equal(t, "tx-9", res.TransactionData.(map[string]any)["hash"])
	assert.False(t, res.CheckedAt.IsZero())
}
