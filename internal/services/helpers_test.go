package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/require"
	"storefront/internal/config"
	"storefront/internal/khqr"
	"storefront/pkg/bakong"
	"sync"
	"testing"
	"time"
)

// fakeGateway answers from canned responses or, when set, from the funcs.
type fakeGateway struct {
	mu sync.Mutex

	generateResp any
	generateErr  error
	checkResp    any
	checkErr     error
	checkFn      func(ctx context.Context, md5 string) (any, error)

	generateCalls int
	checkCalls    int
}

func (g *fakeGateway) GenerateIndividual(_ context.Context, _ bakong.IndividualRequest) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generateCalls++
	return g.generateResp, g.generateErr
}

func (g *fakeGateway) CheckTransactionByMD5(ctx context.Context, md5 string) (any, error) {
	g.mu.Lock()
	g.checkCalls++
	fn, resp, err := g.checkFn, g.checkResp, g.checkErr
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, md5)
	}
	return resp, err
}

func (g *fakeGateway) setCheck(resp any, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkResp, g.checkErr = resp, err
}

func (g *fakeGateway) calls() (generate, check int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateCalls, g.checkCalls
}

type failingEncoder struct{}

func (failingEncoder) Encode(khqr.IndividualInfo) (string, error) {
	return "", errors.New("codec exploded")
}

func testConfig(token string) config.Config {
	return config.Config{
		Environment: config.EnvLocal,
		Bakong: config.BakongConfig{
			APIToken:      token,
			TestMode:      true,
			Timeout:       time.Second,
			AccountID:     "motion@aclb",
			AccountName:   "MOTION CYCLE",
			MerchantCity:  "PHNOM PENH",
			QRTTL:         2 * time.Hour,
			SimulationTTL: 10 * time.Minute,
		},
		Reconcile: config.ReconcileConfig{Interval: time.Minute, BatchSize: 50},
	}
}

// fixture decodes a literal gateway body the way the HTTP client does.
func fixture(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var out any
	require.NoError(t, dec.Decode(&out))
	return out
}
