// Package bakong is a thin client for the Bakong Open API. Responses are
// returned undecoded into any shape because the gateway is not consistent
// about them; callers normalize.
package bakong

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultLiveURL    = "https://api-bakong.nbc.gov.kh"
	DefaultSandboxURL = "https://sit-api-bakong.nbc.gov.kh"

	checkByMD5Path = "/v1/check_transaction_by_md5"
	// Bakong does not publish a generation endpoint; gateways that issue
	// trackable QRs are expected to expose this one.
	DefaultGeneratePath = "/v1/generate_khqr_individual"

	maxErrorBody = 2048
)

var ErrMissingToken = errors.New("bakong: api token is not configured")

// HTTPError is a non-2xx answer from the gateway.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bakong: HTTP %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	Token        string
	TestMode     bool
	LiveURL      string
	SandboxURL   string
	GeneratePath string
	Timeout      time.Duration
}

type Client struct {
	HTTP         *http.Client
	Token        string
	BaseURL      string
	GeneratePath string
}

// IndividualRequest is the payload of an upstream QR issuance.
type IndividualRequest struct {
	AccountID    string          `json:"bakongAccountID"`
	MerchantName string          `json:"merchantName"`
	MerchantCity string          `json:"merchantCity"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewClient picks the sandbox or live base URL from cfg.TestMode. The same
// mode must be used to issue and to check a fingerprint.
func NewClient(cfg Config) *Client {
	base := cfg.LiveURL
	if base == "" {
		base = DefaultLiveURL
	}
	if cfg.TestMode {
		base = cfg.SandboxURL
		if base == "" {
			base = DefaultSandboxURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	genPath := cfg.GeneratePath
	if genPath == "" {
		genPath = DefaultGeneratePath
	}
	return &Client{
		HTTP:         &http.Client{Timeout: timeout},
		Token:        cfg.Token,
		BaseURL:      strings.TrimRight(base, "/"),
		GeneratePath: genPath,
	}
}

func (c *Client) CheckTransactionByMD5(ctx context.Context, md5 string) (any, error) {
	return c.post(ctx, checkByMD5Path, map[string]string{"md5": md5})
}

func (c *Client) GenerateIndividual(ctx context.Context, req IndividualRequest) (any, error) {
	return c.post(ctx, c.GeneratePath, req)
}

func (c *Client) post(ctx context.Context, path string, body any) (any, error) {
	if c.Token == "" {
		return nil, ErrMissingToken
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("bakong encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("bakong request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bakong http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bakong read: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: msg}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		// some deployments answer with a bare string
		return string(data), nil
	}
	return out, nil
}
