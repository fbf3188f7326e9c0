package services

import (
	"bytes"
	"context"
	"encoding/json"
	"storefront/pkg/bakong"
	"strings"
)

// GatewayClient is the upstream Bakong API as seen by the QR generator and
// the status checker. *bakong.Client implements it.
type GatewayClient interface {
	GenerateIndividual(ctx context.Context, req bakong.IndividualRequest) (any, error)
	CheckTransactionByMD5(ctx context.Context, md5 string) (any, error)
}

// decodeJSONString unwraps a response that arrived as a string holding
// JSON. ok is false when s is not JSON or decodes to another string.
func decodeJSONString(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

// isEmpty follows loose-typed emptiness: nil, false, zero, "", "0" and
// empty collections are all empty.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == "" || t == "0"
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// isZeroCode reports a success sentinel: the number or string 0.
func isZeroCode(v any) bool {
	switch t := v.(type) {
	case json.Number:
		return t.String() == "0"
	case string:
		return t == "0"
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	}
	return false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
