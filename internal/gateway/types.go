package gateway

import (
	"encoding/json"
	"fmt"
)

// CollectResponse is the gateway's reply to a create-collect-request call.
// The upstream contract is inconsistent about field casing, so both known
// spellings of each field are accepted.
type CollectResponse struct {
	CollectRequestID string
	PaymentPageURL   string
	Raw              map[string]any
}

// StatusResponse is the gateway's reply to a collect-request status poll.
type StatusResponse struct {
	Status string
	Amount *float64
	// PaymentMethods comes from the nested details object.
	PaymentMethods string
	Raw            map[string]any
}

func parseCollectResponse(raw []byte) (*CollectResponse, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("gateway: decode collect response: %w", err)
	}

	return &CollectResponse{
		CollectRequestID: firstString(m, "collect_request_id", "collect_requestId"),
		PaymentPageURL:   firstString(m, "Collect_request_url", "collect_request_url", "payment_url"),
		Raw:              m,
	}, nil
}

func parseStatusResponse(raw []byte) (*StatusResponse, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("gateway: decode status response: %w", err)
	}

	out := &StatusResponse{
		Status: firstString(m, "status"),
		Raw:    m,
	}

	if v, ok := m["amount"].(float64); ok {
		out.Amount = &v
	}
	if details, ok := m["details"].(map[string]any); ok {
		out.PaymentMethods = firstString(details, "payment_methods")
	}
	return out, nil
}

// firstString returns the first non-empty string found under any of keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
