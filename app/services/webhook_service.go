package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/apperr"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
	"github.com/shashiranjanraj/vidyapay/pkg/metrics"
)

// WebhookLogStore is the slice of WebhookRepository the webhook flow needs.
type WebhookLogStore interface {
	Append(ctx context.Context, headers map[string][]string, body map[string]any) (primitive.ObjectID, error)
	MarkHandled(ctx context.Context, id primitive.ObjectID) error
}

// OrderLookup resolves an order from the gateway's order reference, which
// may be either the custom order id or the Mongo object id in hex.
type OrderLookup interface {
	FindByReference(ctx context.Context, ref string) (*models.Order, error)
}

// WebhookService processes inbound gateway callbacks: every delivery is
// logged verbatim before any matching, and only deliveries that resolve to
// a known order mutate reconciliation state.
type WebhookService struct {
	logs     WebhookLogStore
	orders   OrderLookup
	statuses StatusStore

	now func() time.Time
}

func NewWebhookService(logs WebhookLogStore, orders OrderLookup, statuses StatusStore) *WebhookService {
	return &WebhookService{logs: logs, orders: orders, statuses: statuses, now: time.Now}
}

// Process ingests one webhook delivery. Deliveries that cannot be matched
// to an order return nil so the gateway sees success and stops retrying;
// the raw payload stays in the log for manual reconciliation.
func (s *WebhookService) Process(ctx context.Context, headers map[string][]string, body map[string]any) error {
	logID, err := s.logs.Append(ctx, headers, body)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		return apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	log := logger.WithCtx(ctx)

	info, ok := body["order_info"].(map[string]any)
	if !ok {
		log.Warn("webhook without order_info", "log_id", logID.Hex())
		metrics.WebhooksReceived.WithLabelValues("unmatched").Inc()
		return nil
	}

	ref, _ := info["order_id"].(string)
	if ref == "" {
		log.Warn("webhook without order_id", "log_id", logID.Hex())
		metrics.WebhooksReceived.WithLabelValues("unmatched").Inc()
		return nil
	}

	order, err := s.orders.FindByReference(ctx, ref)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		return apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if order == nil {
		log.Warn("webhook for unknown order", "order_ref", ref, "log_id", logID.Hex())
		metrics.WebhooksReceived.WithLabelValues("unmatched").Inc()
		return nil
	}

	if err := s.statuses.UpsertByOrder(ctx, order.ID, s.statusFields(info)); err != nil {
		metrics.WebhooksReceived.WithLabelValues("error").Inc()
		return apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	if err := s.logs.MarkHandled(ctx, logID); err != nil {
		// Status already written; a stale handled flag only affects audit.
		log.Error("marking webhook log handled failed", "log_id", logID.Hex(), "error", err)
	}

	log.Info("webhook applied",
		"custom_order_id", order.CustomOrderID,
		"status", strings.ToLower(stringField(info, "status")),
	)
	metrics.WebhooksReceived.WithLabelValues("handled").Inc()
	return nil
}

// statusFields maps the gateway's order_info object to OrderStatus fields.
// The gateway is inconsistent about key spellings, so several fields accept
// more than one.
func (s *WebhookService) statusFields(info map[string]any) bson.M {
	fields := bson.M{}

	if v, ok := numberField(info, "order_amount"); ok {
		fields["order_amount"] = v
	}
	if v, ok := numberField(info, "transaction_amount"); ok {
		fields["transaction_amount"] = v
	}
	if v := stringField(info, "gateway"); v != "" {
		fields["gateway"] = v
	}
	if v := stringField(info, "bank_reference", "bank_refrence"); v != "" {
		fields["bank_reference"] = v
	}
	if v := stringField(info, "status"); v != "" {
		fields["status"] = strings.ToLower(v)
	}
	if v := stringField(info, "payment_mode"); v != "" {
		fields["payment_mode"] = v
	}
	if v := stringField(info, "payemnt_details", "payment_details"); v != "" {
		fields["payment_details"] = v
	}
	if v := stringField(info, "Payment_message", "payment_message"); v != "" {
		fields["payment_message"] = v
	}
	if v := stringField(info, "error_message"); v != "" && !strings.EqualFold(v, "na") {
		fields["error_message"] = v
	}

	when := s.now()
	if raw := stringField(info, "payment_time"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			when = parsed
		}
	}
	fields["payment_time"] = when

	return fields
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
