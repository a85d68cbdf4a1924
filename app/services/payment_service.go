package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/app/repositories"
	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/internal/gateway"
	"github.com/shashiranjanraj/vidyapay/pkg/apperr"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
	"github.com/shashiranjanraj/vidyapay/pkg/metrics"
)

// orderIDRetries bounds regeneration attempts when a generated custom order
// id collides on the unique index.
const orderIDRetries = 3

// OrderStore is the slice of OrderRepository the payment service needs.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
}

// StatusStore is the slice of StatusRepository the reconciliation flow needs.
type StatusStore interface {
	UpsertByOrder(ctx context.Context, collectID primitive.ObjectID, fields bson.M) error
	FindByOrder(ctx context.Context, collectID primitive.ObjectID) (*models.OrderStatus, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.OrderStatus, error)
}

// GatewayAPI abstracts the collect-request gateway client.
type GatewayAPI interface {
	CreateCollectRequest(ctx context.Context, schoolID, amount, callbackURL string) (*gateway.CollectResponse, error)
	CheckCollectRequest(ctx context.Context, schoolID, collectRequestID string) (*gateway.StatusResponse, error)
}

// CreatePaymentRequest is the body of POST /payments/create-payment.
type CreatePaymentRequest struct {
	OrderAmount float64            `json:"order_amount" validate:"required,gt=0"`
	StudentInfo StudentInfoRequest `json:"student_info" validate:"required"`
	SchoolID    string             `json:"school_id"    validate:"required"`
}

type StudentInfoRequest struct {
	Name  string `json:"name"  validate:"required"`
	ID    string `json:"id"    validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty"`
}

// CreatePaymentResult is returned to the caller after order creation.
type CreatePaymentResult struct {
	CustomOrderID    string         `json:"custom_order_id"`
	OrderID          string         `json:"order_id"`
	CollectRequestID string         `json:"collect_request_id,omitempty"`
	Status           string         `json:"status,omitempty"`
	PaymentPage      *string        `json:"payment_page"`
	StatusURL        string         `json:"status_url"`
	Raw              map[string]any `json:"raw,omitempty"`
}

// CheckResult is returned from an admin-triggered status poll.
type CheckResult struct {
	OK      bool           `json:"ok"`
	Data    map[string]any `json:"data"`
	Updated bool           `json:"updated"`
}

// PaymentService orchestrates Order + OrderStatus + the gateway client to
// create, track and finalize a payment.
type PaymentService struct {
	cfg      *config.Config
	orders   OrderStore
	statuses StatusStore
	gw       GatewayAPI

	now     func() time.Time
	randInt func(n int) int
}

func NewPaymentService(cfg *config.Config, orders OrderStore, statuses StatusStore, gw GatewayAPI) *PaymentService {
	return &PaymentService{
		cfg:      cfg,
		orders:   orders,
		statuses: statuses,
		gw:       gw,
		now:      time.Now,
		randInt:  rand.Intn,
	}
}

// CreatePayment runs the create half of the reconciliation flow: validate
// configuration, persist the order, then either simulate or submit a signed
// collect request to the gateway.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	if missing := s.cfg.MissingGatewayVars(); len(missing) > 0 {
		return nil, apperr.MisconfiguredVars(missing)
	}

	order, err := s.createOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	log := logger.WithCtx(ctx)
	log.Info("order created",
		"custom_order_id", order.CustomOrderID,
		"school_id", order.SchoolID,
		"order_amount", order.OrderAmount,
	)

	if s.cfg.FakeGateway {
		return s.simulate(ctx, order)
	}

	schoolID := s.schoolID(req.SchoolID)
	amount := strconv.FormatFloat(req.OrderAmount, 'f', -1, 64)
	callbackURL := s.cfg.StatusURL(order.CustomOrderID)

	resp, err := s.gw.CreateCollectRequest(ctx, schoolID, amount, callbackURL)
	if err != nil {
		// The order stays persisted either way: the caller can resolve it
		// later through a manual poll or a late webhook.
		if errors.Is(err, gateway.ErrUnreachable) {
			// Outcome unknown upstream. Park the order so reconciliation
			// tooling can find it.
			if upErr := s.statuses.UpsertByOrder(ctx, order.ID, bson.M{
				"order_amount": order.OrderAmount,
				"status":       models.StatusPendingReconciliation,
				"gateway":      models.DefaultGateway,
			}); upErr != nil {
				log.Error("parking order failed", "error", upErr)
			}
			return nil, apperr.UpstreamError(0, "", err)
		}

		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) {
			return nil, apperr.UpstreamError(httpErr.StatusCode, httpErr.Body, err)
		}
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	if err := s.statuses.UpsertByOrder(ctx, order.ID, bson.M{
		"order_amount":                order.OrderAmount,
		"status":                      models.StatusInitiated,
		"gateway":                     models.DefaultGateway,
		"external_collect_request_id": resp.CollectRequestID,
	}); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	metrics.PaymentsCreated.WithLabelValues("real").Inc()

	var page *string
	if resp.PaymentPageURL != "" {
		page = &resp.PaymentPageURL
	}
	return &CreatePaymentResult{
		CustomOrderID:    order.CustomOrderID,
		OrderID:          order.ID.Hex(),
		CollectRequestID: resp.CollectRequestID,
		PaymentPage:      page,
		StatusURL:        s.cfg.StatusURL(order.CustomOrderID),
		Raw:              resp.Raw,
	}, nil
}

// CheckStatus polls the gateway for one collect request and reconciles the
// stored status. Idempotent: repeated polls with unchanged upstream state
// change nothing but the payment timestamp.
func (s *PaymentService) CheckStatus(ctx context.Context, collectRequestID, schoolID string) (*CheckResult, error) {
	schoolID = s.schoolID(schoolID)
	if schoolID == "" {
		return nil, apperr.New(apperr.BadRequest, "school_id missing")
	}

	statusDoc, err := s.statuses.FindByExternalID(ctx, collectRequestID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	var order *models.Order
	if statusDoc != nil {
		order, err = s.orders.FindByID(ctx, statusDoc.CollectID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
		}
	}

	resp, err := s.gw.CheckCollectRequest(ctx, schoolID, collectRequestID)
	if err != nil {
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) {
			return nil, apperr.UpstreamError(httpErr.StatusCode, httpErr.Body, err)
		}
		return nil, apperr.UpstreamError(0, "", err)
	}

	newStatus := strings.ToLower(resp.Status)
	if newStatus == "" {
		newStatus = models.StatusPending
	}

	updated := false
	if order != nil && s.pollMayWrite(statusDoc, newStatus) {
		txnAmount := resp.Amount
		if txnAmount == nil && newStatus == models.StatusSuccess {
			amount := order.OrderAmount
			txnAmount = &amount
		}

		mode := resp.PaymentMethods
		if mode == "" {
			mode = "na"
		}

		fields := bson.M{
			"status":                      newStatus,
			"payment_mode":                mode,
			"payment_time":                s.now(),
			"gateway":                     models.DefaultGateway,
			"external_collect_request_id": collectRequestID,
		}
		if txnAmount != nil {
			fields["transaction_amount"] = *txnAmount
		}

		if err := s.statuses.UpsertByOrder(ctx, order.ID, fields); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
		}
		updated = true
	}

	return &CheckResult{OK: true, Data: resp.Raw, Updated: updated}, nil
}

// pollMayWrite decides the precedence between a poll result and the stored
// state: a poll never downgrades a terminal status written by a webhook.
func (s *PaymentService) pollMayWrite(stored *models.OrderStatus, newStatus string) bool {
	if stored == nil {
		return true
	}
	if models.IsTerminalStatus(stored.Status) && !models.IsTerminalStatus(newStatus) {
		return false
	}
	return true
}

func (s *PaymentService) createOrder(ctx context.Context, req CreatePaymentRequest) (*models.Order, error) {
	var lastErr error
	for attempt := 0; attempt < orderIDRetries; attempt++ {
		order := &models.Order{
			SchoolID: req.SchoolID,
			StudentInfo: models.StudentInfo{
				Name:  req.StudentInfo.Name,
				ID:    req.StudentInfo.ID,
				Email: req.StudentInfo.Email,
				Phone: req.StudentInfo.Phone,
			},
			GatewayName:   models.DefaultGateway,
			CustomOrderID: s.newOrderID(),
			OrderAmount:   req.OrderAmount,
		}

		err := s.orders.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateOrderID) {
			return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
		}
		lastErr = err
	}
	return nil, apperr.Wrap(apperr.Internal, "Internal Server Error",
		fmt.Errorf("order id collisions exhausted %d attempts: %w", orderIDRetries, lastErr))
}

// newOrderID builds the human-readable order id: ORD-<unix millis>-<5 digits>.
func (s *PaymentService) newOrderID() string {
	return fmt.Sprintf("ORD-%d-%05d", s.now().UnixMilli(), s.randInt(100000))
}

func (s *PaymentService) simulate(ctx context.Context, order *models.Order) (*CreatePaymentResult, error) {
	statusURL := s.cfg.StatusURL(order.CustomOrderID)
	now := s.now()

	if s.cfg.AutoCapture {
		err := s.statuses.UpsertByOrder(ctx, order.ID, bson.M{
			"order_amount":       order.OrderAmount,
			"transaction_amount": order.OrderAmount,
			"payment_mode":       "test",
			"bank_reference":     "FAKE-" + order.ID.Hex(),
			"payment_message":    "captured",
			"status":             models.StatusSuccess,
			"payment_time":       now,
			"gateway":            models.SimulatedGateway,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
		}

		metrics.PaymentsCreated.WithLabelValues("simulated").Inc()
		return &CreatePaymentResult{
			CustomOrderID: order.CustomOrderID,
			OrderID:       order.ID.Hex(),
			Status:        models.StatusSuccess,
			PaymentPage:   nil,
			StatusURL:     statusURL,
			Raw:           map[string]any{"fake": true, "autoCapture": true},
		}, nil
	}

	err := s.statuses.UpsertByOrder(ctx, order.ID, bson.M{
		"order_amount": order.OrderAmount,
		"status":       models.StatusInitiated,
		"gateway":      models.SimulatedGateway,
		"payment_time": now,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	metrics.PaymentsCreated.WithLabelValues("simulated").Inc()
	page := statusURL + "?fake=1"
	return &CreatePaymentResult{
		CustomOrderID: order.CustomOrderID,
		OrderID:       order.ID.Hex(),
		Status:        models.StatusInitiated,
		PaymentPage:   &page,
		StatusURL:     statusURL,
		Raw:           map[string]any{"fake": true, "autoCapture": false},
	}, nil
}

// schoolID falls back to the configured default when the caller omitted one.
func (s *PaymentService) schoolID(requested string) string {
	if requested != "" {
		return requested
	}
	return s.cfg.DefaultSchoolID
}
