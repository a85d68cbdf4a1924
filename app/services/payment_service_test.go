package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/internal/gateway"
	"github.com/shashiranjanraj/vidyapay/pkg/apperr"
)

func paymentTestConfig() *config.Config {
	return &config.Config{
		AppBaseURL:     "http://localhost:8080",
		GatewayBaseURL: "https://gateway.example.com/erp",
		GatewayAPIKey:  "api-key",
		GatewayPGKey:   "pg-key",
	}
}

func createReq() CreatePaymentRequest {
	return CreatePaymentRequest{
		OrderAmount: 2500,
		SchoolID:    "65b0e6293e9f76a9694d84b4",
		StudentInfo: StudentInfoRequest{Name: "Asha Rao", ID: "STU-101", Email: "asha@example.com"},
	}
}

func TestCreatePaymentRealGateway(t *testing.T) {
	orders := &memOrders{}
	statuses := newMemStatuses()
	gw := &fakeGateway{createResp: &gateway.CollectResponse{
		CollectRequestID: "CR-123",
		PaymentPageURL:   "https://pay.example.com/CR-123",
		Raw:              map[string]any{"collect_request_id": "CR-123"},
	}}

	svc := NewPaymentService(paymentTestConfig(), orders, statuses, gw)
	result, err := svc.CreatePayment(context.Background(), createReq())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-\d{5}$`), result.CustomOrderID)
	assert.Equal(t, "CR-123", result.CollectRequestID)
	require.NotNil(t, result.PaymentPage)
	assert.Equal(t, "https://pay.example.com/CR-123", *result.PaymentPage)
	assert.Equal(t, "http://localhost:8080/status/"+result.CustomOrderID, result.StatusURL)
	assert.Equal(t, "2500", gw.lastAmount)

	order, err := orders.FindByReference(context.Background(), result.CustomOrderID)
	require.NoError(t, err)
	require.NotNil(t, order)

	status, err := statuses.FindByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.StatusInitiated, status.Status)
	assert.Equal(t, "CR-123", status.ExternalRequestID)
	assert.Equal(t, models.DefaultGateway, status.Gateway)
}

func TestCreatePaymentMisconfigured(t *testing.T) {
	cfg := paymentTestConfig()
	cfg.GatewayPGKey = ""

	svc := NewPaymentService(cfg, &memOrders{}, newMemStatuses(), &fakeGateway{})
	_, err := svc.CreatePayment(context.Background(), createReq())

	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.Misconfigured, appErr.Kind)
	assert.Contains(t, appErr.Missing, "PAYMENT_PG_KEY")
}

func TestCreatePaymentOrderIDCollisionRetries(t *testing.T) {
	orders := &memOrders{failDupes: 2}
	gw := &fakeGateway{createResp: &gateway.CollectResponse{CollectRequestID: "CR-9"}}

	svc := NewPaymentService(paymentTestConfig(), orders, newMemStatuses(), gw)
	result, err := svc.CreatePayment(context.Background(), createReq())
	require.NoError(t, err)
	assert.NotEmpty(t, result.CustomOrderID)
}

func TestCreatePaymentOrderIDCollisionExhausted(t *testing.T) {
	orders := &memOrders{failDupes: orderIDRetries}
	svc := NewPaymentService(paymentTestConfig(), orders, newMemStatuses(), &fakeGateway{})

	_, err := svc.CreatePayment(context.Background(), createReq())
	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.Internal, appErr.Kind)
}

func TestCreatePaymentGatewayUnreachableParksOrder(t *testing.T) {
	orders := &memOrders{}
	statuses := newMemStatuses()
	gw := &fakeGateway{createErr: gateway.ErrUnreachable}

	svc := NewPaymentService(paymentTestConfig(), orders, statuses, gw)
	_, err := svc.CreatePayment(context.Background(), createReq())

	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.Upstream, appErr.Kind)

	// The order must survive the failed submission.
	require.Len(t, orders.orders, 1)
	status, err := statuses.FindByOrder(context.Background(), orders.orders[0].ID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.StatusPendingReconciliation, status.Status)
}

func TestCreatePaymentGatewayRejection(t *testing.T) {
	orders := &memOrders{}
	gw := &fakeGateway{createErr: &gateway.HTTPError{StatusCode: 401, Body: `{"message":"bad key"}`}}

	svc := NewPaymentService(paymentTestConfig(), orders, newMemStatuses(), gw)
	_, err := svc.CreatePayment(context.Background(), createReq())

	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.Upstream, appErr.Kind)
	assert.Equal(t, 401, appErr.UpstreamStatus)
	assert.Contains(t, appErr.UpstreamBody, "bad key")
	require.Len(t, orders.orders, 1)
}

func TestCreatePaymentSimulatedAutoCapture(t *testing.T) {
	cfg := paymentTestConfig()
	cfg.FakeGateway = true
	cfg.AutoCapture = true

	orders := &memOrders{}
	statuses := newMemStatuses()
	svc := NewPaymentService(cfg, orders, statuses, &fakeGateway{})

	result, err := svc.CreatePayment(context.Background(), createReq())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Nil(t, result.PaymentPage)

	status, err := statuses.FindByOrder(context.Background(), orders.orders[0].ID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.StatusSuccess, status.Status)
	require.NotNil(t, status.TransactionAmount)
	assert.Equal(t, 2500.0, *status.TransactionAmount)
	assert.Equal(t, "FAKE-"+orders.orders[0].ID.Hex(), status.BankReference)
	assert.Equal(t, models.SimulatedGateway, status.Gateway)
}

func TestCreatePaymentSimulatedInitiated(t *testing.T) {
	cfg := paymentTestConfig()
	cfg.FakeGateway = true

	orders := &memOrders{}
	statuses := newMemStatuses()
	svc := NewPaymentService(cfg, orders, statuses, &fakeGateway{})

	result, err := svc.CreatePayment(context.Background(), createReq())
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, result.Status)
	require.NotNil(t, result.PaymentPage)
	assert.Equal(t, result.StatusURL+"?fake=1", *result.PaymentPage)

	status, err := statuses.FindByOrder(context.Background(), orders.orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, status.Status)
}

func seedTrackedOrder(t *testing.T, orders *memOrders, statuses *memStatuses, status string) *models.Order {
	t.Helper()
	order := &models.Order{
		SchoolID:      "65b0e6293e9f76a9694d84b4",
		CustomOrderID: "ORD-1700000000000-00042",
		OrderAmount:   2500,
		GatewayName:   models.DefaultGateway,
	}
	require.NoError(t, orders.Create(context.Background(), order))
	require.NoError(t, statuses.UpsertByOrder(context.Background(), orders.orders[0].ID, bson.M{
		"order_amount":                2500,
		"status":                      status,
		"external_collect_request_id": "CR-123",
	}))
	return orders.orders[0]
}

func TestCheckStatusUpdatesPending(t *testing.T) {
	orders := &memOrders{}
	statuses := newMemStatuses()
	order := seedTrackedOrder(t, orders, statuses, models.StatusInitiated)

	gw := &fakeGateway{checkResp: &gateway.StatusResponse{
		Status: "PENDING",
		Raw:    map[string]any{"status": "PENDING"},
	}}
	svc := NewPaymentService(paymentTestConfig(), orders, statuses, gw)

	result, err := svc.CheckStatus(context.Background(), "CR-123", order.SchoolID)
	require.NoError(t, err)
	assert.True(t, result.Updated)

	status, _ := statuses.FindByOrder(context.Background(), order.ID)
	assert.Equal(t, models.StatusPending, status.Status)
	assert.Nil(t, status.TransactionAmount)
	assert.Equal(t, "na", status.PaymentMode)
}

func TestCheckStatusSuccessDefaultsAmount(t *testing.T) {
	orders := &memOrders{}
	statuses := newMemStatuses()
	order := seedTrackedOrder(t, orders, statuses, models.StatusInitiated)

	gw := &fakeGateway{checkResp: &gateway.StatusResponse{Status: "SUCCESS", Raw: map[string]any{}}}
	svc := NewPaymentService(paymentTestConfig(), orders, statuses, gw)

	_, err := svc.CheckStatus(context.Background(), "CR-123", order.SchoolID)
	require.NoError(t, err)

	status, _ := statuses.FindByOrder(context.Background(), order.ID)
	assert.Equal(t, models.StatusSuccess, status.Status)
	require.NotNil(t, status.TransactionAmount)
	assert.Equal(t, 2500.0, *status.TransactionAmount)
}

func TestCheckStatusDoesNotDowngradeTerminal(t *testing.T) {
	orders := &memOrders{}
	statuses := newMemStatuses()
	order := seedTrackedOrder(t, orders, statuses, models.StatusSuccess)

	gw := &fakeGateway{checkResp: &gateway.StatusResponse{Status: "PENDING", Raw: map[string]any{}}}
	svc := NewPaymentService(paymentTestConfig(), orders, statuses, gw)

	result, err := svc.CheckStatus(context.Background(), "CR-123", order.SchoolID)
	require.NoError(t, err)
	assert.False(t, result.Updated)

	status, _ := statuses.FindByOrder(context.Background(), order.ID)
	assert.Equal(t, models.StatusSuccess, status.Status)
}

func TestCheckStatusSchoolIDFallback(t *testing.T) {
	cfg := paymentTestConfig()
	cfg.DefaultSchoolID = "default-school"

	gw := &fakeGateway{checkResp: &gateway.StatusResponse{Status: "pending", Raw: map[string]any{}}}
	svc := NewPaymentService(cfg, &memOrders{}, newMemStatuses(), gw)

	_, err := svc.CheckStatus(context.Background(), "CR-unknown", "")
	require.NoError(t, err)
	assert.Equal(t, "default-school", gw.lastSchool)
}

func TestCheckStatusSchoolIDMissing(t *testing.T) {
	svc := NewPaymentService(paymentTestConfig(), &memOrders{}, newMemStatuses(), &fakeGateway{})

	_, err := svc.CheckStatus(context.Background(), "CR-1", "")
	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.BadRequest, appErr.Kind)
}

func TestOrderIDFormatIsDeterministic(t *testing.T) {
	svc := NewPaymentService(paymentTestConfig(), &memOrders{}, newMemStatuses(), &fakeGateway{})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	svc.randInt = func(int) int { return 42 }

	assert.Equal(t, "ORD-1700000000000-00042", svc.newOrderID())
}
