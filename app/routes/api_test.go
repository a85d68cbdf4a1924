package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/vidyapay/app/controllers"
	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/app/services"
	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/internal/gateway"
	"github.com/shashiranjanraj/vidyapay/pkg/auth"
	"github.com/shashiranjanraj/vidyapay/pkg/router"
)

// memdb backs every store interface the service layer needs, so the whole
// route table can be exercised without Mongo.
type memdb struct {
	mu       sync.Mutex
	users    []*models.User
	orders   []*models.Order
	statuses map[primitive.ObjectID]*models.OrderStatus
	logs     []*models.WebhookLog
}

func newMemdb() *memdb {
	return &memdb{statuses: map[primitive.ObjectID]*models.OrderStatus{}}
}

func (m *memdb) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memdb) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	m.users = append(m.users, &copied)
	return nil
}

func (m *memdb) UpdateRole(_ context.Context, id primitive.ObjectID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.Role = role
		}
	}
	return nil
}

func (m *memdb) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	copied := *order
	m.orders = append(m.orders, &copied)
	return nil
}

func (m *memdb) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memdb) FindByReference(_ context.Context, ref string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CustomOrderID == ref || o.ID.Hex() == ref {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memdb) FindByCustomOrderID(ctx context.Context, id string) (*models.Order, error) {
	return m.FindByReference(ctx, id)
}

func (m *memdb) UpsertByOrder(_ context.Context, collectID primitive.ObjectID, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.statuses[collectID]
	if !ok {
		doc = &models.OrderStatus{ID: primitive.NewObjectID(), CollectID: collectID}
		m.statuses[collectID] = doc
	}
	if v, ok := fields["status"].(string); ok {
		doc.Status = v
	}
	if v, ok := fields["external_collect_request_id"].(string); ok {
		doc.ExternalRequestID = v
	}
	return nil
}

func (m *memdb) FindByOrder(_ context.Context, collectID primitive.ObjectID) (*models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.statuses[collectID]; ok {
		copied := *doc
		return &copied, nil
	}
	return nil, nil
}

func (m *memdb) FindByExternalID(_ context.Context, externalID string) (*models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.statuses {
		if doc.ExternalRequestID == externalID {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memdb) Append(_ context.Context, headers map[string][]string, body map[string]any) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := &models.WebhookLog{ID: primitive.NewObjectID(), Headers: headers, Body: body}
	m.logs = append(m.logs, entry)
	return entry.ID, nil
}

func (m *memdb) MarkHandled(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.logs {
		if entry.ID == id {
			entry.Handled = true
		}
	}
	return nil
}

func (m *memdb) Aggregate(context.Context, mongo.Pipeline, interface{}) error { return nil }

func (m *memdb) DistinctSchoolIDs(context.Context) ([]string, error) { return nil, nil }

func (m *memdb) NamesByIDs(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}

// userStoreAdapter / orderStoreAdapter rename the methods that clash on memdb.
type userStoreAdapter struct{ *memdb }

func (a userStoreAdapter) Create(ctx context.Context, u *models.User) error {
	return a.CreateUser(ctx, u)
}

type orderStoreAdapter struct{ *memdb }

func (a orderStoreAdapter) Create(ctx context.Context, o *models.Order) error {
	return a.CreateOrder(ctx, o)
}

func newTestServer(t *testing.T) (*httptest.Server, *memdb) {
	t.Helper()

	cfg := &config.Config{
		AppBaseURL:  "http://localhost:8080",
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		FakeGateway: true,
		AutoCapture: true,
		SchoolNames: map[string]string{},
	}
	db := newMemdb()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry)
	gw := gateway.New(gateway.Config{BaseURL: "http://unused.invalid"})

	authSvc := services.NewAuthService(userStoreAdapter{db}, tokens)
	paySvc := services.NewPaymentService(cfg, orderStoreAdapter{db}, db, gw)
	hookSvc := services.NewWebhookService(db, db, db)
	txnSvc := services.NewTransactionService(cfg, db, db, nil)

	r := router.New()
	RegisterAPI(r, tokens, Controllers{
		Auth:        controllers.NewAuthController(authSvc),
		Payment:     controllers.NewPaymentController(paySvc),
		Webhook:     controllers.NewWebhookController(hookSvc),
		Transaction: controllers.NewTransactionController(txnSvc),
	})

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv, db
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerAndLogin(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]any{
		"email":    email,
		"password": "secret123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register: %v", body)
	return body["data"].(map[string]any)["token"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, "vidyapay", data["service"])
}

func TestCreatePaymentEndToEndSimulated(t *testing.T) {
	srv, db := newTestServer(t)
	token := registerAndLogin(t, srv, "student@example.com")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/payments/create-payment", token, map[string]any{
		"order_amount": 2500,
		"school_id":    "65b0e6293e9f76a9694d84b4",
		"student_info": map[string]any{"name": "Asha Rao", "id": "STU-101"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create: %v", body)

	data := body["data"].(map[string]any)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-\d{5}$`), data["custom_order_id"])
	assert.Equal(t, "success", data["status"])
	assert.Contains(t, data["status_url"], "/status/"+data["custom_order_id"].(string))

	require.Len(t, db.orders, 1)
	status := db.statuses[db.orders[0].ID]
	require.NotNil(t, status)
	assert.Equal(t, models.StatusSuccess, status.Status)
}

func TestCreatePaymentValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv, "student@example.com")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/payments/create-payment", token, map[string]any{
		"order_amount": 0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotNil(t, body["errors"])
}

func TestRBACUnauthenticatedAndForbidden(t *testing.T) {
	srv, _ := newTestServer(t)

	// No token.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/payments/create-payment", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Student token on admin routes.
	token := registerAndLogin(t, srv, "student@example.com")
	for _, path := range []string{"/transactions", "/transactions/schools", "/payments/check/CR-1"} {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+path, token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/auth/admin/create", token, map[string]any{
		"email": "x@example.com", "password": "secret123", "name": "X",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Garbage token.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/transactions", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookIsPublicAndTolerant(t *testing.T) {
	srv, db := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/webhook", "", map[string]any{
		"status": 200,
		"order_info": map[string]any{
			"order_id": "ORD-unknown",
			"status":   "success",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]any)["ok"])

	require.Len(t, db.logs, 1)
	assert.False(t, db.logs[0].Handled)
}

func TestWebhookUpdatesKnownOrder(t *testing.T) {
	srv, db := newTestServer(t)
	token := registerAndLogin(t, srv, "student@example.com")

	_, created := doJSON(t, http.MethodPost, srv.URL+"/payments/create-payment", token, map[string]any{
		"order_amount": 1200,
		"school_id":    "65b0e6293e9f76a9694d84b4",
		"student_info": map[string]any{"name": "Ravi", "id": "STU-102"},
	})
	customOrderID := created["data"].(map[string]any)["custom_order_id"].(string)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/webhook", "", map[string]any{
		"order_info": map[string]any{
			"order_id": customOrderID,
			"status":   "failed",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status := db.statuses[db.orders[0].ID]
	require.NotNil(t, status)
	assert.Equal(t, models.StatusFailed, status.Status)
	require.Len(t, db.logs, 1)
	assert.True(t, db.logs[0].Handled)
}

func TestTransactionStatusUnknownOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv, "student@example.com")

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/transactions/status/ORD-missing", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
