package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/app/repositories"
	"github.com/shashiranjanraj/vidyapay/internal/gateway"
)

// memOrders is an in-memory OrderStore / OrderLookup.
type memOrders struct {
	mu     sync.Mutex
	orders []*models.Order

	// failDupes makes the next N Creates collide on the order id index.
	failDupes int
	createErr error
}

func (m *memOrders) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.failDupes > 0 {
		m.failDupes--
		return repositories.ErrDuplicateOrderID
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = time.Now()
	copied := *order
	m.orders = append(m.orders, &copied)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
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

func (m *memOrders) FindByReference(_ context.Context, ref string) (*models.Order, error) {
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

// memStatuses is an in-memory StatusStore that replays the upsert field
// maps onto OrderStatus documents.
type memStatuses struct {
	mu       sync.Mutex
	byOrder  map[primitive.ObjectID]*models.OrderStatus
	upserts  int
	lastSets bson.M
}

func newMemStatuses() *memStatuses {
	return &memStatuses{byOrder: map[primitive.ObjectID]*models.OrderStatus{}}
}

func (m *memStatuses) UpsertByOrder(_ context.Context, collectID primitive.ObjectID, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts++
	m.lastSets = fields

	doc, ok := m.byOrder[collectID]
	if !ok {
		doc = &models.OrderStatus{
			ID:        primitive.NewObjectID(),
			CollectID: collectID,
			CreatedAt: time.Now(),
		}
		m.byOrder[collectID] = doc
	}
	doc.UpdatedAt = time.Now()

	for key, value := range fields {
		switch key {
		case "status":
			doc.Status = value.(string)
		case "gateway":
			doc.Gateway = value.(string)
		case "order_amount":
			doc.OrderAmount = toFloat(value)
		case "transaction_amount":
			v := toFloat(value)
			doc.TransactionAmount = &v
		case "payment_mode":
			doc.PaymentMode = value.(string)
		case "payment_details":
			doc.PaymentDetails = value.(string)
		case "bank_reference":
			doc.BankReference = value.(string)
		case "payment_message":
			doc.PaymentMessage = value.(string)
		case "error_message":
			doc.ErrorMessage = value.(string)
		case "external_collect_request_id":
			doc.ExternalRequestID = value.(string)
		case "payment_time":
			t := value.(time.Time)
			doc.PaymentTime = &t
		}
	}
	return nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func (m *memStatuses) FindByOrder(_ context.Context, collectID primitive.ObjectID) (*models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.byOrder[collectID]; ok {
		copied := *doc
		return &copied, nil
	}
	return nil, nil
}

func (m *memStatuses) FindByExternalID(_ context.Context, externalID string) (*models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.byOrder {
		if doc.ExternalRequestID == externalID {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

// memWebhookLogs is an in-memory WebhookLogStore.
type memWebhookLogs struct {
	mu      sync.Mutex
	entries []*models.WebhookLog
}

func (m *memWebhookLogs) Append(_ context.Context, headers map[string][]string, body map[string]any) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := &models.WebhookLog{
		ID:        primitive.NewObjectID(),
		Headers:   headers,
		Body:      body,
		CreatedAt: time.Now(),
	}
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *memWebhookLogs) MarkHandled(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.ID == id {
			entry.Handled = true
		}
	}
	return nil
}

// fakeGateway scripts the collect-request API.
type fakeGateway struct {
	createResp *gateway.CollectResponse
	createErr  error
	checkResp  *gateway.StatusResponse
	checkErr   error

	createCalls int
	checkCalls  int
	lastSchool  string
	lastAmount  string
}

func (f *fakeGateway) CreateCollectRequest(_ context.Context, schoolID, amount, _ string) (*gateway.CollectResponse, error) {
	f.createCalls++
	f.lastSchool = schoolID
	f.lastAmount = amount
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeGateway) CheckCollectRequest(_ context.Context, schoolID, _ string) (*gateway.StatusResponse, error) {
	f.checkCalls++
	f.lastSchool = schoolID
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.checkResp, nil
}

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
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

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	m.users = append(m.users, &copied)
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, id primitive.ObjectID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.Role = role
		}
	}
	return nil
}
