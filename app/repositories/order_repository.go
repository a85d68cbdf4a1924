package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
)

// ErrDuplicateOrderID is returned when a generated custom order id collides.
var ErrDuplicateOrderID = errors.New("custom order id already exists")

// OrderRepository handles database operations for Order.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{col: db.Collection(database.ColOrders)}
}

// Create persists a new order. A custom_order_id collision surfaces as
// ErrDuplicateOrderID so the caller can regenerate and retry.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}

	_, err := r.col.InsertOne(ctx, order)
	if database.IsDuplicateKey(err) {
		return ErrDuplicateOrderID
	}
	if err != nil {
		return fmt.Errorf("orders: create: %w", err)
	}
	return nil
}

// FindByID looks up an order by its internal id. Returns (nil, nil) when absent.
func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByCustomOrderID looks up an order by the human-readable order id.
func (r *OrderRepository) FindByCustomOrderID(ctx context.Context, customOrderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"custom_order_id": customOrderID})
}

// FindByReference resolves an order from an untrusted reference that may be
// either the internal hex id or the custom order id (webhook payloads carry
// either). Returns (nil, nil) when nothing matches.
func (r *OrderRepository) FindByReference(ctx context.Context, ref string) (*models.Order, error) {
	or := bson.A{bson.M{"custom_order_id": ref}}
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		or = append(or, bson.M{"_id": oid})
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

// DistinctSchoolIDs lists every school id that has at least one order.
func (r *OrderRepository) DistinctSchoolIDs(ctx context.Context) ([]string, error) {
	raw, err := r.col.Distinct(ctx, "school_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("orders: distinct school ids: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// Count counts orders matching filter, independent of any pagination.
func (r *OrderRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("orders: count: %w", err)
	}
	return n, nil
}

// Aggregate runs pipeline over the orders collection and decodes all
// results into out (a pointer to a slice).
func (r *OrderRepository) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("orders: aggregate: %w", err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("orders: decode aggregation: %w", err)
	}
	return nil
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := r.col.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orders: find: %w", err)
	}
	return &order, nil
}
