package services

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/pkg/apperr"
	"github.com/shashiranjanraj/vidyapay/pkg/cache"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	schoolsCacheKey = "vidyapay:schools"
	schoolsCacheTTL = 5 * time.Minute
)

// sortFields whitelists the sortable columns of the joined row.
var sortFields = map[string]bool{
	"payment_time":       true,
	"order_amount":       true,
	"transaction_amount": true,
	"status":             true,
	"custom_order_id":    true,
	"school_id":          true,
	"created_at":         true,
}

// TransactionStore is the slice of OrderRepository the reporting queries
// need. All reads run as aggregations rooted at the orders collection.
type TransactionStore interface {
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error
	DistinctSchoolIDs(ctx context.Context) ([]string, error)
	FindByCustomOrderID(ctx context.Context, customOrderID string) (*models.Order, error)
}

// SchoolNameStore resolves school ids to display names.
type SchoolNameStore interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// ListQuery carries the parsed filters of GET /transactions.
type ListQuery struct {
	Page  int
	Limit int
	Sort  string
	Desc  bool

	SchoolIDs []string
	Statuses  []string
	TimeFrom  *time.Time
	TimeTo    *time.Time
}

// Normalize clamps paging and falls back to the default sort for fields
// outside the whitelist.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	if !sortFields[q.Sort] {
		q.Sort = "created_at"
		q.Desc = true
	}
}

// TransactionRow is one joined order + status + school record as projected
// by the reporting pipeline.
type TransactionRow struct {
	CollectID         primitive.ObjectID `bson:"collect_id"                   json:"collect_id"`
	SchoolID          string             `bson:"school_id"                    json:"school_id"`
	SchoolName        string             `bson:"school_name,omitempty"        json:"school_name"`
	Gateway           string             `bson:"gateway,omitempty"            json:"gateway"`
	OrderAmount       float64            `bson:"order_amount"                 json:"order_amount"`
	TransactionAmount *float64           `bson:"transaction_amount,omitempty" json:"transaction_amount"`
	Status            string             `bson:"status,omitempty"             json:"status"`
	CustomOrderID     string             `bson:"custom_order_id"              json:"custom_order_id"`
	StudentInfo       models.StudentInfo `bson:"student_info"                 json:"student_info"`
	PaymentMode       string             `bson:"payment_mode,omitempty"       json:"payment_mode"`
	PaymentTime       *time.Time         `bson:"payment_time,omitempty"       json:"payment_time"`
	BankReference     string             `bson:"bank_reference,omitempty"     json:"bank_reference"`
	CreatedAt         time.Time          `bson:"created_at"                   json:"created_at"`
}

// ListResult is the paginated reporting response.
type ListResult struct {
	Items []TransactionRow `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// SchoolEntry pairs a school id with its resolved display name.
type SchoolEntry struct {
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
}

// TransactionService serves the read-side reporting queries over the
// orders/orderstatuses/schools collections.
type TransactionService struct {
	cfg     *config.Config
	orders  TransactionStore
	schools SchoolNameStore
	cache   *cache.Cache
}

func NewTransactionService(cfg *config.Config, orders TransactionStore, schools SchoolNameStore, c *cache.Cache) *TransactionService {
	return &TransactionService{cfg: cfg, orders: orders, schools: schools, cache: c}
}

// List runs the paginated joined query. Total is counted with the same
// filters but without pagination.
func (s *TransactionService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	q.Normalize()

	var rows []TransactionRow
	if err := s.orders.Aggregate(ctx, BuildListPipeline(q), &rows); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if rows == nil {
		rows = []TransactionRow{}
	}

	var counts []struct {
		Total int64 `bson:"total"`
	}
	if err := s.orders.Aggregate(ctx, BuildCountPipeline(q), &counts); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	var total int64
	if len(counts) > 0 {
		total = counts[0].Total
	}

	s.fillSchoolNames(ctx, rows)

	return &ListResult{Items: rows, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// BySchool lists every transaction whose school id contains schoolID,
// matched case-insensitively. No pagination; the result is the full set.
func (s *TransactionService) BySchool(ctx context.Context, schoolID string) (*ListResult, error) {
	pipeline := append(
		mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
			"school_id": primitive.Regex{Pattern: regexp.QuoteMeta(schoolID), Options: "i"},
		}}}},
		joinStages()...,
	)
	pipeline = append(pipeline,
		projectStage(),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
	)

	var rows []TransactionRow
	if err := s.orders.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if rows == nil {
		rows = []TransactionRow{}
	}
	s.fillSchoolNames(ctx, rows)

	return &ListResult{Items: rows, Total: int64(len(rows)), Page: 1, Limit: len(rows)}, nil
}

// StatusByCustomOrderID returns the joined single-order view.
func (s *TransactionService) StatusByCustomOrderID(ctx context.Context, customOrderID string) (*TransactionRow, error) {
	order, err := s.orders.FindByCustomOrderID(ctx, customOrderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if order == nil {
		return nil, apperr.New(apperr.NotFound, "Order not found")
	}

	pipeline := append(
		mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"custom_order_id": customOrderID}}}},
		joinStages()...,
	)
	pipeline = append(pipeline, projectStage())

	var rows []TransactionRow
	if err := s.orders.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.NotFound, "Order not found")
	}
	s.fillSchoolNames(ctx, rows)
	return &rows[0], nil
}

// Schools returns the distinct school ids with resolved display names,
// cached briefly in Redis.
func (s *TransactionService) Schools(ctx context.Context) ([]SchoolEntry, error) {
	var cached []SchoolEntry
	if s.cache.Get(ctx, schoolsCacheKey, &cached) {
		return cached, nil
	}

	ids, err := s.orders.DistinctSchoolIDs(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	names, err := s.schools.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	entries := make([]SchoolEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, SchoolEntry{SchoolID: id, Name: s.resolveName(id, names)})
	}

	_ = s.cache.Set(ctx, schoolsCacheKey, entries, schoolsCacheTTL)
	return entries, nil
}

// fillSchoolNames applies the display-name fallback chain to joined rows
// whose $lookup found no school document.
func (s *TransactionService) fillSchoolNames(ctx context.Context, rows []TransactionRow) {
	missing := map[string]bool{}
	for i := range rows {
		if rows[i].SchoolName == "" {
			missing[rows[i].SchoolID] = true
		}
	}
	if len(missing) == 0 {
		return
	}

	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	names, err := s.schools.NamesByIDs(ctx, ids)
	if err != nil {
		names = map[string]string{}
	}

	for i := range rows {
		if rows[i].SchoolName == "" {
			rows[i].SchoolName = s.resolveName(rows[i].SchoolID, names)
		}
	}
}

// resolveName: stored school document, then the static config map, then the
// raw id.
func (s *TransactionService) resolveName(id string, stored map[string]string) string {
	if name := stored[id]; name != "" {
		return name
	}
	if name := s.cfg.SchoolNames[id]; name != "" {
		return name
	}
	return id
}

// BuildListPipeline assembles the paginated reporting aggregation. Exposed
// as a pure function so the stage order and filters are testable without a
// database.
func BuildListPipeline(q ListQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{}

	if len(q.SchoolIDs) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
			"school_id": bson.M{"$in": q.SchoolIDs},
		}}})
	}

	pipeline = append(pipeline, joinStages()...)

	if post := postJoinMatch(q); len(post) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: post}})
	}

	dir := 1
	if q.Desc {
		dir = -1
	}
	pipeline = append(pipeline,
		projectStage(),
		bson.D{{Key: "$sort", Value: bson.D{{Key: q.Sort, Value: dir}}}},
		bson.D{{Key: "$skip", Value: int64((q.Page - 1) * q.Limit)}},
		bson.D{{Key: "$limit", Value: int64(q.Limit)}},
	)
	return pipeline
}

// BuildCountPipeline shares the filter stages of BuildListPipeline and ends
// in $count instead of pagination.
func BuildCountPipeline(q ListQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{}

	if len(q.SchoolIDs) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
			"school_id": bson.M{"$in": q.SchoolIDs},
		}}})
	}

	pipeline = append(pipeline, joinStages()...)

	if post := postJoinMatch(q); len(post) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: post}})
	}

	pipeline = append(pipeline, bson.D{{Key: "$count", Value: "total"}})
	return pipeline
}

// postJoinMatch builds the filter over joined status fields.
func postJoinMatch(q ListQuery) bson.M {
	match := bson.M{}
	if len(q.Statuses) > 0 {
		match["statusDoc.status"] = bson.M{"$in": q.Statuses}
	}
	if q.TimeFrom != nil || q.TimeTo != nil {
		window := bson.M{}
		if q.TimeFrom != nil {
			window["$gte"] = *q.TimeFrom
		}
		if q.TimeTo != nil {
			window["$lte"] = *q.TimeTo
		}
		match["statusDoc.payment_time"] = window
	}
	return match
}

// joinStages attaches the school document and the reconciliation status to
// each order. Both joins preserve orders without a match.
func joinStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         database.ColSchools,
			"localField":   "school_id",
			"foreignField": "school_id",
			"as":           "schoolDoc",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$schoolDoc",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         database.ColOrderStatuses,
			"localField":   "_id",
			"foreignField": "collect_id",
			"as":           "statusDoc",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$statusDoc",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
}

// projectStage flattens the joined documents into the TransactionRow shape.
func projectStage() bson.D {
	return bson.D{{Key: "$project", Value: bson.M{
		"_id":                0,
		"collect_id":         "$_id",
		"school_id":          1,
		"school_name":        "$schoolDoc.name",
		"gateway":            "$statusDoc.gateway",
		"order_amount":       1,
		"transaction_amount": "$statusDoc.transaction_amount",
		"status":             "$statusDoc.status",
		"custom_order_id":    1,
		"student_info":       1,
		"payment_mode":       "$statusDoc.payment_mode",
		"payment_time":       "$statusDoc.payment_time",
		"bank_reference":     "$statusDoc.bank_reference",
		"created_at":         1,
	}}}
}
