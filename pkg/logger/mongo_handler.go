// MongoHandler is an slog.Handler that asynchronously stores log records in
// a MongoDB collection. Records are pushed onto a buffered channel and a
// single background goroutine batches them into InsertMany calls; when the
// channel is full the record is dropped so logging never blocks a request.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	sinkBuffer    = 4096
	sinkBatchMax  = 50
	sinkFlushTick = 2 * time.Second
	sinkOpTimeout = 5 * time.Second
)

// LogDocument is the shape written to MongoDB.
type LogDocument struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// MongoHandler writes records to MongoDB asynchronously.
type MongoHandler struct {
	col   *mongo.Collection
	buf   chan LogDocument
	done  chan struct{}
	attrs []slog.Attr
}

// NewMongoHandler attaches the sink to an already-connected database.
// The caller must eventually call Close().
func NewMongoHandler(db *mongo.Database, collection string) (*MongoHandler, error) {
	if db == nil {
		return nil, fmt.Errorf("mongo_handler: nil database")
	}
	col := db.Collection(collection)

	ctx, cancel := context.WithTimeout(context.Background(), sinkOpTimeout)
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "time", Value: -1}},
	})
	cancel()

	h := &MongoHandler{
		col:  col,
		buf:  make(chan LogDocument, sinkBuffer),
		done: make(chan struct{}),
	}
	go h.run()
	return h, nil
}

func (h *MongoHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	doc := h.toDocument(r)

	// Drop rather than block when the writer can't keep up.
	select {
	case h.buf <- doc:
	default:
	}
	return nil
}

func (h *MongoHandler) toDocument(r slog.Record) LogDocument {
	doc := LogDocument{
		Time:  r.Time,
		Level: r.Level.String(),
		Msg:   r.Message,
		Attrs: bson.M{},
	}
	put := func(a slog.Attr) {
		if a.Key == "request_id" {
			doc.RequestID = a.Value.String()
		} else {
			doc.Attrs[a.Key] = a.Value.Any()
		}
	}
	for _, a := range h.attrs {
		put(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		put(a)
		return true
	})
	return doc
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *MongoHandler) WithGroup(string) slog.Handler { return h }

func (h *MongoHandler) run() {
	ticker := time.NewTicker(sinkFlushTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, sinkBatchMax)
	for {
		select {
		case doc := <-h.buf:
			batch = append(batch, doc)
			if len(batch) >= sinkBatchMax {
				batch = h.flush(batch)
			}
		case <-ticker.C:
			batch = h.flush(batch)
		case <-h.done:
			for len(h.buf) > 0 {
				batch = append(batch, <-h.buf)
			}
			h.flush(batch)
			return
		}
	}
}

// flush inserts the batch and returns it emptied for reuse.
func (h *MongoHandler) flush(batch []interface{}) []interface{} {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), sinkOpTimeout)
	_, _ = h.col.InsertMany(ctx, batch)
	cancel()
	return batch[:0]
}

// Close flushes pending records. Safe to call multiple times.
func (h *MongoHandler) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// MultiHandler fans out each record to multiple slog.Handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler returns a handler that sends each record to all hs.
func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: hs}
}
