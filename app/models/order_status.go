package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reconciliation states. The set is open-ended: the gateway may supply
// values outside this list and they are stored as-is (lower-cased).
const (
	StatusInitiated             = "initiated"
	StatusPending               = "pending"
	StatusSuccess               = "success"
	StatusFailed                = "failed"
	StatusPendingReconciliation = "pending_reconciliation"
)

// IsTerminalStatus reports whether s is a final outcome that a stale poll
// must not overwrite.
func IsTerminalStatus(s string) bool {
	return s == StatusSuccess || s == StatusFailed
}

// OrderStatus is the latest reconciliation state for exactly one Order,
// keyed by CollectID, the owning order's id.
// Mutated repeatedly over the order's lifetime via upsert; never deleted.
type OrderStatus struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"                         json:"_id"`
	CollectID         primitive.ObjectID `bson:"collect_id"                            json:"collect_id"`
	ExternalRequestID string             `bson:"external_collect_request_id,omitempty" json:"external_collect_request_id,omitempty"`
	OrderAmount       float64            `bson:"order_amount"                          json:"order_amount"`
	TransactionAmount *float64           `bson:"transaction_amount,omitempty"          json:"transaction_amount,omitempty"`
	PaymentMode       string             `bson:"payment_mode,omitempty"                json:"payment_mode,omitempty"`
	PaymentDetails    string             `bson:"payment_details,omitempty"             json:"payment_details,omitempty"`
	BankReference     string             `bson:"bank_reference,omitempty"              json:"bank_reference,omitempty"`
	PaymentMessage    string             `bson:"payment_message,omitempty"             json:"payment_message,omitempty"`
	Status            string             `bson:"status"                                json:"status"`
	ErrorMessage      string             `bson:"error_message,omitempty"               json:"error_message,omitempty"`
	PaymentTime       *time.Time         `bson:"payment_time,omitempty"                json:"payment_time,omitempty"`
	Gateway           string             `bson:"gateway,omitempty"                     json:"gateway,omitempty"`
	VendorAmount      *float64           `bson:"vendor_amount,omitempty"               json:"vendor_amount,omitempty"`
	CaptureStatus     string             `bson:"capture_status,omitempty"              json:"capture_status,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"                            json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"                            json:"updated_at"`
}
