package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultGateway is the collect-request gateway orders are routed through.
const DefaultGateway = "EDV"

// SimulatedGateway marks orders written by simulation mode.
const SimulatedGateway = "FAKE"

// StudentInfo is embedded in an Order; it has no independent lifecycle.
type StudentInfo struct {
	Name  string `bson:"name"            json:"name"`
	ID    string `bson:"id"              json:"id"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Order identifies one payment attempt. Write-once: the amount and the
// custom order id are never mutated after creation, and orders are never
// deleted.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"        json:"_id"`
	SchoolID      string             `bson:"school_id"            json:"school_id"`
	TrusteeID     string             `bson:"trustee_id,omitempty" json:"trustee_id,omitempty"`
	StudentInfo   StudentInfo        `bson:"student_info"         json:"student_info"`
	GatewayName   string             `bson:"gateway_name"         json:"gateway_name"`
	CustomOrderID string             `bson:"custom_order_id"      json:"custom_order_id"`
	OrderAmount   float64            `bson:"order_amount"         json:"order_amount"`
	CreatedAt     time.Time          `bson:"created_at"           json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"           json:"updated_at"`
}
