package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GuestDocument is a KYC file uploaded during guest checkout. It lives in
// its own collection keyed by the order reference string and is removed by
// a 30-day TTL index on created_at.
type GuestDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderRef  string             `bson:"order_ref" json:"order_ref"`
	Type      string             `bson:"type" json:"type"`
	FileURL   string             `bson:"file_url" json:"file_url"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
