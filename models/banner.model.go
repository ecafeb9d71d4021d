package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Banner represents a storefront promo banner
type Banner struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title    string             `bson:"title" json:"title"`
	ImageURL string             `bson:"image_url" json:"image_url"`
	LinkURL  string             `bson:"link_url,omitempty" json:"link_url,omitempty"`
	Active   bool               `bson:"active" json:"active"`
	Position int                `bson:"position" json:"position"`
}
