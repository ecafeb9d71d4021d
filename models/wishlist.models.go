package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wishlist represents a user's saved products
type Wishlist struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserID     primitive.ObjectID   `bson:"user_id" json:"user_id"`
	ProductIDs []primitive.ObjectID `bson:"product_ids" json:"product_ids"`
}
