package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subcategory is embedded in its parent category
type Subcategory struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
	Slug string             `bson:"slug" json:"slug"`
}

// Category represents a catalog category with embedded subcategories
type Category struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	ImageURL      string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Subcategories []Subcategory      `bson:"subcategories,omitempty" json:"subcategories,omitempty"`
}
