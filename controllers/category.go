package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"installmart/models"
	"installmart/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CategoryController handles category CRUD
type CategoryController struct {
	Collection *mongo.Collection
	Uploader   *utils.Uploader
}

// NewCategoryController creates a new CategoryController
func NewCategoryController(client *mongo.Client, uploader *utils.Uploader) *CategoryController {
	return &CategoryController{
		Collection: client.Database(utils.DatabaseName).Collection("categories"),
		Uploader:   uploader,
	}
}

func slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

// GetCategories lists all categories with their subcategories
func (cc *CategoryController) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := cc.Collection.Find(ctx, bson.M{})
	if err != nil {
		http.Error(w, "Error fetching categories", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	for cursor.Next(ctx) {
		var category models.Category
		cursor.Decode(&category)
		categories = append(categories, category)
	}
	if err := cursor.Err(); err != nil {
		http.Error(w, "Error reading categories", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

// CreateCategory adds a new category (Admin only)
func (cc *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	category := models.Category{
		Name: name,
		Slug: slugify(name),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if file, handler, err := r.FormFile("image"); err == nil {
		defer file.Close()
		imageURL, err := cc.Uploader.Upload(ctx, file, handler.Filename, "categories")
		if err != nil {
			http.Error(w, "Failed to store category image", http.StatusInternalServerError)
			return
		}
		category.ImageURL = imageURL
	}

	result, err := cc.Collection.InsertOne(ctx, category)
	if err != nil {
		http.Error(w, "Error creating category", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// UpdateCategory renames a category (Admin only)
func (cc *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := cc.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name": body.Name,
		"slug": slugify(body.Name),
	}})
	if err != nil {
		http.Error(w, "Error updating category", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// DeleteCategory removes a category (Admin only)
func (cc *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := cc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		http.Error(w, "Error deleting category", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// AddSubcategory appends a subcategory to a category (Admin only)
func (cc *CategoryController) AddSubcategory(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	sub := models.Subcategory{
		ID:   primitive.NewObjectID(),
		Name: body.Name,
		Slug: slugify(body.Name),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := cc.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"subcategories": sub}})
	if err != nil {
		http.Error(w, "Error adding subcategory", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

// RemoveSubcategory deletes a subcategory from a category (Admin only)
func (cc *CategoryController) RemoveSubcategory(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}
	subID, err := primitive.ObjectIDFromHex(params["subId"])
	if err != nil {
		http.Error(w, "Invalid subcategory ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := cc.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"subcategories": bson.M{"_id": subID}}})
	if err != nil {
		http.Error(w, "Error removing subcategory", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Subcategory removed"})
}
