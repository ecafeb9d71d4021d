package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"installmart/models"
	"installmart/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductController handles product-related requests
type ProductController struct {
	Collection *mongo.Collection
	Uploader   *utils.Uploader
}

// NewProductController creates a new ProductController
func NewProductController(client *mongo.Client, uploader *utils.Uploader) *ProductController {
	return &ProductController{
		Collection: client.Database(utils.DatabaseName).Collection("products"),
		Uploader:   uploader,
	}
}

// GetProducts retrieves products, optionally filtered by category or a
// name search
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if category := r.URL.Query().Get("category"); category != "" {
		filter["category"] = category
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["name"] = bson.M{"$regex": search, "$options": "i"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := pc.Collection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var products []models.Product
	for cursor.Next(ctx) {
		var product models.Product
		cursor.Decode(&product)
		products = append(products, product)
	}
	if err := cursor.Err(); err != nil {
		http.Error(w, "Error reading products", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(products)
}

// GetProductByID retrieves a single product by ID
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var product models.Product
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = pc.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(product)
}

// parseProductForm reads the multipart fields shared by create and update.
func (pc *ProductController) parseProductForm(r *http.Request) (models.Product, error) {
	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		return models.Product{}, err
	}
	stock, err := strconv.Atoi(r.FormValue("stock"))
	if err != nil {
		return models.Product{}, err
	}
	return models.Product{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Stock:       stock,
		Category:    r.FormValue("category"),
		Subcategory: r.FormValue("subcategory"),
	}, nil
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	product, err := pc.parseProductForm(r)
	if err != nil {
		http.Error(w, "Invalid price or stock", http.StatusBadRequest)
		return
	}
	if product.Name == "" || product.Category == "" {
		http.Error(w, "Name and category are required", http.StatusBadRequest)
		return
	}
	product.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if file, handler, err := r.FormFile("image"); err == nil {
		defer file.Close()
		imageURL, err := pc.Uploader.Upload(ctx, file, handler.Filename, "products")
		if err != nil {
			http.Error(w, "Failed to store product image", http.StatusInternalServerError)
			return
		}
		product.ImageURL = imageURL
	}

	result, err := pc.Collection.InsertOne(ctx, product)
	if err != nil {
		http.Error(w, "Error creating product", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// UpdateProduct handles updating a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	product, err := pc.parseProductForm(r)
	if err != nil {
		http.Error(w, "Invalid price or stock", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"stock":       product.Stock,
		"category":    product.Category,
		"subcategory": product.Subcategory,
	}

	if file, handler, err := r.FormFile("image"); err == nil {
		defer file.Close()
		imageURL, err := pc.Uploader.Upload(ctx, file, handler.Filename, "products")
		if err != nil {
			http.Error(w, "Failed to store product image", http.StatusInternalServerError)
			return
		}
		update["image_url"] = imageURL
	}

	result, err := pc.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		http.Error(w, "Error updating product", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// DeleteProduct handles deleting a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := pc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		http.Error(w, "Error deleting product", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(result)
}
