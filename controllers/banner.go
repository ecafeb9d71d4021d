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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BannerController handles storefront banner CRUD
type BannerController struct {
	Collection *mongo.Collection
	Uploader   *utils.Uploader
}

// NewBannerController creates a new BannerController
func NewBannerController(client *mongo.Client, uploader *utils.Uploader) *BannerController {
	return &BannerController{
		Collection: client.Database(utils.DatabaseName).Collection("banners"),
		Uploader:   uploader,
	}
}

// GetBanners lists active banners ordered by position
func (bc *BannerController) GetBanners(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := bc.Collection.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		http.Error(w, "Error fetching banners", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var banners []models.Banner
	for cursor.Next(ctx) {
		var banner models.Banner
		cursor.Decode(&banner)
		banners = append(banners, banner)
	}
	if err := cursor.Err(); err != nil {
		http.Error(w, "Error reading banners", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(banners)
}

// CreateBanner adds a banner (Admin only)
func (bc *BannerController) CreateBanner(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Banner image is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	imageURL, err := bc.Uploader.Upload(ctx, file, handler.Filename, "banners")
	if err != nil {
		http.Error(w, "Failed to store banner image", http.StatusInternalServerError)
		return
	}

	position, _ := strconv.Atoi(r.FormValue("position"))
	banner := models.Banner{
		Title:    r.FormValue("title"),
		ImageURL: imageURL,
		LinkURL:  r.FormValue("link_url"),
		Active:   r.FormValue("active") != "false",
		Position: position,
	}

	result, err := bc.Collection.InsertOne(ctx, banner)
	if err != nil {
		http.Error(w, "Error creating banner", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// UpdateBanner edits banner fields (Admin only)
func (bc *BannerController) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid banner ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Title    *string `json:"title"`
		LinkURL  *string `json:"link_url"`
		Active   *bool   `json:"active"`
		Position *int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	update := bson.M{}
	if body.Title != nil {
		update["title"] = *body.Title
	}
	if body.LinkURL != nil {
		update["link_url"] = *body.LinkURL
	}
	if body.Active != nil {
		update["active"] = *body.Active
	}
	if body.Position != nil {
		update["position"] = *body.Position
	}
	if len(update) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := bc.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		http.Error(w, "Error updating banner", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Banner not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// DeleteBanner removes a banner (Admin only)
func (bc *BannerController) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid banner ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := bc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		http.Error(w, "Error deleting banner", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(result)
}
