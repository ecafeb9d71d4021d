package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"installmart/middleware"
	"installmart/models"
	"installmart/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WishlistController handles wishlist requests
type WishlistController struct {
	Collection *mongo.Collection
}

// NewWishlistController creates a new WishlistController
func NewWishlistController(client *mongo.Client) *WishlistController {
	return &WishlistController{
		Collection: client.Database(utils.DatabaseName).Collection("wishlists"),
	}
}

func (wc *WishlistController) userID(r *http.Request) (primitive.ObjectID, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// GetWishlist retrieves the user's wishlist
func (wc *WishlistController) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := wc.userID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wishlist models.Wishlist
	err := wc.Collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&wishlist)
	if err != nil {
		wishlist = models.Wishlist{UserID: userID, ProductIDs: []primitive.ObjectID{}}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wishlist)
}

// AddToWishlist adds a product to the user's wishlist
func (wc *WishlistController) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := wc.userID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	productID, err := primitive.ObjectIDFromHex(body.ProductID)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Upsert keeps one wishlist per user; $addToSet keeps products unique.
	_, err = wc.Collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$addToSet": bson.M{"product_ids": productID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		http.Error(w, "Error updating wishlist", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Product added to wishlist"})
}

// RemoveFromWishlist removes a product from the user's wishlist
func (wc *WishlistController) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := wc.userID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	params := mux.Vars(r)
	productID, err := primitive.ObjectIDFromHex(params["productId"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = wc.Collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$pull": bson.M{"product_ids": productID}},
	)
	if err != nil {
		http.Error(w, "Error updating wishlist", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Product removed from wishlist"})
}
