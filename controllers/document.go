// controllers/document.go
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
)

// DocumentController handles KYC document uploads and review
type DocumentController struct {
	UserCollection  *mongo.Collection
	GuestCollection *mongo.Collection
	Uploader        *utils.Uploader
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(client *mongo.Client, uploader *utils.Uploader) *DocumentController {
	db := client.Database(utils.DatabaseName)
	return &DocumentController{
		UserCollection:  db.Collection("users"),
		GuestCollection: db.Collection("guest_documents"),
		Uploader:        uploader,
	}
}

// UploadDocument attaches a KYC document to the authenticated user and
// moves their verification status back to pending review.
func (dc *DocumentController) UploadDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	docType := r.FormValue("type")
	if docType == "" {
		http.Error(w, "Document type is required", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "Failed to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = dc.UserCollection.FindOne(ctx, bson.M{"email": claims.Email}).Decode(&user)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	fileURL, err := dc.Uploader.Upload(ctx, file, handler.Filename, "documents")
	if err != nil {
		http.Error(w, "Failed to store document", http.StatusInternalServerError)
		return
	}

	doc := models.Document{
		ID:         primitive.NewObjectID(),
		Type:       docType,
		FileURL:    fileURL,
		Status:     models.DocumentPending,
		UploadedAt: time.Now(),
	}
	user.Documents = append(user.Documents, doc)
	user.RecomputeVerification()

	_, err = dc.UserCollection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"documents":           user.Documents,
		"documents_verified":  user.DocumentsVerified,
		"verification_status": user.VerificationStatus,
	}})
	if err != nil {
		http.Error(w, "Failed to save document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

// UploadGuestDocument stores a KYC document for a guest checkout, keyed by
// the order reference. Records expire after 30 days via the TTL index.
func (dc *DocumentController) UploadGuestDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	orderRef := r.FormValue("order_ref")
	docType := r.FormValue("type")
	if orderRef == "" || docType == "" {
		http.Error(w, "Order reference and document type are required", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "Failed to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fileURL, err := dc.Uploader.Upload(ctx, file, handler.Filename, "documents")
	if err != nil {
		http.Error(w, "Failed to store document", http.StatusInternalServerError)
		return
	}

	doc := models.GuestDocument{
		OrderRef:  orderRef,
		Type:      docType,
		FileURL:   fileURL,
		Status:    models.DocumentPending,
		CreatedAt: time.Now(),
	}

	result, err := dc.GuestCollection.InsertOne(ctx, doc)
	if err != nil {
		http.Error(w, "Failed to save document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"document_id": result.InsertedID,
		"message":     "Document uploaded; awaiting review",
	})
}

// ListPendingDocuments returns users with documents awaiting review plus
// pending guest documents (Admin only)
func (dc *DocumentController) ListPendingDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := dc.UserCollection.Find(ctx, bson.M{"documents.status": models.DocumentPending})
	if err != nil {
		http.Error(w, "Error fetching documents", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var user models.User
		cursor.Decode(&user)
		user.Password = ""
		users = append(users, user)
	}
	if err := cursor.Err(); err != nil {
		http.Error(w, "Error reading documents", http.StatusInternalServerError)
		return
	}

	guestCursor, err := dc.GuestCollection.Find(ctx, bson.M{"status": models.DocumentPending})
	if err != nil {
		http.Error(w, "Error fetching guest documents", http.StatusInternalServerError)
		return
	}
	defer guestCursor.Close(ctx)

	var guestDocs []models.GuestDocument
	for guestCursor.Next(ctx) {
		var doc models.GuestDocument
		guestCursor.Decode(&doc)
		guestDocs = append(guestDocs, doc)
	}
	if err := guestCursor.Err(); err != nil {
		http.Error(w, "Error reading guest documents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"users":           users,
		"guest_documents": guestDocs,
	})
}

// ReviewDocument approves or rejects one of a user's documents and
// recomputes the user's verification status (Admin only)
func (dc *DocumentController) ReviewDocument(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	userID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	docID, err := primitive.ObjectIDFromHex(params["docId"])
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Status != models.DocumentApproved && body.Status != models.DocumentRejected {
		http.Error(w, "Invalid document status", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = dc.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	found := false
	now := time.Now()
	for i := range user.Documents {
		if user.Documents[i].ID == docID {
			user.Documents[i].Status = body.Status
			user.Documents[i].ReviewedAt = &now
			found = true
			break
		}
	}
	if !found {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}

	user.RecomputeVerification()

	_, err = dc.UserCollection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"documents":           user.Documents,
		"documents_verified":  user.DocumentsVerified,
		"verification_status": user.VerificationStatus,
	}})
	if err != nil {
		http.Error(w, "Failed to update document", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"message":             "Document reviewed",
		"verification_status": user.VerificationStatus,
	})
}
