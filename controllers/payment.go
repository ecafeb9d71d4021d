// controllers/payment.go
package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"installmart/gateway"
	"installmart/middleware"
	"installmart/models"
	"installmart/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PaymentController initiates gateway payments and processes callbacks
type PaymentController struct {
	OrderCollection *mongo.Collection
	UserCollection  *mongo.Collection
	Gateways        *gateway.Registry
	EmailService    *utils.EmailService
	Uploader        *utils.Uploader
	validate        *validator.Validate
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(client *mongo.Client, gateways *gateway.Registry, emailService *utils.EmailService, uploader *utils.Uploader) *PaymentController {
	db := client.Database(utils.DatabaseName)
	return &PaymentController{
		OrderCollection: db.Collection("orders"),
		UserCollection:  db.Collection("users"),
		Gateways:        gateways,
		EmailService:    emailService,
		Uploader:        uploader,
		validate:        validator.New(),
	}
}

type initializePaymentRequest struct {
	OrderID        string `json:"order_id" validate:"required"`
	InstallmentSeq int    `json:"installment_seq" validate:"required,min=1"`
}

// InitializePayment starts a gateway payment for one installment. Pending
// and overdue installments are both payable; paid ones are rejected.
func (pc *PaymentController) InitializePayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req initializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := pc.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	err = pc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if claims.Role != "admin" && order.UserID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	inst := order.FindInstallment(req.InstallmentSeq)
	if inst == nil {
		http.Error(w, "Installment not found", http.StatusNotFound)
		return
	}
	if inst.Status == models.InstallmentPaid {
		http.Error(w, "Installment already paid", http.StatusBadRequest)
		return
	}

	gw, err := pc.Gateways.ForMethod(order.PaymentMethod)
	if err == gateway.ErrManualMethod {
		http.Error(w, "Bank transfers are settled manually; upload a payment proof instead", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Invalid payment method", http.StatusBadRequest)
		return
	}

	session, err := gw.CreatePayment(gateway.PaymentRequest{
		OrderID:        order.ID.Hex(),
		InstallmentSeq: inst.Seq,
		Amount:         inst.Amount,
		Description:    "InstallMart installment payment",
		CustomerEmail:  pc.recipient(ctx, order),
		CustomerPhone:  order.Phone,
	})
	if err != nil {
		log.Printf("Failed to create %s payment for order %s: %v", gw.Name(), order.ID.Hex(), err)
		http.Error(w, "Failed to initialize payment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// SafePayCallback handles the signed GET redirect from the hosted checkout
func (pc *PaymentController) SafePayCallback(w http.ResponseWriter, r *http.Request) {
	gw, _ := pc.Gateways.ByName("safepay")
	pc.handleCallback(w, r, gw)
}

// PayFastCallback handles the signed form post from PayFast
func (pc *PaymentController) PayFastCallback(w http.ResponseWriter, r *http.Request) {
	gw, _ := pc.Gateways.ByName("payfast")
	pc.handleCallback(w, r, gw)
}

// MockCallback handles the local testing gateway
func (pc *PaymentController) MockCallback(w http.ResponseWriter, r *http.Request) {
	gw, _ := pc.Gateways.ByName("mock")
	pc.handleCallback(w, r, gw)
}

// handleCallback normalizes a gateway callback and applies the paid
// transition. Nothing is mutated unless the callback verifies.
func (pc *PaymentController) handleCallback(w http.ResponseWriter, r *http.Request, gw gateway.Gateway) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid callback", http.StatusBadRequest)
		return
	}

	result := gw.VerifyCallback(r.Form)
	if !result.Verified {
		log.Printf("Rejected %s callback for order %q: signature mismatch", gw.Name(), result.OrderID)
		http.Error(w, "Invalid callback signature", http.StatusBadRequest)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(result.OrderID)
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	err = pc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		log.Printf("%s callback for unknown order %s", gw.Name(), result.OrderID)
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	if !result.Success {
		log.Printf("%s payment failed for order %s installment %d", gw.Name(), result.OrderID, result.InstallmentSeq)
		json.NewEncoder(w).Encode(map[string]string{"message": "Payment was not successful"})
		return
	}

	err = order.MarkInstallmentPaid(result.InstallmentSeq, result.TransactionID, time.Now())
	if err == models.ErrInstallmentNotFound {
		http.Error(w, "Installment not found", http.StatusNotFound)
		return
	}
	if err == models.ErrInstallmentAlreadyPaid {
		// Gateways retry callbacks; a duplicate is not an error.
		json.NewEncoder(w).Encode(map[string]string{"message": "Payment already recorded"})
		return
	}

	_, err = pc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{
		"installments":  order.Installments,
		"next_due_date": order.NextDueDate,
	}})
	if err != nil {
		http.Error(w, "Failed to record payment", http.StatusInternalServerError)
		return
	}

	if email := pc.recipient(ctx, order); email != "" {
		inst := *order.FindInstallment(result.InstallmentSeq)
		go func(email string, order models.Order, inst models.Installment) {
			if err := pc.EmailService.SendPaymentConfirmation(email, order, inst); err != nil {
				log.Printf("Failed to send payment confirmation to %s: %v", email, err)
			}
		}(email, order, inst)
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Payment recorded successfully"})
}

// UploadPaymentProof attaches a bank-transfer receipt to an order. The
// payment stays pending until an admin reviews it.
func (pc *PaymentController) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(r.FormValue("order_id"))
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	err = pc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if order.UserID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if order.PaymentMethod != models.MethodBank {
		http.Error(w, "Payment proofs only apply to bank transfers", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("proof")
	if err != nil {
		http.Error(w, "Failed to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	proofURL, err := pc.Uploader.Upload(ctx, file, handler.Filename, "payments")
	if err != nil {
		http.Error(w, "Failed to store payment proof", http.StatusInternalServerError)
		return
	}

	_, err = pc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{
		"payment_reference": r.FormValue("reference"),
		"payment_proof_url": proofURL,
		"payment_status":    models.PaymentPending,
	}})
	if err != nil {
		http.Error(w, "Failed to update order", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Payment proof uploaded; awaiting review"})
}

func (pc *PaymentController) recipient(ctx context.Context, order models.Order) string {
	if order.GuestEmail != "" {
		return order.GuestEmail
	}
	var user models.User
	if err := pc.UserCollection.FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&user); err != nil {
		return ""
	}
	return user.Email
}
