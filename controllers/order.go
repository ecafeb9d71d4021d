// controllers/order.go
package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"installmart/middleware"
	"installmart/models"
	"installmart/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// OrderController handles order-related requests
type OrderController struct {
	OrderCollection   *mongo.Collection
	ProductCollection *mongo.Collection
	UserCollection    *mongo.Collection
	EmailService      *utils.EmailService
	validate          *validator.Validate
}

// NewOrderController creates a new OrderController
func NewOrderController(client *mongo.Client, emailService *utils.EmailService) *OrderController {
	db := client.Database(utils.DatabaseName)
	return &OrderController{
		OrderCollection:   db.Collection("orders"),
		ProductCollection: db.Collection("products"),
		UserCollection:    db.Collection("users"),
		EmailService:      emailService,
		validate:          validator.New(),
	}
}

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items             []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	InstallmentMonths int                `json:"installment_months" validate:"required,oneof=3 6 12 18"`
	ShippingAddress   models.Address     `json:"shipping_address"`
	Phone             string             `json:"phone" validate:"required"`
	PaymentMethod     string             `json:"payment_method" validate:"required"`
	GuestEmail        string             `json:"guest_email" validate:"omitempty,email"`
}

// buildOrder validates the request against the catalog, reserves stock and
// assembles the order document with its installment schedule. Stock is
// decremented with a stock >= quantity guard so concurrent checkouts cannot
// oversell.
func (oc *OrderController) buildOrder(ctx context.Context, req createOrderRequest) (*models.Order, int, error) {
	if !models.ValidMethod(req.PaymentMethod) {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid payment method")
	}
	if req.ShippingAddress.Street == "" || req.ShippingAddress.City == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("missing shipping fields")
	}

	var items []models.OrderItem
	total := 0.0
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid product ID %s", item.ProductID)
		}

		var product models.Product
		err = oc.ProductCollection.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err != nil {
			return nil, http.StatusNotFound, fmt.Errorf("product with ID %s not found", item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, http.StatusBadRequest, fmt.Errorf("insufficient stock for product: %s", product.Name)
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Category:  product.Category,
			ImageURL:  product.ImageURL,
		})
		total += product.Price * float64(item.Quantity)
	}

	// Reserve stock. The filter re-checks availability so a concurrent
	// checkout loses instead of overselling. If one item fails, the
	// quantities already taken are returned.
	var reserved []models.OrderItem
	for _, item := range items {
		result, err := oc.ProductCollection.UpdateOne(ctx,
			bson.M{"_id": item.ProductID, "stock": bson.M{"$gte": item.Quantity}},
			bson.M{"$inc": bson.M{"stock": -item.Quantity}},
		)
		if err != nil {
			oc.releaseStock(ctx, reserved)
			return nil, http.StatusInternalServerError, fmt.Errorf("failed to update product stock")
		}
		if result.MatchedCount == 0 {
			oc.releaseStock(ctx, reserved)
			return nil, http.StatusBadRequest, fmt.Errorf("insufficient stock for product: %s", item.Name)
		}
		reserved = append(reserved, item)
	}

	now := time.Now()
	installments, monthly, err := models.BuildInstallmentSchedule(total, req.InstallmentMonths, now)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	order := &models.Order{
		Items:             items,
		Total:             total,
		InstallmentMonths: req.InstallmentMonths,
		MonthlyPayment:    monthly,
		Status:            models.OrderPending,
		ShippingAddress:   req.ShippingAddress,
		Phone:             req.Phone,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     models.PaymentPending,
		Installments:      installments,
		NextDueDate:       &installments[0].DueDate,
		CreatedAt:         now,
	}
	return order, 0, nil
}

// releaseStock returns quantities reserved by a checkout that did not
// complete. Best effort: a failed release is logged, not surfaced.
func (oc *OrderController) releaseStock(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		_, err := oc.ProductCollection.UpdateOne(ctx,
			bson.M{"_id": item.ProductID},
			bson.M{"$inc": bson.M{"stock": item.Quantity}},
		)
		if err != nil {
			log.Printf("Failed to release stock for product %s: %v", item.ProductID.Hex(), err)
		}
	}
}

func (oc *OrderController) insertAndConfirm(ctx context.Context, w http.ResponseWriter, order *models.Order, email string) {
	result, err := oc.OrderCollection.InsertOne(ctx, order)
	if err != nil {
		http.Error(w, "Failed to create order", http.StatusInternalServerError)
		return
	}
	order.ID = result.InsertedID.(primitive.ObjectID)

	go func(email string, order models.Order) {
		if err := oc.EmailService.SendOrderConfirmation(email, order); err != nil {
			log.Printf("Failed to send order confirmation to %s: %v", email, err)
		}
	}(email, *order)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":        order.ID,
		"total":           order.Total,
		"monthly_payment": order.MonthlyPayment,
		"next_due_date":   order.NextDueDate,
		"message":         "Order created successfully",
	})
}

// CreateOrder creates a new order for the authenticated user
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := oc.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err := oc.UserCollection.FindOne(ctx, bson.M{"email": claims.Email}).Decode(&user)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	order, status, err := oc.buildOrder(ctx, req)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	order.UserID = user.ID

	oc.insertAndConfirm(ctx, w, order, user.Email)
}

// CreateGuestOrder creates an order without an account. The guest email is
// required since it is the only way to reach the buyer.
func (oc *OrderController) CreateGuestOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := oc.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.GuestEmail == "" {
		http.Error(w, "Guest email is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, status, err := oc.buildOrder(ctx, req)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	order.GuestEmail = req.GuestEmail

	oc.insertAndConfirm(ctx, w, order, req.GuestEmail)
}

// GetOrders retrieves all orders for the authenticated user
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := oc.OrderCollection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		http.Error(w, "Failed to retrieve orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			http.Error(w, "Error decoding order", http.StatusInternalServerError)
			return
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		http.Error(w, "Cursor error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetOrderByID retrieves one order; customers only see their own
func (oc *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	params := mux.Vars(r)
	orderID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var order models.Order
	err = oc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	if claims.Role != "admin" && order.UserID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// ListAllOrders retrieves every order (Admin only)
func (oc *OrderController) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	cursor, err := oc.OrderCollection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "Failed to retrieve orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			http.Error(w, "Error decoding order", http.StatusInternalServerError)
			return
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		http.Error(w, "Cursor error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// UpdateOrderStatus moves an order through pending/approved/shipped (Admin only)
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	orderID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Status != models.OrderPending && body.Status != models.OrderApproved && body.Status != models.OrderShipped {
		http.Error(w, "Invalid order status", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := oc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{"status": body.Status}})
	if err != nil {
		http.Error(w, "Failed to update order status", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Order status updated successfully"})
}

// UpdateOrderPaymentStatus records the manual review outcome of a
// bank-transfer proof (Admin only)
func (oc *OrderController) UpdateOrderPaymentStatus(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	orderID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var body struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.PaymentStatus != models.PaymentVerified && body.PaymentStatus != models.PaymentRejected {
		http.Error(w, "Invalid payment status", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := oc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{"payment_status": body.PaymentStatus}})
	if err != nil {
		http.Error(w, "Failed to update payment status", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	// Tell the buyer how the review went; best effort.
	var order models.Order
	if err := oc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err == nil {
		if email := oc.recipient(ctx, order); email != "" {
			go func() {
				subject := "Payment Review - InstallMart"
				content := fmt.Sprintf("Your bank transfer for order %s has been %s.", orderID.Hex(), body.PaymentStatus)
				if err := oc.EmailService.SendEmail(email, subject, content); err != nil {
					log.Printf("Failed to send email to %s: %v", email, err)
				}
			}()
		}
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Payment status updated successfully"})
}

// UpdateInstallmentStatus marks one installment paid by hand, e.g. after a
// verified bank transfer (Admin only)
func (oc *OrderController) UpdateInstallmentStatus(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	orderID, err := primitive.ObjectIDFromHex(params["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}
	seq, err := strconv.Atoi(params["seq"])
	if err != nil {
		http.Error(w, "Invalid installment number", http.StatusBadRequest)
		return
	}

	var body struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	err = oc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	err = order.MarkInstallmentPaid(seq, body.TransactionID, time.Now())
	if err == models.ErrInstallmentNotFound {
		http.Error(w, "Installment not found", http.StatusNotFound)
		return
	}
	if err == models.ErrInstallmentAlreadyPaid {
		http.Error(w, "Installment already paid", http.StatusBadRequest)
		return
	}

	_, err = oc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{
		"installments":  order.Installments,
		"next_due_date": order.NextDueDate,
	}})
	if err != nil {
		http.Error(w, "Failed to update installment", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Installment marked paid"})
}

// recipient resolves the notification address for an order.
func (oc *OrderController) recipient(ctx context.Context, order models.Order) string {
	if order.GuestEmail != "" {
		return order.GuestEmail
	}
	var user models.User
	if err := oc.UserCollection.FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&user); err != nil {
		return ""
	}
	return user.Email
}
