// routes/routes.go
package routes

import (
	"net/http"

	"installmart/controllers"
	"installmart/middleware"

	"github.com/gorilla/mux"
)

// Controllers bundles everything RegisterRoutes wires up.
type Controllers struct {
	User     *controllers.UserController
	Product  *controllers.ProductController
	Category *controllers.CategoryController
	Banner   *controllers.BannerController
	Order    *controllers.OrderController
	Payment  *controllers.PaymentController
	Wishlist *controllers.WishlistController
	Document *controllers.DocumentController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers) {
	api := router.PathPrefix("/api").Subrouter()

	// Auth
	api.HandleFunc("/auth/register", c.User.Register).Methods("POST")
	api.HandleFunc("/auth/login", c.User.Login).Methods("POST")

	// Public catalog
	api.HandleFunc("/products", c.Product.GetProducts).Methods("GET")
	api.HandleFunc("/products/{id}", c.Product.GetProductByID).Methods("GET")
	api.HandleFunc("/categories", c.Category.GetCategories).Methods("GET")
	api.HandleFunc("/banners", c.Banner.GetBanners).Methods("GET")

	// Guest checkout
	api.HandleFunc("/orders/guest", c.Order.CreateGuestOrder).Methods("POST")
	api.HandleFunc("/documents/guest", c.Document.UploadGuestDocument).Methods("POST")

	// Gateway callbacks are public; the adapters authenticate them.
	api.HandleFunc("/payment/safepay/callback", c.Payment.SafePayCallback).Methods("GET")
	api.HandleFunc("/payment/payfast/callback", c.Payment.PayFastCallback).Methods("POST")
	api.HandleFunc("/payment/mock/callback", c.Payment.MockCallback).Methods("GET")

	// Authenticated routes
	protected := api.PathPrefix("/").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/profile", c.User.GetProfile).Methods("GET")
	protected.HandleFunc("/orders", c.Order.CreateOrder).Methods("POST")
	protected.HandleFunc("/orders", c.Order.GetOrders).Methods("GET")
	protected.HandleFunc("/orders/{id}", c.Order.GetOrderByID).Methods("GET")
	protected.HandleFunc("/payment/initialize", c.Payment.InitializePayment).Methods("POST")
	protected.HandleFunc("/payment/proof", c.Payment.UploadPaymentProof).Methods("POST")
	protected.HandleFunc("/wishlist", c.Wishlist.GetWishlist).Methods("GET")
	protected.HandleFunc("/wishlist", c.Wishlist.AddToWishlist).Methods("POST")
	protected.HandleFunc("/wishlist/{productId}", c.Wishlist.RemoveFromWishlist).Methods("DELETE")
	protected.HandleFunc("/documents", c.Document.UploadDocument).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("/products", c.Product.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/{id}", c.Product.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/products/{id}", c.Product.DeleteProduct).Methods("DELETE")
	admin.HandleFunc("/categories", c.Category.CreateCategory).Methods("POST")
	admin.HandleFunc("/categories/{id}", c.Category.UpdateCategory).Methods("PUT")
	admin.HandleFunc("/categories/{id}", c.Category.DeleteCategory).Methods("DELETE")
	admin.HandleFunc("/categories/{id}/subcategories", c.Category.AddSubcategory).Methods("POST")
	admin.HandleFunc("/categories/{id}/subcategories/{subId}", c.Category.RemoveSubcategory).Methods("DELETE")
	admin.HandleFunc("/banners", c.Banner.CreateBanner).Methods("POST")
	admin.HandleFunc("/banners/{id}", c.Banner.UpdateBanner).Methods("PUT")
	admin.HandleFunc("/banners/{id}", c.Banner.DeleteBanner).Methods("DELETE")
	admin.HandleFunc("/orders", c.Order.ListAllOrders).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", c.Order.UpdateOrderStatus).Methods("PATCH")
	admin.HandleFunc("/orders/{id}/payment-status", c.Order.UpdateOrderPaymentStatus).Methods("PATCH")
	admin.HandleFunc("/orders/{id}/installments/{seq}", c.Order.UpdateInstallmentStatus).Methods("PATCH")
	admin.HandleFunc("/documents/pending", c.Document.ListPendingDocuments).Methods("GET")
	admin.HandleFunc("/users/{id}/documents/{docId}", c.Document.ReviewDocument).Methods("PATCH")

	// Locally stored uploads are served statically.
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir("uploads"))))
}
