// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"installmart/controllers"
	"installmart/gateway"
	"installmart/routes"
	"installmart/scheduler"
	"installmart/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	// Set the JWT secret key
	utils.JwtKey = []byte(os.Getenv("JWT_SECRET"))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	// Connect to MongoDB
	client := utils.ConnectDB()
	defer func() {
		if err = client.Disconnect(context.TODO()); err != nil {
			log.Fatal(err)
		}
	}()
	if err := utils.EnsureIndexes(client); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Shared services
	emailService := utils.NewEmailService()
	uploader := utils.NewUploader()
	gateways := gateway.NewRegistry(baseURL)

	// Initialize controllers
	c := routes.Controllers{
		User:     controllers.NewUserController(client),
		Product:  controllers.NewProductController(client, uploader),
		Category: controllers.NewCategoryController(client, uploader),
		Banner:   controllers.NewBannerController(client, uploader),
		Order:    controllers.NewOrderController(client, emailService),
		Payment:  controllers.NewPaymentController(client, gateways, emailService, uploader),
		Wishlist: controllers.NewWishlistController(client),
		Document: controllers.NewDocumentController(client, uploader),
	}

	// Start the daily batch jobs
	sched := scheduler.New(client, emailService)
	sched.Start()
	defer sched.Stop()

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, c)

	fmt.Printf("Server is running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
