package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"meridian-pos/config"
	"meridian-pos/internal/cart"
	"meridian-pos/internal/database"
	"meridian-pos/internal/gateway/handlers"
	"meridian-pos/internal/gateway/middleware"
	"meridian-pos/internal/pos"
	"meridian-pos/internal/store/gormstore"
	"meridian-pos/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	posService := pos.NewService(gormstore.New(db, cfg.POS.LockTimeoutMS))
	carts := cart.NewRedisStore(redisClient, time.Duration(cfg.POS.CartTTLHours)*time.Hour)

	authHandler := handlers.NewAuthHTTPHandler(db, time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)
	inventoryHandler := handlers.NewInventoryHTTPHandler(db, redisClient, posService)
	salesHandler := handlers.NewSalesHTTPHandler(db, carts, posService)
	paymentsHandler := handlers.NewPaymentsHTTPHandler(db, posService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit))

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		inventory := protected.Group("/inventory")
		{
			inventory.POST("/products", inventoryHandler.CreateProduct)
			inventory.GET("/products", inventoryHandler.ListProducts)
			inventory.GET("/products/:id", inventoryHandler.GetProduct)
			inventory.PUT("/products/:id", inventoryHandler.UpdateProduct)
			inventory.DELETE("/products/:id", inventoryHandler.DeleteProduct)

			inventory.POST("/categories", inventoryHandler.CreateCategory)
			inventory.GET("/categories", inventoryHandler.ListCategories)
			inventory.POST("/brands", inventoryHandler.CreateBrand)
			inventory.GET("/brands", inventoryHandler.ListBrands)

			inventory.GET("/stocks", inventoryHandler.ListStocks)
			inventory.GET("/movements", inventoryHandler.ListMovements)
			inventory.POST("/movements",
				middleware.RequireRole("admin", "manager", "staff"),
				inventoryHandler.CreateMovement)
			inventory.POST("/transfers",
				middleware.RequireRole("admin", "manager", "staff"),
				inventoryHandler.TransferStock)
		}

		branches := protected.Group("/branches")
		{
			branches.POST("", middleware.RequireRole("admin"), inventoryHandler.CreateBranch)
			branches.GET("", inventoryHandler.ListBranches)
			branches.GET("/:id", inventoryHandler.GetBranch)
		}

		customers := protected.Group("/customers")
		{
			customers.GET("", salesHandler.ListCustomers)
			customers.GET("/:id", salesHandler.GetCustomer)
		}

		posGroup := protected.Group("/pos")
		{
			posGroup.GET("/cart", salesHandler.GetCart)
			posGroup.POST("/cart/items", salesHandler.AddCartItem)
			posGroup.PUT("/cart/items/:product_id", salesHandler.UpdateCartItem)
			posGroup.DELETE("/cart/items/:product_id", salesHandler.RemoveCartItem)
			posGroup.DELETE("/cart", salesHandler.ClearCart)

			posGroup.POST("/checkout", salesHandler.Checkout)
			posGroup.GET("/sales", salesHandler.ListSales)
			posGroup.GET("/sales/:id", salesHandler.GetSale)
			posGroup.GET("/summary", salesHandler.SalesSummary)
		}

		payments := protected.Group("/payments")
		{
			payments.POST("/methods", middleware.RequireRole("admin", "manager"), paymentsHandler.CreatePaymentMethod)
			payments.GET("/methods", paymentsHandler.ListPaymentMethods)
			payments.GET("", paymentsHandler.ListPayments)
			payments.GET("/:id", paymentsHandler.GetPayment)
		}

		refunds := protected.Group("/refunds")
		refunds.Use(middleware.RequireRole("admin", "manager"))
		{
			refunds.POST("", paymentsHandler.CreateRefund)
			refunds.GET("", paymentsHandler.ListRefunds)
			refunds.PUT("/:id", paymentsHandler.UpdateRefund)
			refunds.DELETE("/:id", paymentsHandler.DeleteRefund)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
