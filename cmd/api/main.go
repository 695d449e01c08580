package main

import (
	"context"
	"log"
	"time"

	_ "billing-backend/api/swagger" // swagger docs
	"billing-backend/internal/config"
	"billing-backend/internal/database"
	"billing-backend/internal/handler"
	"billing-backend/internal/middleware"
	"billing-backend/internal/repository"
	"billing-backend/internal/service"
	"billing-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Billing API
// @version         1.0
// @description     Devis and facture management API: sequential numbering, payment ledger, late-payment penalties.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	srvCfg := config.LoadServer()
	billingCfg := config.Load()

	db, err := database.NewConnection(srvCfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	chantierRepo := repository.NewChantierRepository(db)
	devisRepo := repository.NewDevisRepository(db)
	factureRepo := repository.NewFactureRepository(db)
	ligneRepo := repository.NewLigneRepository(db)
	paiementRepo := repository.NewPaiementRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	allocator := service.NewNumeroAllocator(billingCfg.DevisNumbering, billingCfg.FactureNumbering, devisRepo, factureRepo)

	userService := service.NewUserService(userRepo)
	chantierService := service.NewChantierService(chantierRepo)
	devisService := service.NewDevisService(devisRepo, ligneRepo, chantierRepo, txManager, allocator, billingCfg, wsHub, auditRepo)
	factureService := service.NewFactureService(factureRepo, ligneRepo, paiementRepo, chantierRepo, txManager, allocator, billingCfg, wsHub, auditRepo)
	conversionService := service.NewConversionService(devisRepo, factureRepo, ligneRepo, txManager, allocator, billingCfg, wsHub, auditRepo)
	paiementService := service.NewPaiementService(paiementRepo, factureRepo, txManager, billingCfg, wsHub, auditRepo)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	chantierHandler := handler.NewChantierHandler(chantierService)
	devisHandler := handler.NewDevisHandler(devisService, conversionService)
	factureHandler := handler.NewFactureHandler(factureService)
	paiementHandler := handler.NewPaiementHandler(paiementService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Background sweeps: expire stale devis, mark overdue factures
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := devisService.ExpireStale(ctx); err != nil {
				log.Printf("devis expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("devis expiry sweep: %d expired", n)
			}
			if n, err := factureService.RefreshOverdue(ctx); err != nil {
				log.Printf("facture overdue sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("facture overdue sweep: %d marked en_retard", n)
			}
			cancel()
		}
	}()

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = srvCfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	chantierHandler.RegisterRoutes(router.Group(""))
	devisHandler.RegisterRoutes(router.Group(""))
	factureHandler.RegisterRoutes(router.Group(""))
	paiementHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", srvCfg.Port)
	if err := router.Run(":" + srvCfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
