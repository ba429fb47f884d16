package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/config"
	"restaurant_portal/internal/handlers"
	"restaurant_portal/internal/redis"
	"restaurant_portal/internal/services"
	"restaurant_portal/internal/validation"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP service",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			log.Fatal("Failed to load configuration:", err)
		}
		serve(cfg)
	},
}

func init() {
	serveCmd.Flags().String("server-port", "", "port to listen on")
	serveCmd.Flags().String("redis-url", "", "redis connection url")
	serveCmd.Flags().String("gin-mode", "", "gin mode (debug, release, test)")
}

func serve(cfg *config.Config) {
	appLog := logger.NewLogger("portal")

	// Initialize Redis
	cache, err := redis.Initialize(cfg.RedisURL, appLog.With("redis"))
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer cache.Close()

	// Upstream API and chat socket
	api := foodapi.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	dial := chat.WebSocketDialer(cfg.SocketURL)

	// Initialize services
	authService := services.NewAuthService(api, cache, cfg.SessionTimeout, appLog.With("auth"))
	orderService := services.NewOrderService(api, cache, cfg.OrderHistoryTTL, appLog.With("orders"))
	restaurantService := services.NewRestaurantService(api, orderService, cache, cfg.CacheTTL, appLog.With("restaurants"))
	chatService := services.NewChatService(api, dial, appLog.With("chat"),
		chat.WithTypingTimeout(cfg.TypingTimeout),
		chat.WithReconnect(cfg.ReconnectAttempts, cfg.ReconnectDelay),
	)
	defer chatService.Shutdown()

	expiryCtx, stopExpiry := context.WithCancel(context.Background())
	defer stopExpiry()
	go chatService.RunExpiry(expiryCtx, time.Minute)

	// Initialize handlers
	validate := validation.New()
	apiHandler := handlers.NewAPIHandler(authService, restaurantService, orderService, chatService, validate, appLog.With("api"))
	chatHandler := handlers.NewChatHandler(chatService, authService, validate, appLog.With("api"))

	// Setup routes
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	handlers.SetupRoutes(router, apiHandler, chatHandler, authService, appLog.With("api"))

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
