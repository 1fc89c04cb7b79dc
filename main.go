package main

import (
	"PinguinGuard/clock"
	"PinguinGuard/config"
	"PinguinGuard/controllers"
	"PinguinGuard/interfaces"
	"PinguinGuard/metrics"
	"PinguinGuard/repositories/impl"
	"PinguinGuard/routes"
	"PinguinGuard/services"
	"PinguinGuard/websocket"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	// Initialize database and Firebase
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	config.DB = db

	firebaseApp, firebaseAuth, err := config.InitFirebase(cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации Firebase: %v", err)
	}
	config.FirebaseApp, config.FirebaseAuth = firebaseApp, firebaseAuth

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	parentRepo := impl.NewParentRepository(db)
	childRepo := impl.NewChildRepository(db)
	directory := impl.NewChildDirectory(db)
	store := impl.NewStore(db)

	var gatherer prometheus.Gatherer
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)
		gatherer = registry
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	notifiers := []interfaces.ProposalNotifier{hub}

	translationService := services.NewTranslationService(db)
	if firebaseApp != nil {
		notificationService, err := services.NewNotificationService(firebaseApp, translationService, parentRepo, childRepo, directory)
		if err != nil {
			log.Printf("[FCM] Push-уведомления отключены: %v", err)
		} else {
			notifiers = append(notifiers, notificationService)
		}
	}

	// Initialize services
	var verifier services.IDTokenVerifier
	if firebaseAuth != nil {
		verifier = firebaseAuth
	}
	authService := services.NewAuthService(parentRepo, childRepo, verifier, cfg.JWTSecret, cfg.TokenTTL)

	proposalService := services.NewProposalService(store, directory, clock.Real())
	proposalService.Metrics = m
	proposalService.Notifiers = notifiers

	permissionGuard := services.NewPermissionChangeGuard(directory, impl.NewAuditRepository(db), clock.Real())
	permissionGuard.Metrics = m
	permissionGuard.Notifiers = notifiers

	sweeper := services.NewSweeper(proposalService, cfg.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// Set services in controllers
	controllers.SetAuthService(authService)
	controllers.SetProposalService(proposalService)
	controllers.SetPermissionGuard(permissionGuard)
	controllers.SetTranslationService(translationService)
	controllers.SetWebSocketHub(hub)

	// Initialize Gin router
	r := gin.Default()
	routes.RegisterRoutes(r, authService, gatherer)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Ошибка остановки сервера: %v", err)
		}
	}()

	log.Printf("Сервер запущен на порту %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Ошибка сервера: %v", err)
	}
}
