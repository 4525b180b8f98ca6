package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"studyhub-service/internal/auth"
	"studyhub-service/internal/config"
	"studyhub-service/internal/handlers"
	"studyhub-service/internal/kv"
	"studyhub-service/internal/middleware"
	"studyhub-service/internal/observability"
	"studyhub-service/internal/rabbitmq"
	"studyhub-service/internal/repositories"
	"studyhub-service/internal/telemetry"
	"studyhub-service/internal/ws"
)

const serviceName = "studyhub-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.OTLPEndpoint, serviceName, cfg.Telemetry.Environment)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	store, closeStore, err := connectStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to connect store: %v", err)
	}
	defer closeStore()

	if cfg.AMQP.URL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Printf("ws event publishing disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, observability.RoutingKeyAudit, serviceName, cfg.Telemetry.Environment)

	resolver := auth.NewJWTResolver(cfg.Auth.JWTSecret)

	groupRepo := repositories.NewKVGroupRepo(store)
	messageStore := repositories.NewKVMessageStore(store)
	presence := repositories.NewKVPresenceTracker(store, groupRepo)

	hub := ws.NewHub()
	dispatcher := ws.NewDispatcher(hub, messageStore, groupRepo, resolver)
	groupHandler := handlers.NewGroupHandler(groupRepo, presence, messageStore, audit)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(resolver)

	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id", authMiddleware, groupHandler.GetGroup)
	router.GET("/groups/:group_id/presence", authMiddleware, groupHandler.GetPresence)
	router.POST("/groups/:group_id/presence/join", authMiddleware, groupHandler.JoinPresence)
	router.POST("/groups/:group_id/presence/leave", authMiddleware, groupHandler.LeavePresence)
	router.GET("/groups/:group_id/messages", authMiddleware, groupHandler.GetRoomMessages)
	router.GET("/chats/:friend_id/messages", authMiddleware, groupHandler.GetDirectMessages)

	router.GET("/ws", dispatcher.Handle)
	router.NoRoute(dispatcher.RejectUpgrade)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, cfg.Server.DebugRoutes)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return shutdownTracer(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func connectStore(ctx context.Context, cfg config.Storage) (kv.Store, func(), error) {
	switch cfg.Backend {
	case "postgres":
		store, err := kv.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "redis":
		store, err := kv.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "memory":
		return kv.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
