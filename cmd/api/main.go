package main

import (
	"context"
	"fmt"
	"log"

	"relay-chat/config"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/thread"
	"relay-chat/internal/domain/user"
	"relay-chat/internal/handler"
	"relay-chat/internal/middleware"
	"relay-chat/internal/presence"
	"relay-chat/internal/push"
	relayredis "relay-chat/internal/redis"
	"relay-chat/internal/repository"
	"relay-chat/internal/services"
	"relay-chat/internal/storage"
	relayws "relay-chat/internal/websocket"
	"relay-chat/pkg/database"
	"relay-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "release" {
		mode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	db := database.Connect(cfg)
	if err := db.AutoMigrate(
		&user.User{},
		&user.PushToken{},
		&message.Message{},
		&message.Attachment{},
		&message.Removal{},
		&thread.Thread{},
		&thread.Participant{},
	); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	if cfg.SeedDemoData {
		if err := database.SeedDemoUsers(db); err != nil {
			log.Fatalf("Failed to seed demo users: %v", err)
		}
	}

	store := repository.NewStore(db)

	var blobs storage.BlobStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("Failed to init s3 client: %v", err)
		}
		blobs = s3Client
	} else {
		l.Infof("S3 not configured, attachments disabled")
	}

	redisClient := relayredis.NewClient(relayredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	limiter := relayredis.NewRateLimiter(redisClient, relayredis.DefaultRateLimitConfig())

	registry := presence.NewMemoryRegistry()
	dispatcher := services.NewDispatcher(registry, l)
	notifier := push.NewLogNotifier(l)

	authService := services.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTExpiryMin)
	chatService := services.NewChatService(store, blobs, notifier, dispatcher, l)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	wsHandler := relayws.NewHandler(authService, registry, dispatcher, limiter)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))
	r.Use(middleware.ErrorHandler(l))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	v1 := r.Group("/v1")
	v1.POST("/auth/login", authHandler.Login)
	v1.GET("/ws", wsHandler.Connect)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(authService))
	authed.POST("/messages", middleware.MessageRateLimitMiddleware(limiter), chatHandler.Send)
	authed.GET("/messages/history", chatHandler.History)
	authed.POST("/messages/seen", chatHandler.MarkSeen)
	authed.DELETE("/messages/:id", chatHandler.Delete)
	authed.DELETE("/messages", chatHandler.DeleteAll)
	authed.GET("/threads", chatHandler.Threads)
	authed.GET("/threads/unread", chatHandler.UnreadSummary)

	log.Printf("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
