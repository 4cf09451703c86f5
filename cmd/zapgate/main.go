package main

import (
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/zapgate/zapgate/adapters/events"
	"github.com/zapgate/zapgate/adapters/store"
	"github.com/zapgate/zapgate/adapters/tokenizer"
	"github.com/zapgate/zapgate/config"
	"github.com/zapgate/zapgate/service"
	"github.com/zapgate/zapgate/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	sessionTokenizer := tokenizer.NewJWTTokenizer(cfg.SessionSecret, http.CookieMaxAge)
	kvStore := store.NewRedisStore(redisClient)
	eventPub := events.NewWatermillPublisher(publisher)

	authService := service.NewAuthService(kvStore, sessionTokenizer, eventPub, cfg.RelayHint)

	router := http.SetupRouter(authService, http.RouterConfig{
		PublicURL:    cfg.PublicURL,
		CookieSecure: cfg.CookieSecure,
	})

	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
