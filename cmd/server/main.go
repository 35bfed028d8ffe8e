/**
 * @description
 * Entry point for the service. Wires the external store client, the
 * optional Redis rate limiter and RabbitMQ producer, the registration and
 * session services, and the HTTP router, then runs the server with graceful
 * shutdown on SIGINT/SIGTERM.
 */
package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ndarama/ishuriai-backend/internal/api"
	"github.com/ndarama/ishuriai-backend/internal/app"
	"github.com/ndarama/ishuriai-backend/internal/config"
	"github.com/ndarama/ishuriai-backend/internal/session"
	"github.com/ndarama/ishuriai-backend/pkg/rabbitmq"
	"github.com/ndarama/ishuriai-backend/pkg/supabase"
)

func maskAMQPURLForLog(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "<unparseable>"
	}
	if u.User != nil {
		u.User = url.UserPassword("****", "****")
	}
	return u.String()
}

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	// External store client: auth and data both live behind it.
	store := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, supabase.DefaultTimeout)
	log.Printf("level=info component=bootstrap msg=\"store client ready\" url=%s", cfg.SupabaseURL)

	// RabbitMQ producer with bounded dial timeout; fall back to the no-op
	// publisher when the broker is unreachable so registration still works.
	var producer rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; lifecycle events will be logged only\" env=RABBITMQ_URL")
		producer = &rabbitmq.FallbackPublisher{}
	} else {
		log.Printf("RABBITMQ_URL (masked)=%s", maskAMQPURLForLog(cfg.RabbitMQURL))
		if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
			log.Printf("WARNING: Failed to connect to RabbitMQ at startup: %v. Continuing without MQ.", err)
			producer = &rabbitmq.FallbackPublisher{}
		} else {
			producer = p
			defer producer.Close()
			log.Println("RabbitMQ producer connected")
		}
	}

	// Redis backs the availability rate limiter; absence disables limiting.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; availability rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; availability rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; availability rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	var limiter *app.ProbeLimiter
	if redisClient != nil {
		limiter = app.NewProbeLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	registration := app.NewService(store, store, producer, cfg.UserEventsExchange)
	bridge := session.NewBridge(store, store, cfg.SiteBaseURL+"/reset-password")

	handler := api.NewHandler(
		registration,
		bridge,
		store,
		limiter,
		cfg.AvailabilityRateLimitPerMinute,
		cfg.RegisterRateLimitPerMinute,
	)
	router := api.NewRouter(handler, cfg.SupabaseJWTSecret)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" port=%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
