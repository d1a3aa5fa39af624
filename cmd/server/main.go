package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedpost/backend/internal/auth"
	"github.com/feedpost/backend/internal/config"
	"github.com/feedpost/backend/internal/events"
	"github.com/feedpost/backend/internal/feed"
	"github.com/feedpost/backend/internal/graphql"
	"github.com/feedpost/backend/internal/middleware"
	"github.com/feedpost/backend/internal/store"
	"github.com/feedpost/backend/internal/ws"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database(cfg.MongoDB)

	userStore := store.NewUserStore(mongoDB)
	if err := userStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	postStore := store.NewPostStore(mongoDB)

	// ── Redis (notification bus) ─────────────────────────────
	bus, err := events.NewBus(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer bus.Close()

	// ── MinIO ────────────────────────────────────────────────
	imageStore, err := store.NewImageStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Services ─────────────────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret)
	authSvc := auth.NewService(userStore, tokens)
	feedSvc := feed.NewService(postStore, userStore, imageStore, bus)

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(authSvc)
	feedHandler := feed.NewHandler(feedSvc, imageStore)
	gqlHandler, err := graphql.NewHandler(authSvc, feedSvc)
	if err != nil {
		log.Fatalf("graphql schema: %v", err)
	}

	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx, bus)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Decode(tokens))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Put("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	r.Route("/feed", func(r chi.Router) {
		r.Get("/posts", feedHandler.GetPosts)
		r.Post("/post", feedHandler.CreatePost)
		r.Get("/post/{postId}", feedHandler.GetPost)
		r.Put("/post/{postId}", feedHandler.UpdatePost)
		r.Delete("/post/{postId}", feedHandler.DeletePost)
	})

	r.Post("/post-image", feedHandler.UploadImage)
	r.Get("/images/*", feedHandler.ServeImage)
	r.Post("/graphql", gqlHandler.ServeHTTP)
	r.Get("/ws", hub.ServeHTTP)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Printf("Backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
