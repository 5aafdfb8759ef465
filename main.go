package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"
	"wordchain/auth"
	"wordchain/config"
	"wordchain/crypto"
	"wordchain/dictionary"
	"wordchain/game"
	"wordchain/migrations"
	"wordchain/session"
	"wordchain/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// kickBanned closes the connection of a user banned on any instance.
func kickBanned(kick func(userId int64, code string) bool) func(int64) {
	return func(userId int64) {
		if kick(userId, "banned") {
			slog.Info("Kicked banned user", "user_id", userId)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		log.Fatal(err)
	}

	pgRepo, err := storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pgRepo.Close()

	passwordHasher := crypto.NewArgon2idHasher(crypto.DefaultArgon2idParams)
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, config.TokenAge)

	authService := auth.NewService(pgRepo, passwordHasher, tokenManager)
	authHandler := auth.NewAuthHandler(authService, config.TokenAge)

	var dict game.Dictionary = dictionary.NewClient(cfg.DictionaryURL, cfg.DictionaryKey, 0)

	hubOpts := session.HubOptions{
		Bans:    pgRepo,
		Reports: pgRepo,
		GameLog: pgRepo,
	}

	var banBus *session.RedisBanBus
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal(err)
		}
		dict = dictionary.NewCached(dict, redisClient)
		banBus = session.NewRedisBanBus(redisClient)
		hubOpts.Notifier = banBus
	} else {
		slog.Warn("REDIS_ADDR not set, running without dictionary cache and ban fan-out")
	}

	hubOpts.Lobby = game.NewLobby(game.LobbyOptions{
		Dictionary: dict,
		MaxRooms:   cfg.MaxRooms,
	})
	hub := session.NewHub(hubOpts)
	gameHandler := session.NewHandler(hub, pgRepo, cfg.AllowedOrigins)

	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	if banBus != nil {
		ready := make(chan struct{})
		listenErr := make(chan error, 1)
		go func() {
			listenErr <- banBus.Listen(listenCtx, ready, kickBanned(hub.Kick))
		}()
		select {
		case <-ready:
		case err := <-listenErr:
			log.Fatal(err)
		}
		go func() {
			if err := <-listenErr; err != nil {
				slog.Error("Ban listener stopped", "error", err)
			}
		}()
	}

	r := CreateServer(cfg.AllowedOrigins)

	{
		auth := r.Group("/auth")
		auth.POST("/signup", authHandler.SignupHandler)
		auth.POST("/login", authHandler.LoginHandler)
		auth.POST("/logout", authHandler.LogoutHandler)
		auth.GET("/refresh", authHandler.RefreshSessionHandler)
	}

	{
		gameGroup := r.Group("/game")
		gameGroup.Use(authHandler.RequireAuthMiddleware(time.Second * 2))

		gameGroup.GET("/ws", gameHandler.WebsocketHandler)
		gameGroup.GET("/rooms", gameHandler.RoomsHandler)
	}

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	slog.Info("Server started", "addr", cfg.HTTPAddr)
	<-sigCh
	slog.Info("SIGTERM or SIGINT received, closing sessions before shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Http server shutdown failed", "error", err)
	}
	stopListening()
	hub.Shutdown()
	slog.Info("Shutting down now")
}
