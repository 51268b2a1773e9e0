package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"natalk/server/internal/api/handler"
	"natalk/server/internal/chathub"
	"natalk/server/internal/config"
	"natalk/server/internal/storage"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.Info("Starting NaTalk server...")

	store := storage.NewService(cfg.DataDir, cfg.RoomsFile, log)
	rooms, err := store.LoadRooms()
	if err != nil {
		log.Fatalf("Failed to load rooms state: %v", err)
	}

	tokens := chathub.NewTokenIssuer(cfg.JWTSecret)
	hub := chathub.NewHub(rooms, store, tokens, log)
	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(hub, log)

	r.POST("/create-room", h.CreateRoom)
	r.GET("/api/rooms-status", h.RoomsStatus)
	r.DELETE("/room/:roomId", h.DeleteRoom)
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Infof("NaTalk server is running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Error shutting down HTTP server: %v", err)
	}
	hub.Stop()
	log.Info("Shutdown complete")
}
