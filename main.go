package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"library-backend/internal/catalog/books"
	"library-backend/internal/catalog/genres"
	"library-backend/internal/catalog/users"
	"library-backend/internal/lending"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// 動作モード取得
	mode := cfg.Mode
	logger.Infof("mode: %s", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth jwt secret is required")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer conn.Close()

	logger.Infof("connected to DB: %s", cfg.DB.DBName)

	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	secret := []byte(cfg.Auth.JWTSecret)
	tokenTTL := time.Duration(cfg.Auth.TokenTTLHrs) * time.Hour

	// /api/v1
	// 参照系は公開、更新系は司書トークン必須、アカウント管理は admin のみ
	api := r.Group("/api/v1")
	protected := r.Group("/api/v1", auth.RequireAuth(secret))
	admin := r.Group("/api/v1", auth.RequireAuth(secret), auth.RequireRole("admin"))

	auth.RegisterRoutes(api, admin, auth.NewService(conn, secret, tokenTTL))
	books.RegisterRoutes(api, protected, books.NewService(conn, logger))
	users.RegisterRoutes(api, protected, users.NewService(conn, logger))
	genres.RegisterRoutes(api, admin, genres.NewService(conn))
	lending.RegisterRoutes(api, protected, lending.NewService(conn, logger))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.Server.Cert != "" && cfg.Server.Key != "" {
			logger.Infof("listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(cfg.Server.Cert, cfg.Server.Key)
		} else {
			logger.Infof("listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal(err)
	}
}
