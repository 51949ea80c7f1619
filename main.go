package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"bookio-backend/internal/account/libraries"
	"bookio-backend/internal/account/readers"
	"bookio-backend/internal/library_mgmt/books"
	"bookio-backend/internal/library_mgmt/loans"
	"bookio-backend/internal/library_mgmt/monitor"
	"bookio-backend/internal/library_mgmt/penalties"
	"bookio-backend/internal/library_mgmt/schedulings"
	"bookio-backend/internal/platform/auth"
	"bookio-backend/internal/platform/db"
	"bookio-backend/internal/platform/mail"
	"bookio-backend/internal/platform/payment"
	"bookio-backend/internal/platform/secrets"
	"bookio-backend/internal/platform/storage"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	sec, err := secrets.Load()
	if err != nil {
		panic(err)
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// 通知はキーがあれば Resend、なければログに出すだけ
	var notifier mail.Notifier
	if sec.ResendAPIKey != "" {
		notifier = mail.NewResend(sec.ResendAPIKey, sec.MailFrom)
	} else {
		log.Println("[WARN] RESEND_API_KEY not set, mail goes to the log")
		notifier = mail.NewConsole()
	}

	// 支払いリンクはキーがあるときだけ発行する
	var billing penalties.BillingClient
	if sec.AbacatePayAPIKey != "" {
		billing = payment.NewAbacatePay(sec.AbacatePayAPIKey)
	} else {
		log.Println("[WARN] ABACATEPAY_API_KEY not set, penalties are created without payment links")
	}

	// 画像ストレージ（表紙・プロフィール画像）
	var bookImages books.ImageStore
	var readerImages readers.ImageStore
	if sec.S3Bucket != "" {
		imageStore, err := storage.New(context.Background(), storage.Config{
			Bucket:        sec.S3Bucket,
			Region:        sec.S3Region,
			Endpoint:      sec.S3Endpoint,
			PathStyle:     sec.S3PathStyle,
			PublicBaseURL: sec.S3PublicBaseURL,
		})
		if err != nil {
			panic(err)
		}
		bookImages = imageStore
		readerImages = imageStore
	} else {
		log.Println("[WARN] BOOKIO_S3_BUCKET not set, image upload is disabled")
	}

	// ストア
	bookStore := books.NewStore(conn)
	readerStore := readers.NewStore(conn)
	loanStore := loans.NewStore(conn)
	schedulingStore := schedulings.NewStore(conn)
	penaltyStore := penalties.NewStore(conn)

	// サービス
	jwtSecret := []byte(sec.JWTSecret)
	jwtExpiry := time.Duration(sec.JWTExpireMin) * time.Minute
	authSvc := auth.NewService(conn, jwtSecret, jwtExpiry)
	librarySvc := libraries.NewService(conn, notifier)
	readerSvc := readers.NewService(conn, notifier, readerImages)
	bookSvc := books.NewService(conn, bookImages)
	schedulingSvc := schedulings.NewService(conn, time.Duration(cfg.Library.HoldTTLMinutes)*time.Minute)
	loanSvc := loans.NewService(
		loanStore, penaltyStore, schedulingStore, readerStore, bookStore, notifier,
		loans.Config{
			SuspensionThreshold: cfg.Library.SuspensionThreshold,
			DueOffset:           time.Duration(cfg.Library.LoanDueOffsetDays) * 24 * time.Hour,
		},
	)
	penaltySvc := penalties.NewService(
		penaltyStore, loanStore, readerStore, bookStore, billing, notifier,
		penalties.Config{
			Amount:    cfg.Library.PenaltyAmount,
			DueWindow: time.Duration(cfg.Library.PenaltyDueDays) * 24 * time.Hour,
		},
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	authed := auth.RequireAuth(jwtSecret)
	libraryOnly := auth.RequireRole(auth.RoleLibrary)
	readerOnly := auth.RequireRole(auth.RoleReader)

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)
	libraries.RegisterRoutes(api, librarySvc, authed, libraryOnly)
	readers.RegisterRoutes(api, readerSvc, authed, libraryOnly)
	books.RegisterRoutes(api, bookSvc, authed, libraryOnly)
	loans.RegisterRoutes(api, loanSvc, authed, libraryOnly)
	schedulings.RegisterRoutes(api, schedulingSvc, authed, readerOnly)
	penalties.RegisterRoutes(api, penaltySvc, authed, libraryOnly)

	// 監視ループ（延滞→ペナルティ、予約TTL、未払い→利用停止）
	loanMonitor := monitor.NewLoanMonitor(
		time.Duration(cfg.Monitor.LoanIntervalMinutes)*time.Minute, loanSvc, penaltySvc)
	schedulingMonitor := monitor.NewSchedulingMonitor(
		time.Duration(cfg.Monitor.SchedulingIntervalMinutes)*time.Minute, schedulingSvc)
	penaltyMonitor := monitor.NewPenaltyMonitor(
		time.Duration(cfg.Monitor.PenaltyIntervalHours)*time.Hour, penaltySvc, readerStore)

	loanMonitor.Start()
	schedulingMonitor.Start()
	penaltyMonitor.Start()
	defer loanMonitor.Stop()
	defer schedulingMonitor.Stop()
	defer penaltyMonitor.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.Certificate.Cert != "" && cfg.Certificate.Key != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://0.0.0.0%s", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
