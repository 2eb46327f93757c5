package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthttp "knowledge-hub/internal/account/http"
	accountrepo "knowledge-hub/internal/account/repository"
	accountservice "knowledge-hub/internal/account/service"
	adminhttp "knowledge-hub/internal/admin/http"
	adminservice "knowledge-hub/internal/admin/service"
	"knowledge-hub/internal/auth"
	commenthttp "knowledge-hub/internal/comment/http"
	commentrepo "knowledge-hub/internal/comment/repository"
	commentservice "knowledge-hub/internal/comment/service"
	"knowledge-hub/internal/common/clock"
	"knowledge-hub/internal/common/config"
	"knowledge-hub/internal/common/crypto"
	"knowledge-hub/internal/common/db"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/httpmetrics"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/common/server"
	"knowledge-hub/internal/realtime"
	searchhttp "knowledge-hub/internal/search/http"
	searchrepo "knowledge-hub/internal/search/repository"
	searchservice "knowledge-hub/internal/search/service"
	workspacehttp "knowledge-hub/internal/workspace/http"
	workspacerepo "knowledge-hub/internal/workspace/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootstrapLog, _ := logger.New("", "server", "")
		bootstrapLog.Fatalf("failed to load config: %v", err)
	}

	log, err := logger.New(cfg.LogDir, "server", cfg.LogLevel)
	if err != nil {
		bootstrapLog, _ := logger.New("", "server", "")
		bootstrapLog.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	clk := clock.NewRealClock()
	hasher := crypto.NewBcryptHasher()
	idGenerator := crypto.NewUUIDGenerator()
	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.AccessTokenTTL, clk)

	users := accountrepo.NewPgRepository(pool)
	workspaces := workspacerepo.NewPgRepository(pool)
	comments := commentrepo.NewPgRepository(pool)
	entries := searchrepo.NewPgRepository(pool)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, log)
	hub := realtime.NewHub(registry, workspaces, log)

	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	go hub.Run(hubCtx)

	accounts := accountservice.NewAccountService(users, hasher, idGenerator, authenticator, clk, log)
	commentSvc := commentservice.NewCommentService(comments, workspaces, dispatcher, idGenerator, log)
	searchSvc := searchservice.NewSearchService(entries, idGenerator, log)
	adminSvc := adminservice.NewAdminService(users, entries, clk, cfg.ActivityWindow, log)

	accountHandler := accounthttp.NewHandler(accounts, log)
	workspaceHandler := workspacehttp.NewHandler(workspaces, log)
	commentHandler := commenthttp.NewHandler(commentSvc, log)
	searchHandler := searchhttp.NewHandler(searchSvc, log)
	adminHandler := adminhttp.NewHandler(adminSvc, log)

	wsHandler := realtime.NewHandler(hub, authenticator, idGenerator, realtime.Config{
		WriteWait:      cfg.WebSocketWriteWait,
		PongWait:       cfg.WebSocketPongWait,
		PingPeriod:     cfg.WebSocketPingPeriod,
		MaxMessageSize: cfg.WebSocketMaxMsgSize,
		SendBufferSize: cfg.WebSocketSendBufSize,
		SendTimeout:    cfg.WebSocketSendTimeout,
	}, log)

	requireAuth := auth.Middleware(authenticator, log)
	requireAdmin := auth.RequireAdmin(log)
	timeout := commonhttp.WithTimeout(cfg.RequestTimeout)
	searchTimeout := commonhttp.WithTimeout(cfg.SearchTimeout)

	mux := http.NewServeMux()

	public := accountHandler.Public()
	mux.Handle("/api/register", timeout(public.ServeHTTP))
	mux.Handle("/api/login", timeout(public.ServeHTTP))
	mux.Handle("/api/user", requireAuth(timeout(accountHandler.Profile().ServeHTTP)))
	mux.Handle("GET /api/notifications", requireAuth(timeout(accountHandler.Notifications)))

	mux.Handle("GET /api/workspaces", requireAuth(timeout(workspaceHandler.List)))
	mux.Handle("GET /api/workspaces/{id}/comments", requireAuth(timeout(commentHandler.List)))
	mux.Handle("POST /api/workspaces/{id}/comments", requireAuth(timeout(commentHandler.Create)))

	mux.Handle("GET /api/search", requireAuth(searchTimeout(searchHandler.Search)))
	mux.Handle("POST /api/process-url", requireAuth(timeout(searchHandler.ProcessURL)))

	mux.Handle("GET /api/admin/metrics", requireAuth(requireAdmin(timeout(adminHandler.Metrics))))

	// The websocket route skips the request timeout: the connection outlives
	// any sane request deadline.
	mux.Handle("GET /ws", wsHandler)

	mux.HandleFunc("GET /health", commonhttp.HealthHandler(log))
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := commonhttp.RecoveryMiddleware(log)(
		commonhttp.TraceIDMiddleware(
			httpmetrics.Wrap(mux),
		),
	)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler,
	}

	server.StartWithGracefulShutdown(httpServer, log, "server", func(shutdownCtx context.Context) error {
		hub.Shutdown()
		hubCancel()
		return nil
	})
}
