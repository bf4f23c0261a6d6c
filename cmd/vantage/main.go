package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vantage-erp/vantage-erp/internal/app"
	"github.com/vantage-erp/vantage-erp/internal/auth"
	"github.com/vantage-erp/vantage-erp/internal/inbound"
	"github.com/vantage-erp/vantage-erp/internal/masterdata/products"
	"github.com/vantage-erp/vantage-erp/internal/observability"
	"github.com/vantage-erp/vantage-erp/internal/procurement"
	"github.com/vantage-erp/vantage-erp/internal/rbac"
	"github.com/vantage-erp/vantage-erp/internal/sales/customers"
	"github.com/vantage-erp/vantage-erp/internal/sales/quotations"
	"github.com/vantage-erp/vantage-erp/internal/shared"
	"github.com/vantage-erp/vantage-erp/internal/view"
	"github.com/vantage-erp/vantage-erp/jobs"
)

// quotationCatalog adapts the product repository to quotation line lookups.
type quotationCatalog struct {
	repo products.Repository
}

func (c quotationCatalog) Lookup(ctx context.Context, id int64) (*quotations.ProductInfo, error) {
	p, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quotations.ProductInfo{ID: p.ID, Code: p.Code, Name: p.Name, UOM: p.UOM}, nil
}

// inboundCatalog adapts the product repository to delivery line lookups.
type inboundCatalog struct {
	repo products.Repository
}

func (c inboundCatalog) Lookup(ctx context.Context, id int64) (*inbound.ProductInfo, error) {
	p, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inbound.ProductInfo{ID: p.ID, Code: p.Code, Name: p.Name, UOM: p.UOM}, nil
}

// requisitionCatalog adapts the product repository to requisition lookups.
type requisitionCatalog struct {
	repo products.Repository
}

func (c requisitionCatalog) Lookup(ctx context.Context, id int64) (*procurement.ProductInfo, error) {
	p, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &procurement.ProductInfo{ID: p.ID, Code: p.Code, Name: p.Name, UOM: p.UOM, UnitPrice: p.UnitPrice}, nil
}

// quotationMailer enqueues a notification email when a quotation goes out.
type quotationMailer struct {
	client    *jobs.Client
	customers customers.Repository
	format    *view.Formatter
	logger    *slog.Logger
}

func (m quotationMailer) QuotationSent(ctx context.Context, q *quotations.Quotation) {
	c, err := m.customers.Get(ctx, q.CustomerID)
	if err != nil || c.Email == nil {
		return
	}
	payload := jobs.SendEmailPayload{
		To:      *c.Email,
		Subject: fmt.Sprintf("Quotation %s", q.QuotationNo),
		Body: fmt.Sprintf("Dear %s,\n\nplease find quotation %s over %s attached.\n",
			c.Name, q.QuotationNo, m.format.Amount(q.TotalAmount)),
	}
	if _, err := m.client.EnqueueSendEmail(ctx, payload); err != nil {
		m.logger.Warn("enqueue quotation mail", slog.Any("error", err))
	}
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "vantage_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	customerRepo := customers.NewRepository(dbpool)
	productRepo := products.NewCachedRepository(products.NewRepository(dbpool), redisClient, products.DefaultCacheTTL, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	formatter := view.NewFormatter(cfg.Locale)

	quotationRepo := quotations.NewRepository(dbpool)
	quotationService := quotations.NewService(quotationRepo, customerRepo, quotationCatalog{productRepo}, logger)
	quotationService.SetNotifier(quotationMailer{
		client:    jobClient,
		customers: customerRepo,
		format:    formatter,
		logger:    logger,
	})
	quotationHandler := quotations.NewHandler(quotationService)

	customerHandler := customers.NewHandler(customerRepo)
	productHandler := products.NewHandler(productRepo)

	inboundRepo := inbound.NewRepository(dbpool)
	inboundService := inbound.NewService(inboundRepo, inboundCatalog{productRepo}, logger)
	inboundHandler := inbound.NewHandler(inboundService)

	requisitionRepo := procurement.NewRepository(dbpool)
	requisitionService := procurement.NewService(requisitionRepo, requisitionCatalog{productRepo}, logger)
	requisitionHandler := procurement.NewHandler(requisitionService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		QuotationHandler:   quotationHandler,
		CustomerHandler:    customerHandler,
		ProductHandler:     productHandler,
		InboundHandler:     inboundHandler,
		RequisitionHandler: requisitionHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
