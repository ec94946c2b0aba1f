package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ovenworks/breadstore/internal/chainwatch"
	"github.com/ovenworks/breadstore/internal/domain/inventory"
	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/domain/payment"
	"github.com/ovenworks/breadstore/internal/handler"
	"github.com/ovenworks/breadstore/internal/mailer"
	"github.com/ovenworks/breadstore/internal/pricing"
	"github.com/ovenworks/breadstore/internal/storage/postgres"
	"github.com/ovenworks/breadstore/pkg/health"
	"github.com/ovenworks/breadstore/pkg/httpmiddleware"
)

const quoteCacheTTL = 30 * time.Second

// settlementVerifier bounds each confirmation wait so a stuck transaction
// cannot hold an order request open past the configured settle timeout.
type settlementVerifier struct {
	watcher *chainwatch.Watcher
	timeout time.Duration
}

func (v settlementVerifier) WaitConfirmed(ctx context.Context, chain payment.Chain, txHash string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return v.watcher.WaitConfirmed(ctx, chain, txHash)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Storage + inventory ledger.
	orderRepo := postgres.NewOrderRepository(pool)
	ledger := inventory.NewLedger(orderRepo, cfg.WeeklyCap)

	// Price oracle, optionally fronted by a Redis quote cache.
	var quoter pricing.Quoter = pricing.NewOracle(nil, lg.Named("pricing"))
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		quoter = pricing.NewQuoteCache(quoter, rdb, quoteCacheTTL, lg.Named("pricing"))
	}

	// On-chain settlement verification, enabled per configured RPC endpoint.
	var verifier order.SettlementVerifier
	clients := make(map[payment.Chain]chainwatch.EVMClient)
	for chain, endpoint := range map[payment.Chain]string{
		payment.ChainEthereum: cfg.Chain.EthereumRPC,
		payment.ChainBase:     cfg.Chain.BaseRPC,
	} {
		if endpoint == "" {
			continue
		}
		client, err := chainwatch.Dial(endpoint)
		if err != nil {
			return errors.Wrapf(err, "dial %s rpc", chain)
		}
		defer client.Close()
		clients[chain] = client
	}
	if len(clients) > 0 {
		watcher := chainwatch.NewWatcher(clients, chainwatch.Config{
			Confirmations: cfg.Chain.Confirmations,
			PollInterval:  cfg.Chain.PollInterval,
		}, lg.Named("chainwatch"))
		verifier = settlementVerifier{watcher: watcher, timeout: cfg.Chain.SettleTimeout}
		lg.Info("Payment verification enabled", zap.Any("chains", watcher.Chains()))
	} else {
		lg.Warn("No RPC endpoints configured, payment verification disabled")
	}

	// Email notifications. Nil client when no API key is set.
	var notifier order.Mailer
	if mc := mailer.New(mailer.Config{
		APIKey:        cfg.Mail.ResendAPIKey,
		From:          cfg.Mail.From,
		MerchantEmail: cfg.Mail.MerchantEmail,
	}, nil); mc != nil {
		notifier = mc
	}

	orderService := order.NewService(orderRepo, cfg.WeeklyCap, verifier, notifier, lg.Named("orders"))

	// HTTP handlers.
	h := handler.New(ledger, orderService, quoter)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Order submission may wait out a settlement confirmation.
		WriteTimeout:   cfg.Chain.SettleTimeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORS.Origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			func(next http.Handler) http.Handler {
				return otelhttp.NewHandler(next, "breadstore-api",
					otelhttp.WithTracerProvider(m.TracerProvider()),
					otelhttp.WithMeterProvider(m.MeterProvider()),
				)
			},
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
