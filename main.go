package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	alertapp "facility-cloud/internal/alerts/application"
	alertrepo "facility-cloud/internal/alerts/infrastructure/postgres"
	alerthttp "facility-cloud/internal/alerts/interfaces/http"
	alertnotify "facility-cloud/internal/alerts/notify"
	"facility-cloud/internal/audit"
	"facility-cloud/internal/auth"
	"facility-cloud/internal/config"
	"facility-cloud/internal/dashboard"
	"facility-cloud/internal/eventing"
	idapp "facility-cloud/internal/identity/application"
	identity "facility-cloud/internal/identity/domain"
	idrepo "facility-cloud/internal/identity/infrastructure/postgres"
	idhttp "facility-cloud/internal/identity/interfaces/http"
	"facility-cloud/internal/ingest"
	invapp "facility-cloud/internal/inventory/application"
	inventory "facility-cloud/internal/inventory/domain"
	invrepo "facility-cloud/internal/inventory/infrastructure/postgres"
	invhttp "facility-cloud/internal/inventory/interfaces/http"
	"facility-cloud/internal/observability/metrics"
	"facility-cloud/internal/realtime"
	reportapp "facility-cloud/internal/reports/application"
	reporthttp "facility-cloud/internal/reports/interfaces/http"
	woapp "facility-cloud/internal/workorders/application"
	worepo "facility-cloud/internal/workorders/infrastructure/postgres"
	wohttp "facility-cloud/internal/workorders/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	_ = godotenv.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()
	auditRepo := audit.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Identity.
	userRepo, err := idrepo.NewUserRepository(db)
	if err != nil {
		logger.Fatalf("user repository error: %v", err)
	}
	sessionRepo, err := idrepo.NewSessionRepository(db)
	if err != nil {
		logger.Fatalf("session repository error: %v", err)
	}
	identityService, err := idapp.NewService(userRepo, sessionRepo, idapp.TokenConfig{
		Secret:             []byte(cfg.JWTSecret),
		AccessTTL:          cfg.Tokens.AccessTTL,
		RefreshTTL:         cfg.Tokens.RefreshTTL,
		RefreshTTLRemember: cfg.Tokens.RefreshTTLRemember,
	}, idapp.WithAuditor(auditRepo))
	if err != nil {
		logger.Fatalf("identity service error: %v", err)
	}
	authHandler, err := idhttp.NewAuthHandler(identityService)
	if err != nil {
		logger.Fatalf("auth handler error: %v", err)
	}
	usersHandler, err := idhttp.NewUsersHandler(identityService)
	if err != nil {
		logger.Fatalf("users handler error: %v", err)
	}

	// Realtime relay.
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	wsHandler, err := realtime.NewHandler(hub)
	if err != nil {
		logger.Fatalf("ws handler error: %v", err)
	}

	// Inventory stores.
	portfolioRepo, err := invrepo.NewPortfolioRepository(db)
	if err != nil {
		logger.Fatalf("portfolio repository error: %v", err)
	}
	siteRepo, err := invrepo.NewSiteRepository(db)
	if err != nil {
		logger.Fatalf("site repository error: %v", err)
	}
	systemRepo, err := invrepo.NewSystemRepository(db)
	if err != nil {
		logger.Fatalf("system repository error: %v", err)
	}
	assetRepo, err := invrepo.NewAssetRepository(db)
	if err != nil {
		logger.Fatalf("asset repository error: %v", err)
	}
	sensorRepo, err := invrepo.NewSensorRepository(db)
	if err != nil {
		logger.Fatalf("sensor repository error: %v", err)
	}
	readingRepo, err := invrepo.NewReadingRepository(db)
	if err != nil {
		logger.Fatalf("reading repository error: %v", err)
	}

	// Work orders.
	workOrderRepo, err := worepo.NewRepository(db)
	if err != nil {
		logger.Fatalf("work order repository error: %v", err)
	}
	historyRepo, err := worepo.NewHistoryRepository(db)
	if err != nil {
		logger.Fatalf("history repository error: %v", err)
	}
	workOrderService, err := woapp.NewService(workOrderRepo, historyRepo,
		woapp.WithAuditor(auditRepo),
		woapp.WithDirectory(userDirectory{users: userRepo}),
	)
	if err != nil {
		logger.Fatalf("work order service error: %v", err)
	}
	workOrderHandler, err := wohttp.NewHandler(workOrderService)
	if err != nil {
		logger.Fatalf("work order handler error: %v", err)
	}

	// Alerts.
	ruleRepo, err := alertrepo.NewRuleRepository(db)
	if err != nil {
		logger.Fatalf("rule repository error: %v", err)
	}
	alertRepo, err := alertrepo.NewAlertRepository(db)
	if err != nil {
		logger.Fatalf("alert repository error: %v", err)
	}
	stateRepo, err := alertrepo.NewRuleStateRepository(db)
	if err != nil {
		logger.Fatalf("rule state repository error: %v", err)
	}
	notifiers := []alertapp.Notifier{hub}
	if cfg.WebhookURL != "" {
		channel, err := alertnotify.NewWebhookChannel(cfg.WebhookURL)
		if err != nil {
			logger.Fatalf("webhook channel error: %v", err)
		}
		webhookNotifier, err := alertnotify.NewChannelNotifier(channel, cfg.WebhookTemplate, logger)
		if err != nil {
			logger.Fatalf("webhook notifier error: %v", err)
		}
		notifiers = append(notifiers, webhookNotifier)
	}
	alertService, err := alertapp.NewService(ruleRepo, alertRepo, stateRepo, assetResolver{assets: assetRepo},
		alertapp.WithNotifier(alertnotify.NewMultiNotifier(notifiers...)),
		alertapp.WithWorkOrderCreator(workOrderService),
		alertapp.WithAuditor(auditRepo),
	)
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}
	alertHandler, err := alerthttp.NewHandler(alertService)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}

	// Readings pass through the in-process bus on their way to the
	// evaluator; a failing subscriber never fails the ingest write.
	bus := eventing.NewInMemoryBus()
	bus.Subscribe(eventing.EventTypeOf[inventory.Reading](), func(ctx context.Context, event any) error {
		reading, ok := event.(inventory.Reading)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		if err := alertService.HandleReading(ctx, reading); err != nil {
			logger.Printf("alert evaluation error: %v", err)
		}
		return nil
	})
	inventoryService, err := invapp.NewService(portfolioRepo, siteRepo, systemRepo, assetRepo, sensorRepo, readingRepo,
		invapp.WithReadingSink(busSink{bus: bus}),
		invapp.WithAuditor(auditRepo),
	)
	if err != nil {
		logger.Fatalf("inventory service error: %v", err)
	}
	inventoryHandler, err := invhttp.NewHandler(inventoryService)
	if err != nil {
		logger.Fatalf("inventory handler error: %v", err)
	}

	// Ingest.
	ingestHandler, err := ingest.NewHandler(inventoryService, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	ingest.StartKafka(ctx, cfg.Kafka, inventoryService, logger)

	// Reports and dashboard.
	reportService, err := reportapp.NewService(alertRepo, workOrderRepo, readingRepo, siteRepo)
	if err != nil {
		logger.Fatalf("report service error: %v", err)
	}
	reportHandler, err := reporthttp.NewHandler(reportService)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}
	dashboardHandler, err := dashboard.NewHandler(alertService, workOrderService, inventoryService)
	if err != nil {
		logger.Fatalf("dashboard handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{
		"/healthz",
		"/metrics",
		"/api/auth/login",
		"/api/auth/refresh",
		"/api/auth/accept-invite",
		"/api/readings",
	}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", authHandler)
	mux.Handle("/api/users", usersHandler)
	mux.Handle("/api/users/", usersHandler)
	mux.Handle("/api/portfolios", inventoryHandler)
	mux.Handle("/api/portfolios/", inventoryHandler)
	mux.Handle("/api/systems", inventoryHandler)
	mux.Handle("/api/systems/", inventoryHandler)
	mux.Handle("/api/sites", inventoryHandler)
	mux.Handle("/api/sites/", inventoryHandler)
	mux.Handle("/api/assets", inventoryHandler)
	mux.Handle("/api/assets/", inventoryHandler)
	mux.Handle("/api/sensors/", inventoryHandler)
	mux.Handle("/api/readings", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/alerts", alertHandler)
	mux.Handle("/api/alerts/", alertHandler)
	mux.Handle("/api/work-orders", workOrderHandler)
	mux.Handle("/api/work-orders/", workOrderHandler)
	mux.Handle("/api/reports/", reportHandler)
	mux.Handle("/api/dashboard/summary", dashboardHandler)
	mux.Handle("/api/ws", wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Ingest-Timestamp", "X-Ingest-Signature"},
		AllowCredentials: true,
	})

	handler := loggingMiddleware(corsWrapper.Handler(audit.RequestInfoMiddleware(authMiddleware.Wrap(mux))), logger)
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// ---- Adapters ----

// assetResolver answers evaluator lookups from the asset store.
type assetResolver struct {
	assets inventory.AssetRepository
}

func (r assetResolver) ResolveAsset(ctx context.Context, tenantID, assetID string) (string, string, error) {
	asset, err := r.assets.Get(ctx, tenantID, assetID)
	if err != nil {
		return "", "", err
	}
	if asset == nil {
		return "", "", inventory.ErrNotFound
	}
	return asset.Name, asset.AssetType, nil
}

// busSink forwards stored readings onto the in-process event bus.
type busSink struct {
	bus *eventing.InMemoryBus
}

func (s busSink) HandleReading(ctx context.Context, reading inventory.Reading) error {
	return s.bus.Publish(ctx, reading)
}

// userDirectory resolves work order assignees from the user store.
type userDirectory struct {
	users identity.UserRepository
}

func (d userDirectory) ListAssignable(ctx context.Context, tenantID string) ([]woapp.Assignee, error) {
	users, err := d.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	assignees := make([]woapp.Assignee, 0, len(users))
	for _, user := range users {
		if user.Status != identity.StatusActive {
			continue
		}
		switch auth.Role(user.Role) {
		case auth.RoleAdmin, auth.RoleFacilityManager, auth.RoleTechnician:
			assignees = append(assignees, woapp.Assignee{ID: user.ID, Name: user.Name, Role: user.Role})
		}
	}
	return assignees, nil
}

func (d userDirectory) Exists(ctx context.Context, tenantID, userID string) (bool, error) {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user != nil && user.TenantID == tenantID && user.Status == identity.StatusActive, nil
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, strconv.Itoa(resp.status), duration)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade pass through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
