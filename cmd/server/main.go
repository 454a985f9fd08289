package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/authprovider"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/blob"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/config"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/dashboard"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/handlers"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/lock"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/logger"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/notify"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/store"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/wizard"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/web"
)

func main() {
	// Used until the configured logger exists.
	boot := zap.NewExample()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(boot)
	if err != nil {
		boot.Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal("Invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		boot.Fatal("Failed to build logger", zap.Error(err))
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init DB
	db, err := store.NewStore(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		log.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// 3. Identity
	provider := authprovider.NewLocal(db, authprovider.Options{
		Secret:         cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		ResetLinkTTL:   cfg.ResetLinkTTL,
		MinPasswordLen: cfg.MinPasswordLen,
		BaseURL:        cfg.BaseURL,
	}, log)
	ids := identity.NewManager(provider, db, log)
	defer ids.Close()
	go purgeRevokedTokens(ctx, db, log)

	// 4. Order pipeline
	files, err := newUploader(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize blob store", zap.Error(err))
	}
	proofs := &blob.ImageDownscaler{Next: files, MaxWidth: cfg.ProofMaxWidth, Log: log}

	locks, closeLocks, err := newLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize submission lock", zap.Error(err))
	}
	defer closeLocks()

	draftDir, err := os.MkdirTemp("", "printease-drafts-")
	if err != nil {
		log.Fatal("Failed to create draft directory", zap.Error(err))
	}
	defer os.RemoveAll(draftDir)
	drafts, err := wizard.NewDrafts(draftDir, cfg.DraftTTL, cfg.MaxUploadSize, log)
	if err != nil {
		log.Fatal("Failed to initialize drafts", zap.Error(err))
	}
	go drafts.Run(ctx, time.Minute)

	submitter := &wizard.Submitter{
		Drafts: drafts,
		Files:  files,
		Proofs: proofs,
		Orders: db,
		Locks:  locks,
		Log:    log,
	}

	// 5. Toasts
	toasts := notify.NewRegistry()
	trays := notify.NewTrays()
	defer trays.Close()
	toasts.Subscribe(trays.Add)
	toasts.Subscribe(notify.LogSubscriber(log))

	// 6. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 7. Init Templates
	templates := handlers.NewTemplateCache(log)
	if err := templates.Load(web.Templates()); err != nil {
		log.Fatal("Failed to load templates", zap.Error(err))
	}

	// 8. Setup Handlers
	base := &handlers.Base{
		SessionStore: sessionStore,
		Templates:    templates,
		Toasts:       toasts,
		Trays:        trays,
		Log:          log,
	}
	dash := dashboard.New(db, log)
	rateLimiter := handlers.NewRateLimiter(cfg.RateLimitWindow, log)
	defer rateLimiter.Stop()

	rt := handlers.Router{
		Base:      base,
		Auth:      &handlers.AuthHandler{Base: base, Identity: ids},
		Home:      &handlers.HomeHandler{Base: base, Dashboard: dash, DB: db.DB},
		Dashboard: &handlers.DashboardHandler{Base: base, Service: dash, Location: time.Local},
		Orders: &handlers.OrderHandler{
			Base:          base,
			Drafts:        drafts,
			Submitter:     submitter,
			MaxUploadSize: cfg.MaxUploadSize,
		},
		Limiter: rateLimiter,
		Static:  web.Static(),
	}
	if cfg.BlobBackend == "disk" {
		rt.UploadDir = cfg.UploadDir
	}
	router := handlers.NewRouter(rt)

	// 9. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Session -> Router
	handler := handlers.LoggingMiddleware(log)(
		handlers.SecurityHeadersMiddleware(
			CSRF(handlers.SessionMiddleware(base, ids)(router)),
		),
	)

	// 10. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to listen and serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully.")
}

func newUploader(cfg *config.Config, log *zap.Logger) (blob.Uploader, error) {
	if cfg.BlobBackend == "cloudinary" {
		log.Info("Uploading to Cloudinary", zap.String("cloud", cfg.CloudinaryCloudName))
		return blob.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryPreset, nil, log), nil
	}
	return blob.NewDisk(cfg.UploadDir, "/uploads", log)
}

// newLocker uses Redis when configured so submissions stay exclusive across
// instances.
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewMemory(cfg.LockTTL), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info("Using Redis submission lock", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedis(client, cfg.LockTTL, log), func() { client.Close() }, nil
}

func purgeRevokedTokens(ctx context.Context, db *store.Store, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := db.PurgeRevokedTokens(ctx, now)
			if err != nil {
				log.Warn("Failed to purge revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
