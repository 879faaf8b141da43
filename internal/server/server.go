package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gift-store/internal/auth"
	"gift-store/internal/cart"
	"gift-store/internal/config"
	"gift-store/internal/database"
	"gift-store/internal/events"
	"gift-store/internal/mail"
	custommiddleware "gift-store/internal/middleware"
	"gift-store/internal/repository"
	"gift-store/internal/service"
	"gift-store/internal/storage"
	"gift-store/internal/transport"
	"gift-store/internal/wishlist"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	redis     *redis.Client
	evictor   *cron.Cron
	wishlists *wishlist.Registry
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) (*Server, error) {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := custommiddleware.NewMetrics(registry)
	router.Use(metrics.Middleware)

	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))
	if cfg.RateLimit.Enabled {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "gift-store:ratelimit",
		}, logger))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	sqlDB := db.DB()

	// Repositories
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	resetRepo := repository.NewPasswordResetRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	occasionRepo := repository.NewOccasionRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	profileRepo := repository.NewProfileRepository(sqlDB)
	wishlistRepo := repository.NewWishlistRepository(sqlDB)

	// Session state
	bus := events.New()
	carts := cart.NewRegistry(cart.NewRedisSnapshotRepository(redisClient, cfg.Cart.TTL), logger)
	evictor, err := cart.StartEviction(carts, cfg.Cart.EvictSchedule, cfg.Cart.TTL, logger)
	if err != nil {
		return nil, err
	}
	wishlists, err := wishlist.NewRegistry(wishlistRepo, bus, logger)
	if err != nil {
		evictor.Stop()
		return nil, fmt.Errorf("failed to create wishlist registry: %w", err)
	}

	uploads, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		evictor.Stop()
		_ = wishlists.Close()
		return nil, err
	}
	router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	// Services
	userService := service.NewUserService(
		userRepo, refreshTokenRepo, resetRepo,
		mail.New(cfg.Mail, logger), bus, logger,
		service.UserServiceConfig{
			JWTSecret:  cfg.JWT.Secret,
			AccessTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
			RefreshTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
			ResetURL:   cfg.PasswordResetURL(),
		},
	)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, occasionRepo, userRepo)
	cartService := service.NewCartService(productRepo)
	orderService := service.NewOrderService(orderRepo, logger)
	wishlistService := service.NewWishlistService(wishlists, productRepo)
	profileService := service.NewProfileService(profileRepo)
	mediaService := service.NewMediaService(uploads, cfg.Storage.MaxUploadSize)

	// Auth
	policy := auth.DefaultPolicy()
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, policy, logger)
	optionalAuth := custommiddleware.OptionalAuth(cfg.JWT.Secret, policy, logger)
	cartSession := custommiddleware.CartSession(
		custommiddleware.NewCartCookieStore(cfg.Cart.SessionKey, cfg.Cart.CookieSecure), logger)
	gate := func(c auth.Capability) func(http.Handler) http.Handler {
		return custommiddleware.RequireCapability(policy, c, logger)
	}

	// Handlers
	transport.NewUserHandler(userService, policy, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router)
	transport.NewCartHandler(carts, cartService, orderService, logger).RegisterRoutes(router, cartSession, optionalAuth)
	transport.NewAccountHandler(wishlistService, orderService, profileService, logger).
		RegisterRoutes(router, authMiddleware, gate(auth.CapUseWishlist), gate(auth.CapReadOrders))
	transport.NewAdminHandler(catalogService, mediaService, orderService, cfg.Storage.MaxUploadSize, logger).
		RegisterRoutes(router, authMiddleware, transport.AdminGates{
			Catalog: custommiddleware.RequireAdmin(logger),
			Orders:  gate(auth.CapManageOrders),
			Media:   gate(auth.CapUploadMedia),
		})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		evictor:   evictor,
		wishlists: wishlists,
	}

	return server, nil
}

// Close stops background work and releases connections. Call after Shutdown.
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Wait for a running eviction pass before the stores go away.
	<-s.evictor.Stop().Done()

	if err := s.wishlists.Close(); err != nil {
		s.logger.Error("Failed to close wishlist registry", zap.Error(err))
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis connection", zap.Error(err))
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}

// Ping verifies redis is reachable before serving.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}
