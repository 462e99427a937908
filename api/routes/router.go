package routes

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpbooks/mpbooks-backend/api/controllers"
	"github.com/mpbooks/mpbooks-backend/api/middleware"
	"github.com/mpbooks/mpbooks-backend/internal/auth"
	"github.com/mpbooks/mpbooks-backend/internal/cart"
	"github.com/mpbooks/mpbooks-backend/internal/catalog"
	"github.com/mpbooks/mpbooks-backend/internal/messages"
	"github.com/mpbooks/mpbooks-backend/internal/notifications"
	"github.com/mpbooks/mpbooks-backend/internal/orders"
	"github.com/mpbooks/mpbooks-backend/internal/posters"
	"github.com/mpbooks/mpbooks-backend/internal/users"
	"github.com/mpbooks/mpbooks-backend/internal/wishlist"
	"github.com/mpbooks/mpbooks-backend/pkg/auth/session"
	"github.com/mpbooks/mpbooks-backend/pkg/config"
	"github.com/mpbooks/mpbooks-backend/pkg/enums"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/metrics"
	"github.com/mpbooks/mpbooks-backend/pkg/redis"
)

// Deps bundles everything the router needs; the list got long enough
// that positional arguments stopped being readable.
type Deps struct {
	Cfg          *config.Config
	Logg         *logger.Logger
	DBPinger     redis.Pinger
	RedisClient  *redis.Client
	Sessions     session.AccessSessionChecker
	Registry     *prometheus.Registry
	HTTPMetrics  *metrics.HTTPMetrics
	AuthSvc      auth.Service
	CatalogSvc   catalog.Service
	CartSvc      cart.Service
	OrdersSvc    orders.Service
	WishlistSvc  wishlist.Service
	Notification notifications.Service
	MessagesSvc  messages.Service
	PostersSvc   posters.Service
	UsersSvc     users.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Cfg
	logg := deps.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisClient))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Poster images are written under <uploads>/posters and served as-is.
	uploadsDir := http.Dir(filepath.Clean(cfg.Uploads.Dir))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(uploadsDir)))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.RedisClient, logg)).Post("/register", controllers.AuthRegister(deps.AuthSvc, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RedisClient, logg)).Post("/login", controllers.AuthLogin(deps.AuthSvc, cfg.JWT, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(deps.AuthSvc, logg))
		r.Post("/resend-verification", controllers.AuthResendVerification(deps.AuthSvc, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(deps.AuthSvc, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(deps.AuthSvc, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Post("/logout", controllers.AuthLogout(deps.AuthSvc, cfg.JWT, logg))
	})

	authed := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	idempotent := middleware.Idempotency(deps.RedisClient, logg)

	// Public storefront surface. Review writes live here too because the
	// products subtree shadows the authed /api/v1 mount.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(deps.CatalogSvc, logg))
		r.Get("/best-sellers", controllers.ProductsBestSellers(deps.CatalogSvc, logg))
		r.Get("/recent", controllers.ProductsRecent(deps.CatalogSvc, logg))
		r.Get("/{productID}", controllers.ProductsGet(deps.CatalogSvc, logg))
		r.Get("/{productID}/reviews", controllers.ReviewsList(deps.CatalogSvc, logg))
		r.With(authed, idempotent).Post("/{productID}/reviews", controllers.ReviewsUpsert(deps.CatalogSvc, logg))
	})
	r.With(authed).Delete("/api/v1/reviews/{reviewID}", controllers.ReviewsDelete(deps.CatalogSvc, logg))
	r.Get("/api/v1/posters", controllers.PostersListActive(deps.PostersSvc, logg))
	r.With(idempotent).Post("/api/v1/contact", controllers.ContactCreate(deps.MessagesSvc, logg))

	// Authenticated storefront surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authed)
		r.Use(idempotent)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.AuthGetProfile(deps.AuthSvc, logg))
			r.Patch("/", controllers.AuthUpdateProfile(deps.AuthSvc, logg))
			r.Post("/change-password", controllers.AuthChangePassword(deps.AuthSvc, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.CartSvc, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartSvc, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.CartSvc, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.CartSvc, logg))
			r.Delete("/", controllers.CartClear(deps.CartSvc, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrdersPlace(deps.OrdersSvc, logg))
			r.Get("/", controllers.OrdersListMine(deps.OrdersSvc, logg))
			r.Get("/{orderID}", controllers.OrdersGet(deps.OrdersSvc, logg))
			r.Post("/{orderID}/cancel", controllers.OrdersCancel(deps.OrdersSvc, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(deps.WishlistSvc, logg))
			r.Post("/", controllers.WishlistAdd(deps.WishlistSvc, logg))
			r.Delete("/{productID}", controllers.WishlistRemove(deps.WishlistSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsListMine(deps.Notification, logg))
			r.Get("/unread-count", controllers.NotificationsUnreadCount(deps.Notification, logg))
			r.Post("/{notificationID}/read", controllers.NotificationsMarkRead(deps.Notification, logg))
			r.Post("/read-all", controllers.NotificationsMarkAllRead(deps.Notification, logg))
		})

	})

	// Back office.
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authed)
		r.Use(middleware.RequireRole(enums.UserRoleAdmin.String(), logg))
		r.Use(idempotent)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(deps.CatalogSvc, logg))
			r.Post("/", controllers.ProductsCreate(deps.CatalogSvc, logg))
			r.Patch("/{productID}", controllers.ProductsUpdate(deps.CatalogSvc, logg))
			r.Delete("/{productID}", controllers.ProductsDelete(deps.CatalogSvc, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersListAdmin(deps.OrdersSvc, logg))
			r.Get("/{orderID}", controllers.OrdersGet(deps.OrdersSvc, logg))
			r.Patch("/{orderID}", controllers.OrdersUpdate(deps.OrdersSvc, logg))
			r.Delete("/{orderID}", controllers.OrdersDelete(deps.OrdersSvc, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(deps.UsersSvc, logg))
			r.Get("/{userID}", controllers.UsersGet(deps.UsersSvc, logg))
			r.Patch("/{userID}/role", controllers.UsersChangeRole(deps.UsersSvc, logg))
			r.Delete("/{userID}", controllers.UsersDelete(deps.UsersSvc, logg))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", controllers.MessagesList(deps.MessagesSvc, logg))
			r.Get("/{messageID}", controllers.MessagesGet(deps.MessagesSvc, logg))
			r.Post("/{messageID}/read", controllers.MessagesMarkRead(deps.MessagesSvc, logg))
			r.Post("/{messageID}/reply", controllers.MessagesReply(deps.MessagesSvc, logg))
			r.Delete("/{messageID}", controllers.MessagesDelete(deps.MessagesSvc, logg))
		})

		r.Route("/posters", func(r chi.Router) {
			r.Get("/", controllers.PostersListAll(deps.PostersSvc, logg))
			r.Post("/", controllers.PostersUpload(deps.PostersSvc, cfg.Uploads, logg))
			r.Patch("/{posterID}/active", controllers.PostersSetActive(deps.PostersSvc, logg))
			r.Delete("/{posterID}", controllers.PostersDelete(deps.PostersSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsAdminFeed(deps.Notification, logg))
			r.Post("/{notificationID}/read", controllers.NotificationsAdminMarkRead(deps.Notification, logg))
			r.Delete("/{notificationID}", controllers.NotificationsDelete(deps.Notification, logg))
		})
	})

	return r
}
