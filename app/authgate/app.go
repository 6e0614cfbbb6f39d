package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ideatrek/authgate/core/auth"
	"github.com/ideatrek/authgate/core/config"
	"github.com/ideatrek/authgate/core/cookie"
	"github.com/ideatrek/authgate/core/diagnostics"
	"github.com/ideatrek/authgate/core/guard"
	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/health"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/response"
	"github.com/ideatrek/authgate/core/router"
	"github.com/ideatrek/authgate/core/server"
	"github.com/ideatrek/authgate/core/session"
	"github.com/ideatrek/authgate/integration/database/redis"
	"github.com/ideatrek/authgate/integration/identity"
	"github.com/ideatrek/authgate/middleware"
	"github.com/ideatrek/authgate/pkg/async"
	"github.com/ideatrek/authgate/pkg/metrics"
	"github.com/ideatrek/authgate/pkg/ratelimiter"
)

// App wires the identity provider, session stores, guard and HTTP surface.
type App struct {
	config Config
	log    *slog.Logger

	provider   session.Provider
	secret     string
	configured bool
	redis      goredis.UniversalClient
	ownsRedis  bool

	cookies   *cookie.Manager
	sessions  *session.Factory
	authn     *auth.Authenticator
	guard     *guard.Guard
	metrics   *metrics.Recorder
	diag      *diagnostics.Diagnostician
	limiter   *ratelimiter.Bucket
	memLimits *ratelimiter.MemoryStore

	pages  handler.HandlerFunc[*Context]
	router router.Router[*Context]
	server *server.Server
}

// Option configures an App.
type Option func(*App) error

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		a.log = l
		return nil
	}
}

// WithProvider replaces the identity provider selected by configuration.
// secret verifies the access tokens the provider mints; empty disables
// verification.
func WithProvider(p session.Provider, secret string) Option {
	return func(a *App) error {
		if p == nil {
			return errors.New("provider cannot be nil")
		}
		a.provider = p
		a.secret = secret
		a.configured = true
		return nil
	}
}

// WithRedisClient uses client instead of connecting with the Redis config.
func WithRedisClient(client goredis.UniversalClient) Option {
	return func(a *App) error {
		if client == nil {
			return errors.New("redis client cannot be nil")
		}
		a.redis = client
		return nil
	}
}

// WithPages sets the handler that renders guarded pages.
func WithPages(h handler.HandlerFunc[*Context]) Option {
	return func(a *App) error {
		if h == nil {
			return errors.New("pages handler cannot be nil")
		}
		a.pages = h
		return nil
	}
}

// WithServer replaces the server built from configuration.
func WithServer(s *server.Server) Option {
	return func(a *App) error {
		if s == nil {
			return errors.New("server cannot be nil")
		}
		a.server = s
		return nil
	}
}

// New builds an App from cfg. It connects to Redis when configured and
// falls back to in-memory stores otherwise.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	a := &App{
		config: cfg,
		log:    logger.ForEnv(cfg.Env, cfg.AppName, cfg.LogLevel),
		pages:  defaultPage,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if err := a.initProvider(); err != nil {
		return nil, err
	}
	if err := a.checkTokenVerification(); err != nil {
		return nil, err
	}
	if err := a.initRedis(ctx); err != nil {
		return nil, err
	}
	if err := a.initAuth(); err != nil {
		a.Close()
		return nil, err
	}
	a.initRouter()

	if a.server == nil {
		s, err := server.NewFromConfig(cfg.Server, server.WithLogger(a.log))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.server = s
	}
	return a, nil
}

func (a *App) initProvider() error {
	if a.provider != nil {
		return nil
	}
	p, secret, err := identity.New(a.config.Identity, a.config.Env, a.log)
	switch {
	case errors.Is(err, identity.ErrNotConfigured):
		a.log.Error("identity backend credentials missing, sign-in is disabled",
			logger.Component("app"))
		a.provider = identity.Unconfigured{}
		return nil
	case err != nil:
		return err
	}
	a.provider = p
	a.secret = secret
	a.configured = true
	return nil
}

// tokenSecret is the secret access tokens are verified with: the provider's
// own secret when it mints tokens, SESSION_JWT_SECRET otherwise.
func (a *App) tokenSecret() string {
	if a.secret != "" {
		return a.secret
	}
	return a.config.Session.JWTSecret
}

// checkTokenVerification refuses to run a configured production backend with
// unverified access tokens.
func (a *App) checkTokenVerification() error {
	if !a.configured || a.tokenSecret() != "" {
		return nil
	}
	if config.IsProduction(a.config.Env) {
		return fmt.Errorf("authgate: %w", session.ErrUnverifiedTokens)
	}
	a.log.Warn("access token signatures are not verified, set SESSION_JWT_SECRET",
		logger.Component("app"))
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if a.redis != nil || !a.config.Redis.Enabled() {
		return nil
	}
	client, err := redis.Connect(ctx, a.config.Redis)
	if err != nil {
		return err
	}
	a.redis = client
	a.ownsRedis = true
	a.log.Info("connected to redis", logger.Component("app"))
	return nil
}

func (a *App) initAuth() error {
	env := a.config.Env
	a.metrics = metrics.New()

	cookieOpts := []cookie.Option{cookie.WithSecure(config.IsProduction(env))}
	a.cookies = cookie.NewFromConfig(a.config.Cookie, cookieOpts...)

	sessCfg := a.config.Session
	sessCfg.JWTSecret = a.tokenSecret()
	sessOpts := []session.Option{
		session.WithConfig(sessCfg),
		session.WithLogger(a.log),
	}
	if a.redis != nil {
		sessOpts = append(sessOpts, session.WithExchangeCache(
			session.NewRedisExchangeCache(a.redis, sessCfg.RedisPrefix)))
	}
	a.sessions = session.NewFactory(a.provider, sessOpts...)

	a.authn = auth.NewFromConfig(a.provider, a.config.Auth,
		auth.WithLogger(a.log), auth.WithMetrics(a.metrics))

	guardOpts := []guard.Option{
		guard.WithEnvironment(env),
		guard.WithLogger(a.log),
		guard.WithMetrics(a.metrics),
	}
	if a.config.DebugBypass {
		guardOpts = append(guardOpts, guard.WithDebugBypass())
	}
	g, err := guard.New(guardOpts...)
	if err != nil {
		return err
	}
	a.guard = g

	var store ratelimiter.Store
	if a.redis != nil {
		store = ratelimiter.NewRedisStore(a.redis, ratelimiter.WithKeyPrefix("authgate:ratelimit:"))
	} else {
		a.memLimits = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(a.log))
		store = a.memLimits
	}
	limiter, err := ratelimiter.NewBucket(store, a.config.RateLimit)
	if err != nil {
		return err
	}
	a.limiter = limiter

	diagOpts := []diagnostics.Option{diagnostics.WithLogger(a.log)}
	for _, c := range a.checks() {
		if c.Name != "identity" {
			diagOpts = append(diagOpts, diagnostics.WithDependency(c))
		}
	}
	if a.memLimits != nil {
		diagOpts = append(diagOpts, diagnostics.WithDependency(
			health.Check{Name: "ratelimit", Fn: a.memLimits.Healthcheck}))
	}
	a.diag = diagnostics.New(diagnostics.Config{
		Environment: env,
		IdentityURL: a.config.Identity.URL,
		IdentityKey: a.config.Identity.AnonKey,
		CookieNames: a.sessions.Config().CookieNames(),
	}, a.provider.Health, diagOpts...)
	return nil
}

// checks lists the readiness probes.
func (a *App) checks() []health.Check {
	checks := []health.Check{{Name: "identity", Fn: a.provider.Health}}
	if a.redis != nil {
		checks = append(checks, health.Check{Name: "redis", Fn: redis.Healthcheck(a.redis)})
	}
	return checks
}

func (a *App) initRouter() {
	r := router.New[*Context](
		router.WithContextFactory[*Context](a.newContext),
		router.WithErrorHandler[*Context](errorHandler),
		router.WithLogger[*Context](a.log),
	)
	r.Use(
		middleware.RequestID[*Context](),
		middleware.ClientIP[*Context](),
		middleware.LoggingWithConfig[*Context](middleware.LoggingConfig{
			Logger: a.log,
			Skip: func(ctx handler.Context) bool {
				return strings.HasPrefix(ctx.Request().URL.Path, "/health")
			},
		}),
	)

	r.Get("/health/live", health.Liveness[*Context])
	r.Get("/health/ready", health.Readiness[*Context](a.log, a.checks()...))
	r.Mount("/metrics", a.metrics.Handler())

	limited := middleware.RateLimit[*Context](middleware.RateLimitConfig{
		Limiter:    a.limiter,
		SetHeaders: true,
		Logger:     a.log,
		Metrics:    a.metrics,
		KeyExtractor: func(ctx handler.Context) string {
			ip, _ := middleware.GetClientIP(ctx)
			return "auth:" + ip
		},
	})

	r.Route("/api/auth", func(api router.Router[*Context]) {
		api.With(limited).Post("/signin", a.apiSignIn)
		api.With(limited).Post("/signup", a.apiSignUp)
		api.With(limited).Post("/reset", a.apiReset)
		api.Post("/signout", a.apiSignOut)
		api.Get("/session", a.apiSession)
		api.Get("/status", a.apiStatus)
		api.Get("/diagnose", a.apiDiagnose)
		api.Post("/cookie-test", a.apiCookieTest)
	})

	r.Group(func(pages router.Router[*Context]) {
		pages.Use(middleware.AuthGuard[*Context](middleware.AuthGuardConfig{
			Guard:              a.guard,
			Sessions:           a.sessions,
			Cookies:            a.cookies,
			IdentityConfigured: a.configured,
			Logger:             a.log,
		}))
		pages.Get(guard.CallbackPath, a.callback)
		pages.With(limited).Post(guard.SignInPath, a.formSignIn)
		pages.Get(guard.SignInPath, a.pages)
		pages.Get("/", a.pages)
		pages.Get("/dashboard", a.pages)
		pages.Get("/dashboard/*", a.pages)
		pages.Get("/landing", a.pages)
		pages.Get("/landing/*", a.pages)
	})

	a.router = r
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Routes lists the registered routes.
func (a *App) Routes() []router.Route {
	return a.router.Routes()
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.log
}

// Run serves HTTP until ctx is cancelled, running the in-memory rate limit
// cleanup alongside when Redis is not used.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.log.Info("starting authgate",
		logger.Component("app"),
		slog.String("env", a.config.Env),
		slog.String("addr", a.config.Server.Addr),
		slog.Bool("identity_configured", a.configured),
		slog.Bool("redis", a.redis != nil))

	futures := []*async.ExecFuture{
		async.Exec(ctx, a.server, func(ctx context.Context, s *server.Server) error {
			defer cancel()
			return s.Run(ctx, a.Handler())()
		}),
	}
	if a.memLimits != nil {
		futures = append(futures, async.Exec(ctx, a.memLimits, func(ctx context.Context, m *ratelimiter.MemoryStore) error {
			return m.Run(ctx)()
		}))
	}
	return async.ExecAll(futures...)
}

// Close releases the Redis connection if the App opened it.
func (a *App) Close() {
	if a.ownsRedis && a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", logger.Component("app"), logger.Error(err))
		}
		a.ownsRedis = false
	}
}

// errorHandler renders JSON for API routes and plain text elsewhere.
func errorHandler(ctx *Context, err error) {
	if strings.HasPrefix(ctx.Request().URL.Path, "/api/") {
		response.JSONErrorHandler(ctx, err)
		return
	}
	response.ErrorHandler(ctx, err)
}
