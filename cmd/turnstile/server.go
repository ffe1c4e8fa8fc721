package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fakacrm/turnstile/automod"
	"github.com/fakacrm/turnstile/automod/cachestore"
	"github.com/fakacrm/turnstile/automod/challenge"
	"github.com/fakacrm/turnstile/automod/consumer"
	"github.com/fakacrm/turnstile/automod/countstore"
	"github.com/fakacrm/turnstile/automod/flagstore"
	"github.com/fakacrm/turnstile/automod/keyword"
	"github.com/fakacrm/turnstile/automod/setstore"
	"github.com/fakacrm/turnstile/automod/telegram"
	"github.com/fakacrm/turnstile/automod/verify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/sync/errgroup"
)

// name of the set (in the sets JSON file) holding banned substrings
const bannedSetName = "banned-substrings"

// collectors register with the default prometheus registry, which only accepts them once per process
var apiMetricsMiddleware = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("turnstile")
})

type Server struct {
	logger   *slog.Logger
	engine   *automod.Engine
	consumer *consumer.TelegramConsumer
	echo     *echo.Echo
	httpd    *http.Server
	rdb      *redis.Client
}

type Config struct {
	Logger            *slog.Logger
	TelegramToken     string
	TelegramRateLimit int
	VerifyDeadline    time.Duration
	ChallengeMin      int
	ChallengeMax      int
	KickAdminsOnly    bool
	SetsFileJSON      string
	RedisURL          string
	SlackWebhookURL   string
	Bind              string
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// long-poll requests hold the connection for up to a minute
	bot, err := tgbotapi.NewBotAPIWithClient(config.TelegramToken, tgbotapi.APIEndpoint, &http.Client{
		Timeout:   90 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram bot API: %w", err)
	}
	logger.Info("authorized with telegram", "bot", bot.Self.UserName)

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %w", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
	}
	filter, err := loadFilter(context.Background(), sets)
	if err != nil {
		return nil, err
	}
	logger.Info("configured banned substrings", "count", filter.Len())

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		ctx := context.Background()

		cnt, err := countstore.NewRedisCountStore(ctx, rdb)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %w", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(ctx, rdb, 24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %w", err)
		}
		cache = csh

		flg, err := flagstore.NewRedisFlagStore(ctx, rdb)
		if err != nil {
			return nil, fmt.Errorf("initializing redis flagstore: %w", err)
		}
		flags = flg
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(50_000, 24*time.Hour)
		flags = flagstore.NewMemFlagStore()
	}

	var notifier automod.Notifier
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack moderator notifications")
		notifier = automod.NewSlackNotifier(config.SlackWebhookURL)
	}

	engine := automod.Engine{
		Logger:   logger,
		Client:   telegram.NewClient(bot, config.TelegramRateLimit),
		Registry: verify.NewMemRegistry(),
		Challenges: challenge.Generator{
			Min: config.ChallengeMin,
			Max: config.ChallengeMax,
		},
		Filter:   filter,
		Counters: counters,
		Flags:    flags,
		Notifier: notifier,
		Config: automod.EngineConfig{
			VerifyDeadline: config.VerifyDeadline,
			KickAdminsOnly: config.KickAdminsOnly,
		},
	}

	s := &Server{
		logger: logger,
		engine: &engine,
		consumer: &consumer.TelegramConsumer{
			Logger: logger.With("component", "consumer"),
			Engine: &engine,
			Bot:    bot,
			Cache:  cache,
		},
		rdb: rdb,
	}
	s.setupAPI(config.Bind)

	return s, nil
}

func loadFilter(ctx context.Context, sets setstore.SetStore) (*keyword.Matcher, error) {
	banned, err := sets.Members(ctx, bannedSetName)
	if err != nil {
		return nil, fmt.Errorf("reading banned substrings: %w", err)
	}
	if len(banned) == 0 {
		banned = keyword.DefaultBannedSubstrings
	}
	return keyword.NewMatcher(banned), nil
}

func (s *Server) setupAPI(bind string) {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	s.echo = e
	s.httpd = &http.Server{
		Handler:        s,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(apiMetricsMiddleware())
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.HandleHealthCheck)
	e.GET("/pending", s.HandlePending)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	s.echo.ServeHTTP(rw, req)
}

// Runs the update consumer and the admin API until the context is cancelled or the process receives SIGINT/SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.consumer.Run(gctx)
		// update polling ended; take the API down with it
		stop()
		return err
	})

	g.Go(func() error {
		s.logger.Info("starting admin API", "bind", s.httpd.Addr)
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		return s.Shutdown()
	})

	err := g.Wait()
	if s.rdb != nil {
		if cerr := s.rdb.Close(); cerr != nil {
			s.logger.Warn("closing redis client", "err", cerr)
		}
	}
	if err == nil {
		s.logger.Info("graceful shutdown complete", "pending", s.engine.PendingCount())
	}
	return err
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpd.Shutdown(ctx)
}
