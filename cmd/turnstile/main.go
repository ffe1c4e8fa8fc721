package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fakacrm/turnstile/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "turnstile",
		Usage:   "group chat gatekeeper (new member challenges, banned words, kicks)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"TURNSTILE_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			EnvVars: []string{"TURNSTILE_LOG_FMT", "LOG_FMT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkTextCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the bot",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "telegram-token",
			Usage:    "Telegram Bot API token",
			Required: true,
			EnvVars:  []string{"TELEGRAM_BOT_TOKEN", "TELOXIDE_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "telegram-rate-limit",
			Usage:   "max number of outbound requests per second to the Telegram Bot API",
			Value:   20,
			EnvVars: []string{"TURNSTILE_TELEGRAM_RATE_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "verify-deadline",
			Usage:   "how long new members have to answer their challenge",
			Value:   5 * time.Minute,
			EnvVars: []string{"TURNSTILE_VERIFY_DEADLINE"},
		},
		&cli.IntFlag{
			Name:    "challenge-min",
			Usage:   "smallest operand in challenge questions",
			Value:   1,
			EnvVars: []string{"TURNSTILE_CHALLENGE_MIN"},
		},
		&cli.IntFlag{
			Name:    "challenge-max",
			Usage:   "largest operand in challenge questions",
			Value:   10,
			EnvVars: []string{"TURNSTILE_CHALLENGE_MAX"},
		},
		&cli.BoolFlag{
			Name:    "kick-admins-only",
			Usage:   "only chat administrators may use the /kick command",
			Value:   true,
			EnvVars: []string{"TURNSTILE_KICK_ADMINS_ONLY"},
		},
		&cli.StringFlag{
			Name:    "banned-words-json",
			Usage:   "path to JSON file with named sets; the 'banned-substrings' set replaces the built-in list",
			EnvVars: []string{"TURNSTILE_BANNED_WORDS_JSON", "TURNSTILE_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL, for counters, flags, and update de-duplication",
			EnvVars: []string{"TURNSTILE_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook for moderator notifications",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"TURNSTILE_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"TURNSTILE_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			shutdown, err := setupTracing(ctx, ep)
			if err != nil {
				return err
			}
			defer shutdown()
		}

		srv, err := NewServer(Config{
			Logger:            logger,
			TelegramToken:     cctx.String("telegram-token"),
			TelegramRateLimit: cctx.Int("telegram-rate-limit"),
			VerifyDeadline:    cctx.Duration("verify-deadline"),
			ChallengeMin:      cctx.Int("challenge-min"),
			ChallengeMax:      cctx.Int("challenge-max"),
			KickAdminsOnly:    cctx.Bool("kick-admins-only"),
			SetsFileJSON:      cctx.String("banned-words-json"),
			RedisURL:          cctx.String("redis-url"),
			SlackWebhookURL:   cctx.String("slack-webhook-url"),
			Bind:              cctx.String("bind"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run turnstile service: %w", err)
		}
		return nil
	},
}

func setupTracing(ctx context.Context, endpoint string) (func(), error) {
	slog.Info("setting up trace exporter", "endpoint", endpoint)

	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("turnstile"),
			attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
			attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
		)),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown trace exporter", "error", err)
		}
	}, nil
}
