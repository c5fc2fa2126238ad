package main

import (
	"fmt"
	"io"
	"log/slog"
	_ "net/http/pprof"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ytfilter/sieve/cachestore"
	"github.com/ytfilter/sieve/classifier"
	"github.com/ytfilter/sieve/filter"
	"github.com/ytfilter/sieve/filter/dictstore"
	"github.com/ytfilter/sieve/youtube"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
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
		Name:    "sieve",
		Usage:   "video comment moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"SIEVE_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.IntFlag{
			Name:    "strictness-level",
			Usage:   "moderation strictness, 1 (mask only) through 5 (delete)",
			Value:   filter.DefaultLevel,
			EnvVars: []string{"SIEVE_STRICTNESS_LEVEL", "CURRENT_STRENGTH"},
		},
		&cli.Float64Flag{
			Name:    "risk-threshold",
			Usage:   "risk score (0.0 to 1.0) at or above which the strictness level applies",
			Value:   filter.DefaultThreshold,
			EnvVars: []string{"SIEVE_RISK_THRESHOLD", "RISK_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "user-dictionary",
			Usage:   "path to user whitelist/blacklist file (JSON or YAML)",
			Value:   "resources/dictionaries/user_dictionary.json",
			EnvVars: []string{"SIEVE_USER_DICTIONARY"},
		},
		&cli.StringFlag{
			Name:    "system-dictionary",
			Usage:   "path to categorized system word list file (JSON or YAML)",
			Value:   "resources/dictionaries/system_dictionary.json",
			EnvVars: []string{"SIEVE_SYSTEM_DICTIONARY"},
		},
		&cli.StringFlag{
			Name:    "rules-file",
			Usage:   "optional path to classifier category rules (JSON or YAML); built-in rules are used if not set",
			EnvVars: []string{"SIEVE_RULES_FILE"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "API key for the classifier; second pass is disabled if not set",
			EnvVars: []string{"SIEVE_OPENAI_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Usage:   "base URL of OpenAI-compatible API",
			Value:   classifier.DefaultOpenAIBaseURL,
			EnvVars: []string{"SIEVE_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Usage:   "classifier model name",
			Value:   classifier.DefaultOpenAIModel,
			EnvVars: []string{"SIEVE_OPENAI_MODEL"},
		},
		&cli.DurationFlag{
			Name:    "classifier-timeout",
			Usage:   "per-comment timeout for classifier calls; timeouts are treated as no detections",
			Value:   filter.DefaultClassifierTimeout,
			EnvVars: []string{"SIEVE_CLASSIFIER_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "optional redis connection URL for shared caches: redis://<user>:<pass>@<hostname>:6379/<db>",
			EnvVars: []string{"SIEVE_REDIS_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "memcached-servers",
			Usage:   "optional memcached servers (host:port) for shared caches, used if no redis URL is set",
			EnvVars: []string{"SIEVE_MEMCACHED_SERVERS"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "how long classifier verdicts and video metadata are cached",
			Value:   time.Hour,
			EnvVars: []string{"SIEVE_CACHE_TTL"},
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		checkCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func configCache(cctx *cli.Context) (cachestore.Store, error) {
	ttl := cctx.Duration("cache-ttl")
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		return cachestore.NewRedisStore(cctx.Context, redisURL, cachestore.DefaultKeyPrefix, ttl)
	}
	if servers := cctx.StringSlice("memcached-servers"); len(servers) > 0 {
		return cachestore.NewMemcachedStore(servers, cachestore.DefaultKeyPrefix, ttl), nil
	}
	return cachestore.NewMemStore(10_000, ttl), nil
}

// builds the moderation pipeline from global flags. Fails only on invalid
// configuration; missing dictionaries degrade to empty word lists.
func configPipeline(cctx *cli.Context, logger *slog.Logger, cache cachestore.Store) (*filter.Pipeline, error) {
	pc := filter.PolicyConfig{
		Level:     cctx.Int("strictness-level"),
		Threshold: cctx.Float64("risk-threshold"),
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	dict := dictstore.Load(cctx.String("user-dictionary"), cctx.String("system-dictionary"), logger)

	rules := classifier.DefaultRules()
	if p := cctx.String("rules-file"); p != "" {
		var err error
		rules, err = classifier.LoadRules(p)
		if err != nil {
			return nil, err
		}
	}

	var c classifier.Classifier = classifier.Noop{}
	if key := cctx.String("openai-api-key"); key != "" {
		c = classifier.NewOpenAIClassifier(
			cctx.String("openai-base-url"),
			key,
			cctx.String("openai-model"),
			cctx.Duration("classifier-timeout"),
			logger,
		)
		if cache != nil {
			c = classifier.NewCachedClassifier(c, cache, logger)
		}
	} else {
		logger.Warn("no classifier API key configured, second pass will not detect anything")
	}

	return filter.NewPipeline(filter.PipelineConfig{
		Dictionary:        dict,
		Tokenizer:         filter.NewRuleTokenizer(dict),
		Classifier:        c,
		Rules:             rules,
		ClassifierTimeout: cctx.Duration("classifier-timeout"),
		Policy:            pc,
		Logger:            logger,
	})
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the sieve HTTP API daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "bind",
			Usage:    "Specify the local IP/port to bind to",
			Required: false,
			Value:    ":8000",
			EnvVars:  []string{"SIEVE_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"SIEVE_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "youtube-api-key",
			Usage:   "YouTube Data API key; video endpoints are unavailable if not set",
			EnvVars: []string{"SIEVE_YOUTUBE_API_KEY", "YOUTUBE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "youtube-base-url",
			Usage:   "base URL of the YouTube Data API",
			Value:   youtube.DefaultBaseURL,
			EnvVars: []string{"SIEVE_YOUTUBE_BASE_URL"},
		},
		&cli.Float64Flag{
			Name:    "youtube-rate-limit",
			Usage:   "max number of requests per second to the YouTube Data API",
			Value:   5,
			EnvVars: []string{"SIEVE_YOUTUBE_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "batch-concurrency",
			Usage:   "number of comments analyzed concurrently when processing a video",
			Value:   8,
			EnvVars: []string{"SIEVE_BATCH_CONCURRENCY"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx, os.Stdout)
		shutdownOTEL := configOTEL("sieve")
		defer shutdownOTEL()

		cache, err := configCache(cctx)
		if err != nil {
			return fmt.Errorf("failed to configure cache: %w", err)
		}
		pipeline, err := configPipeline(cctx, logger, cache)
		if err != nil {
			return fmt.Errorf("failed to configure pipeline: %w", err)
		}

		var yt *youtube.Client
		if key := cctx.String("youtube-api-key"); key != "" {
			yt = youtube.NewClient(youtube.ClientConfig{
				APIKey:    key,
				BaseURL:   cctx.String("youtube-base-url"),
				RateLimit: cctx.Float64("youtube-rate-limit"),
				Cache:     cache,
				Logger:    logger,
			})
		} else {
			logger.Warn("no YouTube API key configured, video endpoints will be unavailable")
		}

		srv, err := NewServer(
			Config{
				Logger:           logger,
				Pipeline:         pipeline,
				YouTube:          yt,
				Bind:             cctx.String("bind"),
				BatchConcurrency: cctx.Int("batch-concurrency"),
			},
		)
		if err != nil {
			return fmt.Errorf("failed to construct server: %v", err)
		}

		// prometheus HTTP endpoint: /metrics
		go func() {
			runtime.SetBlockProfileRate(10)
			runtime.SetMutexProfileFraction(10)
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.RunAPI()
	},
}
