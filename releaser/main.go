package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shipline-labs/shipline/internal/build"
	"github.com/shipline-labs/shipline/internal/collect"
	"github.com/shipline-labs/shipline/internal/gate"
	"github.com/shipline-labs/shipline/internal/instruct"
	"github.com/shipline-labs/shipline/internal/pipeline"
	"github.com/shipline-labs/shipline/internal/platform/auth"
	"github.com/shipline-labs/shipline/internal/platform/env"
	"github.com/shipline-labs/shipline/internal/platform/httpserver"
	"github.com/shipline-labs/shipline/internal/platform/objectstore"
	platformpg "github.com/shipline-labs/shipline/internal/platform/postgres"
	"github.com/shipline-labs/shipline/internal/publish"
	repopg "github.com/shipline-labs/shipline/internal/repo/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("SHIPLINE_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("SHIPLINE_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := platformpg.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := platformpg.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := repopg.EnsureSchema(schemaCtx, db); err != nil {
		cancel()
		logger.Error("schema init failed", "error", err)
		os.Exit(1)
	}
	cancel()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}

	var (
		provider   publish.StoreProvider
		readyCheck func(context.Context) error
	)
	identityTokenURL := strings.TrimSpace(env.String("SHIPLINE_IDENTITY_TOKEN_URL", ""))
	if identityTokenURL != "" {
		idCfg := publish.STSIdentityConfig{
			STSEndpoint:  env.String("SHIPLINE_IDENTITY_STS_ENDPOINT", ""),
			TokenURL:     identityTokenURL,
			ClientID:     env.String("SHIPLINE_IDENTITY_CLIENT_ID", ""),
			ClientSecret: env.String("SHIPLINE_IDENTITY_CLIENT_SECRET", ""),
			Scopes:       env.Strings("SHIPLINE_IDENTITY_SCOPES", nil),
		}
		stsProvider, err := publish.NewSTSStoreProvider(storeCfg, idCfg)
		if err != nil {
			logger.Error("invalid upload identity config", "error", err)
			os.Exit(2)
		}
		provider = stsProvider
	} else {
		if !storeCfg.HasStaticCredentials() {
			logger.Error("object store credentials required without an identity provider")
			os.Exit(2)
		}
		staticProvider, err := publish.NewStaticStoreProvider(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		provider = staticProvider

		storeClient, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := objectstore.EnsureBucket(startupCtx, storeClient, storeCfg); err != nil {
			cancel()
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
		cancel()
		readyCheck = func(ctx context.Context) error {
			checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return objectstore.CheckBucket(checkCtx, storeClient, storeCfg)
		}
	}

	var authenticator auth.Authenticator
	issuerURL := strings.TrimSpace(env.String("SHIPLINE_OIDC_ISSUER_URL", ""))
	if issuerURL != "" {
		oidcAuth, err := auth.NewOIDCAuthenticator(ctx, auth.OIDCConfig{
			IssuerURL:  issuerURL,
			ClientID:   env.String("SHIPLINE_OIDC_CLIENT_ID", ""),
			EmailClaim: env.String("SHIPLINE_OIDC_EMAIL_CLAIM", "email"),
		})
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(2)
		}
		authenticator = oidcAuth
	} else {
		staticAuth, err := auth.NewStaticTokenAuthenticator(
			env.String("SHIPLINE_API_TOKEN", ""),
			env.String("SHIPLINE_API_TOKEN_SUBJECT", "ci"),
		)
		if err != nil {
			logger.Error("missing auth config", "env", "SHIPLINE_OIDC_ISSUER_URL or SHIPLINE_API_TOKEN")
			os.Exit(2)
		}
		authenticator = staticAuth
	}

	webhookSecret := env.String("SHIPLINE_WEBHOOK_SECRET", "")
	if webhookSecret == "" {
		logger.Error("missing webhook secret", "env", "SHIPLINE_WEBHOOK_SECRET")
		os.Exit(2)
	}
	webhookMaxSkew, err := env.Duration("SHIPLINE_WEBHOOK_MAX_SKEW", 5*time.Minute)
	if err != nil {
		logger.Error("invalid webhook max skew", "error", err)
		os.Exit(2)
	}

	product := env.String("SHIPLINE_PRODUCT", "shipline")
	matrix := build.DefaultMatrix(env.String("SHIPLINE_BUILD_SCRIPT", "./scripts/build.sh"))
	if matrixPath := strings.TrimSpace(env.String("SHIPLINE_BUILD_MATRIX", "")); matrixPath != "" {
		matrix, err = build.LoadMatrix(matrixPath)
		if err != nil {
			logger.Error("invalid build matrix", "path", matrixPath, "error", err)
			os.Exit(2)
		}
	}
	targets, err := matrix.TargetList()
	if err != nil {
		logger.Error("invalid build matrix", "error", err)
		os.Exit(2)
	}

	buildTimeout, err := env.Duration("SHIPLINE_BUILD_TIMEOUT", 30*time.Minute)
	if err != nil {
		logger.Error("invalid build timeout", "error", err)
		os.Exit(2)
	}
	runTimeout, err := env.Duration("SHIPLINE_RUN_TIMEOUT", time.Hour)
	if err != nil {
		logger.Error("invalid run timeout", "error", err)
		os.Exit(2)
	}
	buildOnRejection, err := env.Bool("SHIPLINE_BUILD_ON_REJECTION", true)
	if err != nil {
		logger.Error("invalid build-on-rejection flag", "error", err)
		os.Exit(2)
	}

	builder, err := build.NewCommandBuilder(matrix, product, env.String("SHIPLINE_BUILD_OUTPUT_DIR", "/var/lib/shipline/builds"))
	if err != nil {
		logger.Error("builder init failed", "error", err)
		os.Exit(2)
	}
	coordinator, err := build.NewCoordinator(builder, buildTimeout, logger)
	if err != nil {
		logger.Error("coordinator init failed", "error", err)
		os.Exit(2)
	}
	collector, err := collect.NewCollector(env.String("SHIPLINE_STAGING_DIR", "/var/lib/shipline/staging"))
	if err != nil {
		logger.Error("collector init failed", "error", err)
		os.Exit(2)
	}

	locker, err := repopg.NewAdvisoryLocker(db)
	if err != nil {
		logger.Error("locker init failed", "error", err)
		os.Exit(2)
	}
	publisher, err := publish.NewPublisher(provider, locker, storeCfg.BucketReleases, logger)
	if err != nil {
		logger.Error("publisher init failed", "error", err)
		os.Exit(2)
	}
	renderer, err := instruct.NewRenderer(env.String("SHIPLINE_INSTALL_HOST", "install.shipline.dev"), product)
	if err != nil {
		logger.Error("renderer init failed", "error", err)
		os.Exit(2)
	}

	canonicalRepo := env.String("SHIPLINE_CANONICAL_REPO", "shipline-labs/shipline")
	p, err := pipeline.New(
		gate.New(canonicalRepo),
		coordinator,
		collector,
		publisher,
		renderer,
		pipeline.Config{Targets: targets, BuildOnRejection: buildOnRejection},
		logger,
	)
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		os.Exit(2)
	}

	runs, err := repopg.NewRunStore(db)
	if err != nil {
		logger.Error("run store init failed", "error", err)
		os.Exit(2)
	}
	intake, err := repopg.NewIntakeStore(db)
	if err != nil {
		logger.Error("intake store init failed", "error", err)
		os.Exit(2)
	}

	pipelineRunner := newRunner(logger, p, runs, db, runTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("releaser"))
	readinessChecks := []httpserver.ReadinessCheck{
		{
			Name: "postgres",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return db.PingContext(checkCtx)
			},
		},
	}
	if readyCheck != nil {
		readinessChecks = append(readinessChecks, httpserver.ReadinessCheck{Name: "minio", Check: readyCheck})
	}
	mux.HandleFunc("/readyz", httpserver.ReadyzWithChecks("releaser", readinessChecks...))

	api := newReleaserAPI(logger, runs, intake, pipelineRunner, webhookSecret, webhookMaxSkew)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		SkipPrefixes:  []string{"/healthz", "/readyz"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "releaser",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "releaser", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	pipelineRunner.Wait()
}
