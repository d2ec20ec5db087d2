// Command releasectl runs one release pipeline to completion and prints the
// install instructions. It is the local and CI-job counterpart of the
// releaser daemon: same pipeline, synchronous, no HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shipline-labs/shipline/internal/build"
	"github.com/shipline-labs/shipline/internal/collect"
	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/gate"
	"github.com/shipline-labs/shipline/internal/instruct"
	"github.com/shipline-labs/shipline/internal/pipeline"
	"github.com/shipline-labs/shipline/internal/platform/env"
	"github.com/shipline-labs/shipline/internal/platform/objectstore"
	platformpg "github.com/shipline-labs/shipline/internal/platform/postgres"
	"github.com/shipline-labs/shipline/internal/publish"
	repopg "github.com/shipline-labs/shipline/internal/repo/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var (
		kindFlag     = flag.String("kind", "push", "trigger kind: push or pull_request")
		revisionFlag = flag.String("revision", "", "revision to build and publish")
		branchFlag   = flag.String("branch", "", "branch name (push events)")
		prFlag       = flag.Int("pr", 0, "pull request number (pull_request events)")
		originFlag   = flag.String("origin", "", "origin repository of the revision")
		optInFlag    = flag.Bool("opt-in", false, "pull request carries the publication opt-in signal")
	)
	flag.Parse()

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kind, err := domain.ParseTriggerKind(*kindFlag)
	if err != nil {
		logger.Error("invalid trigger kind", "error", err)
		os.Exit(2)
	}
	event := domain.TriggerEvent{
		Kind:       kind,
		Revision:   strings.TrimSpace(*revisionFlag),
		Branch:     strings.TrimSpace(*branchFlag),
		PRNumber:   *prFlag,
		OriginRepo: strings.TrimSpace(*originFlag),
		OptIn:      *optInFlag,
	}
	if err := event.Validate(); err != nil {
		logger.Error("invalid trigger event", "error", err)
		os.Exit(2)
	}

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}

	var provider publish.StoreProvider
	identityTokenURL := strings.TrimSpace(env.String("SHIPLINE_IDENTITY_TOKEN_URL", ""))
	if identityTokenURL != "" {
		idCfg := publish.STSIdentityConfig{
			STSEndpoint:  env.String("SHIPLINE_IDENTITY_STS_ENDPOINT", ""),
			TokenURL:     identityTokenURL,
			ClientID:     env.String("SHIPLINE_IDENTITY_CLIENT_ID", ""),
			ClientSecret: env.String("SHIPLINE_IDENTITY_CLIENT_SECRET", ""),
			Scopes:       env.Strings("SHIPLINE_IDENTITY_SCOPES", nil),
		}
		provider, err = publish.NewSTSStoreProvider(storeCfg, idCfg)
		if err != nil {
			logger.Error("invalid upload identity config", "error", err)
			os.Exit(2)
		}
	} else {
		provider, err = publish.NewStaticStoreProvider(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
	}

	// Without a database the CLI runs standalone: no sticky opt-in lookup
	// and no cross-process pointer serialization.
	var locker publish.PointerLocker = publish.NopLocker{}
	if strings.TrimSpace(os.Getenv("SHIPLINE_DATABASE_URL")) != "" {
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

		advisory, err := repopg.NewAdvisoryLocker(db)
		if err != nil {
			logger.Error("locker init failed", "error", err)
			os.Exit(2)
		}
		locker = advisory

		if event.Kind == domain.TriggerPullRequest {
			optIns, err := repopg.NewOptInStore(db)
			if err != nil {
				logger.Error("opt-in store init failed", "error", err)
				os.Exit(2)
			}
			if event.OptIn {
				if err := optIns.MarkOptIn(ctx, event.PRNumber); err != nil {
					logger.Error("persist opt-in failed", "error", err)
					os.Exit(1)
				}
			}
			optedIn, err := optIns.HasOptIn(ctx, event.PRNumber)
			if err != nil {
				logger.Error("read opt-in failed", "error", err)
				os.Exit(1)
			}
			event.OptIn = optedIn
		}
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
	buildOnRejection, err := env.Bool("SHIPLINE_BUILD_ON_REJECTION", true)
	if err != nil {
		logger.Error("invalid build-on-rejection flag", "error", err)
		os.Exit(2)
	}

	builder, err := build.NewCommandBuilder(matrix, product, env.String("SHIPLINE_BUILD_OUTPUT_DIR", os.TempDir()+"/shipline-builds"))
	if err != nil {
		logger.Error("builder init failed", "error", err)
		os.Exit(2)
	}
	coordinator, err := build.NewCoordinator(builder, buildTimeout, logger)
	if err != nil {
		logger.Error("coordinator init failed", "error", err)
		os.Exit(2)
	}
	collector, err := collect.NewCollector(env.String("SHIPLINE_STAGING_DIR", os.TempDir()+"/shipline-staging"))
	if err != nil {
		logger.Error("collector init failed", "error", err)
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

	run, err := domain.NewPipelineRun(event)
	if err != nil {
		logger.Error("invalid trigger event", "error", err)
		os.Exit(2)
	}

	outcome, err := p.Execute(ctx, run)
	if err != nil {
		logger.Error("pipeline run failed",
			"run_id", run.ID,
			"revision", run.Event.Revision,
			"status", string(outcome.Status),
			"error", err,
		)
		os.Exit(outcome.ExitCode())
	}

	logger.Info("pipeline run finished",
		"run_id", run.ID,
		"revision", run.Event.Revision,
		"status", string(outcome.Status),
		"published_keys", len(outcome.Receipt.Keys),
	)
	if outcome.Status == domain.RunStatusRejectedUnpublished {
		fmt.Printf("run %s: %s (%s)\n", run.ID, outcome.Status, outcome.Decision.Reason)
	}
	if outcome.Instructions != "" {
		fmt.Println(outcome.Instructions)
	}
	os.Exit(outcome.ExitCode())
}
