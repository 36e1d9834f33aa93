package newslettercontainer

import (
	"context"

	"github.com/Abraxas-365/mailflow/pkg/config"
	"github.com/Abraxas-365/mailflow/pkg/fsx"
	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/newsletter/newsletterapi"
	"github.com/Abraxas-365/mailflow/pkg/newsletter/newsletterinfra"
	"github.com/Abraxas-365/mailflow/pkg/newsletter/newslettersrv"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: external dependencies of the newsletter context. Optional ones are
// nil when the corresponding feature is off.
// ---------------------------------------------------------------------------

type Deps struct {
	Cfg   *config.Config
	Redis redis.UniversalClient
	Jobs  *jobx.Client

	// Sender is the email transport (primary + optional fallback).
	Sender notifx.Sender
	// HasDefaultFrom is set when Sender fills in a From address.
	HasDefaultFrom bool
	// Providers lists the names a request may pin with "provider"; empty
	// leaves the override unchecked until send time.
	Providers []string

	// DB backs the delivery ledger; nil disables deduplication.
	DB *sqlx.DB
	// FileSystem backs the report archive; nil disables archiving.
	FileSystem fsx.FileSystem
}

// ---------------------------------------------------------------------------
// Container: what cmd/ needs from the newsletter context.
// ---------------------------------------------------------------------------

type Container struct {
	Service        *newslettersrv.Service
	Workflow       *newslettersrv.Workflow
	Handlers       *newsletterapi.Handlers
	AuthMiddleware fiber.Handler

	ledger *newsletterinfra.PostgresLedger
}

// New builds the newsletter graph and registers the send job handler on
// deps.Jobs. Order: infra -> services -> handlers.
func New(deps Deps) (*Container, error) {
	logx.Info("🔧 Initializing newsletter container...")
	cfg := deps.Cfg
	c := &Container{}

	// ── Infrastructure ───────────────────────────────────────────────────

	personalizer, err := newsletter.NewPersonalizer(cfg.Dispatch.UnsubscribeBaseURL, cfg.Dispatch.UnsubscribeSecret)
	if err != nil {
		return nil, err
	}
	if cfg.Dispatch.UnsubscribeSecret == "" {
		logx.Warn("  ⚠️  NEWSLETTER_UNSUBSCRIBE_SECRET not set, unsubscribe links are unsigned")
	}

	var reporter newsletter.Reporter = newsletterinfra.NoopReporter{}
	if cfg.Reporting.BaseURL != "" {
		reporter = newsletterinfra.NewHTTPReporter(cfg.Reporting.BaseURL, cfg.Reporting.APIToken, cfg.Reporting.Timeout)
		logx.Infof("  ✅ Status reporting to %s", cfg.Reporting.BaseURL)
	} else {
		logx.Warn("  ⚠️  REPORTING_BASE_URL not set, status reports are discarded")
	}

	progress := newsletterinfra.NewRedisProgressStore(deps.Redis, cfg.Dispatch.ProgressTTL)

	var ledger newsletter.Ledger
	if deps.DB != nil && cfg.Dispatch.LedgerEnabled {
		c.ledger = newsletterinfra.NewPostgresLedger(deps.DB)
		ledger = c.ledger
		logx.Info("  ✅ Delivery ledger enabled (Postgres)")
	} else {
		logx.Warn("  ⚠️  Delivery ledger disabled, retried batches may resend")
	}

	var archive newsletter.Archive
	if deps.FileSystem != nil && cfg.Dispatch.ArchiveEnabled {
		archive = newsletterinfra.NewFSArchive(deps.FileSystem)
		logx.Info("  ✅ Delivery report archive enabled")
	}

	// ── Services ─────────────────────────────────────────────────────────

	processor := newslettersrv.NewBatchProcessor(deps.Sender, personalizer, ledger, newslettersrv.BatchOptions{
		Concurrency:   cfg.Dispatch.Concurrency,
		SubGroupDelay: cfg.Dispatch.SubGroupDelay,
	})

	c.Workflow = newslettersrv.NewWorkflow(
		processor,
		newslettersrv.NewNotifier(reporter, cfg.Reporting.Timeout),
		progress,
		archive,
		newslettersrv.WorkflowOptions{
			BatchSize:       cfg.Dispatch.BatchSize,
			BatchAttempts:   cfg.Dispatch.BatchAttempts,
			BatchRetryDelay: cfg.Dispatch.BatchRetryDelay,
		},
	)
	deps.Jobs.Register(newsletter.JobType, newslettersrv.SendJobHandler(c.Workflow))

	c.Service = newslettersrv.NewService(deps.Jobs, progress, archive, personalizer, !deps.HasDefaultFrom)
	if len(deps.Providers) > 0 {
		c.Service.AllowProviders(deps.Providers...)
	}

	// ── HTTP ─────────────────────────────────────────────────────────────

	c.Handlers = newsletterapi.NewHandlers(c.Service)
	c.AuthMiddleware = newsletterapi.ServiceTokenAuth(cfg.Server.ServiceToken)

	logx.Info("✅ Newsletter container initialized")
	return c, nil
}

// Migrate creates the ledger table when the ledger is enabled.
func (c *Container) Migrate(ctx context.Context) error {
	if c.ledger == nil {
		return nil
	}
	return c.ledger.EnsureSchema(ctx)
}
