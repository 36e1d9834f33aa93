// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, FS, email, jobs)
// and composes bounded-context containers.
package main

import (
	"context"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/config"
	"github.com/Abraxas-365/mailflow/pkg/fsx"
	"github.com/Abraxas-365/mailflow/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/mailflow/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter/newslettercontainer"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	S3Client   *s3.Client
	Email      *notifx.Client
	Jobs       *jobx.Client

	// Bounded-context containers
	Newsletter *newslettercontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, file storage, email, jobs
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database (optional, backs the delivery ledger)
	if c.Config.Database.Enabled {
		db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
		db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
		c.DB = db
		logx.Info("  ✅ Database connected")
	} else {
		logx.Warn("  ⚠️  Database disabled (DB_ENABLED=false)")
	}

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. File storage
	c.initFileStorage()

	// 4. Email transport
	c.initEmail()

	// 5. Job queue
	c.initJobs()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initFileStorage() {
	storage := c.Config.Storage

	switch storage.Mode {
	case "s3":
		cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(storage.Region))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(cfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, storage.Bucket, "")
		logx.Infof("  ✅ S3 file system configured (bucket: %s, region: %s)", storage.Bucket, storage.Region)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(storage.UploadDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", localFS.GetBasePath())

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", storage.Mode)
	}
}

func (c *Container) initEmail() {
	n := c.Config.Notifx
	ctx := context.Background()

	primary, err := buildEmailProvider(ctx, n, n.Provider)
	if err != nil {
		logx.Fatalf("Failed to initialize email provider %q: %v", n.Provider, err)
	}

	opts := []notifx.ClientOption{}
	if n.FallbackProvider != "" && !strings.EqualFold(n.FallbackProvider, n.Provider) {
		fallback, err := buildEmailProvider(ctx, n, n.FallbackProvider)
		if err != nil {
			logx.Fatalf("Failed to initialize fallback email provider %q: %v", n.FallbackProvider, err)
		}
		opts = append(opts, notifx.WithFallback(fallback))
	}
	for _, name := range n.ExtraProviders {
		if strings.EqualFold(name, n.Provider) || strings.EqualFold(name, n.FallbackProvider) {
			continue
		}
		extra, err := buildEmailProvider(ctx, n, name)
		if err != nil {
			logx.Fatalf("Failed to initialize extra email provider %q: %v", name, err)
		}
		opts = append(opts, notifx.WithExtraProvider(extra))
	}
	if from := defaultFrom(n); from != "" {
		opts = append(opts, notifx.WithDefaultFrom(from))
	}

	client, err := notifx.NewClient(primary, opts...)
	if err != nil {
		logx.Fatalf("Failed to initialize email client: %v", err)
	}
	c.Email = client
	logx.Infof("  ✅ Email provider: %s", client.Primary())
	if fb := client.Fallback(); fb != "" {
		logx.Infof("  ✅ Email fallback provider: %s", fb)
	}
	logx.Infof("  ✅ Selectable email providers: %s", strings.Join(client.Providers(), ", "))
}

func (c *Container) initJobs() {
	j := c.Config.Jobx

	queue := jobxredis.NewRedisQueue(c.Redis, jobxredis.WithFinishedTTL(c.Config.Dispatch.ProgressTTL))
	c.Jobs = jobx.NewClient(queue,
		jobx.WithQueues(j.Queues...),
		jobx.WithConcurrency(j.Concurrency),
		jobx.WithPollInterval(j.PollInterval),
		jobx.WithDequeueTimeout(j.DequeueTimeout),
		jobx.WithShutdownTimeout(j.ShutdownTimeout),
		jobx.WithRetryPolicy(jobx.RetryPolicy{
			MaxAttempts:  j.MaxAttempts,
			InitialDelay: j.RetryInitialDelay,
			MaxDelay:     j.RetryMaxDelay,
			Multiplier:   j.RetryMultiplier,
		}),
	)
	logx.Infof("  ✅ Job queue configured (queues: %s, workers: %d)", strings.Join(j.Queues, ","), j.Concurrency)
}

// ---------------------------------------------------------------------------
// Module composition: each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	newsletters, err := newslettercontainer.New(newslettercontainer.Deps{
		Cfg:            c.Config,
		Redis:          c.Redis,
		Jobs:           c.Jobs,
		Sender:         c.Email,
		HasDefaultFrom: defaultFrom(c.Config.Notifx) != "",
		Providers:      c.Email.Providers(),
		DB:             c.DB,
		FileSystem:     c.FileSystem,
	})
	if err != nil {
		logx.Fatalf("Failed to initialize newsletter module: %v", err)
	}
	if err := newsletters.Migrate(context.Background()); err != nil {
		logx.Fatalf("Failed to migrate newsletter schema: %v", err)
	}
	c.Newsletter = newsletters
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartBackgroundServices runs the job workers until ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) <-chan struct{} {
	logx.Info("🔄 Starting background services...")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Jobs.Start(ctx); err != nil {
			logx.Errorf("Job workers stopped: %v", err)
			return
		}
		logx.Info("  ✅ Job workers stopped")
	}()
	return done
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}

func repeatString(s string, count int) string {
	return strings.Repeat(s, count)
}
