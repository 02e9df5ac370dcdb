package app

import (
	"context"
	"fmt"

	"github.com/marcelomcerri-bot/feridas/internal/app/metrics"
	"github.com/marcelomcerri-bot/feridas/internal/app/services/assessment"
	"github.com/marcelomcerri-bot/feridas/internal/app/services/images"
	"github.com/marcelomcerri-bot/feridas/internal/app/services/vision"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage/memory"
	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil store defaults to the
// in-memory implementation.
type Stores struct {
	Assessments storage.Store
}

// Application ties domain services together.
type Application struct {
	log *logger.Logger

	Assessments *assessment.Service
}

// Option overrides a collaborator normally built from configuration.
type Option func(*options)

type options struct {
	analyzer vision.Analyzer
	images   images.Store
}

// WithAnalyzer replaces the model client.
func WithAnalyzer(a vision.Analyzer) Option {
	return func(o *options) { o.analyzer = a }
}

// WithImageStore replaces the image reference store.
func WithImageStore(s images.Store) Option {
	return func(o *options) { o.images = s }
}

// New builds a fully initialised application with the provided stores.
func New(ctx context.Context, cfg *config.Config, stores Stores, log *logger.Logger, opts ...Option) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if stores.Assessments == nil {
		stores.Assessments = memory.New()
	}

	analyzer := o.analyzer
	if analyzer == nil {
		if cfg.Vision.APIKey == "" && cfg.Vision.AuthMode != config.AuthAzureAD {
			log.Warn("AI_INTEGRATIONS_OPENAI_API_KEY not set; model requests will be sent without credentials")
		}
		client, err := vision.New(cfg.Vision, log.WithComponent("vision"))
		if err != nil {
			return nil, fmt.Errorf("configure vision client: %w", err)
		}
		analyzer = client
	}

	imgs := o.images
	if imgs == nil {
		imgs = buildImageStore(ctx, cfg.Images, log)
	}

	svc := assessment.New(analyzer, imgs, stores.Assessments, log.WithComponent("assessment"))
	metrics.SetBackends(stores.Assessments.Backend(), imgs.Name())
	log.WithField("storage", stores.Assessments.Backend()).
		WithField("images", imgs.Name()).
		Info("assessment service ready")

	return &Application{
		log:         log,
		Assessments: svc,
	}, nil
}

func buildImageStore(ctx context.Context, cfg config.ImageConfig, log *logger.Logger) images.Store {
	if cfg.Store != config.ImageStoreS3 {
		return images.Inline{}
	}
	store, err := images.NewS3(ctx, cfg, log.WithComponent("images"))
	if err != nil {
		log.WithError(err).Warn("configure S3 image store; keeping images inline")
		return images.Inline{}
	}
	return store
}
