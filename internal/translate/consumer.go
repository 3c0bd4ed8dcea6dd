package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/metrics"
	"github.com/and161185/slushbook/internal/model"
)

// Store is the part of the recipe store the consumer writes through.
type Store interface {
	Get(ctx context.Context, id string) (*model.Recipe, error)
	UpsertTranslation(ctx context.Context, id string, lang model.Lang, tr model.Translation) (bool, error)
}

// Consumer fills in missing translations. Languages already present are skipped, so
// redelivered jobs are harmless.
type Consumer struct {
	store      Store
	translator Translator
	timeout    time.Duration
	log        *zap.Logger
}

// NewConsumer builds a Consumer. timeout bounds each language's translation.
func NewConsumer(store Store, tr Translator, timeout time.Duration, log *zap.Logger) *Consumer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{store: store, translator: tr, timeout: timeout, log: log}
}

// Handle processes one job message. Store failures are returned for redelivery;
// translator failures are logged and leave the recipe unchanged.
func (c *Consumer) Handle(msg *message.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		c.log.Error("drop malformed translation job", zap.String("message_id", msg.UUID), zap.Error(err))
		return nil
	}
	return c.Process(msg.Context(), job)
}

// Process translates every missing language of job.
func (c *Consumer) Process(ctx context.Context, job Job) error {
	r, err := c.store.Get(ctx, job.RecipeID)
	if errors.Is(err, errs.ErrNotFound) {
		c.log.Info("skip translation of deleted recipe", zap.String("recipe_id", job.RecipeID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recipe %s: %w", job.RecipeID, err)
	}
	src, ok := r.Translations[r.DefaultLanguage]
	if !ok {
		c.log.Warn("recipe has no default translation", zap.String("recipe_id", r.ID))
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, lang := range job.Languages {
		if _, done := r.Translations[lang]; done || lang == r.DefaultLanguage || !lang.Valid() {
			metrics.TranslationJobs.WithLabelValues("skipped").Inc()
			continue
		}
		g.Go(func() error {
			return c.one(ctx, r, src, lang)
		})
	}
	return g.Wait()
}

func (c *Consumer) one(ctx context.Context, r *model.Recipe, src model.Translation, lang model.Lang) error {
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	out, err := c.translator.Translate(tctx, src, r.DefaultLanguage, lang)
	cancel()
	if err != nil {
		metrics.TranslationJobs.WithLabelValues("failed").Inc()
		c.log.Warn("translation failed, keeping existing fields",
			zap.String("recipe_id", r.ID),
			zap.String("language", string(lang)),
			zap.Error(err),
		)
		return nil
	}
	wrote, err := c.store.UpsertTranslation(ctx, r.ID, lang, out)
	if err != nil {
		return fmt.Errorf("store %s translation of %s: %w", lang, r.ID, err)
	}
	result := "skipped"
	if wrote {
		result = "written"
	}
	metrics.TranslationJobs.WithLabelValues(result).Inc()
	return nil
}
