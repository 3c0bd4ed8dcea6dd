// Package translate is the translator collaborator: a job queue, its consumer and
// the HTTP client of the machine translation service.
package translate

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/and161185/slushbook/internal/metrics"
	"github.com/and161185/slushbook/internal/model"
)

// Topic carries translation jobs.
const Topic = "recipes.translate"

// Job asks for the given languages of one recipe.
type Job struct {
	RecipeID  string       `json:"recipe_id"`
	Languages []model.Lang `json:"languages"`
}

// NewPubSub returns the in-process transport for jobs.
func NewPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
}

// Queue publishes jobs.
type Queue struct {
	pub message.Publisher
}

// NewQueue wraps a publisher.
func NewQueue(pub message.Publisher) *Queue {
	return &Queue{pub: pub}
}

// Enqueue publishes a job without waiting for it to be handled.
func (q *Queue) Enqueue(ctx context.Context, recipeID string, langs []model.Lang) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(Job{RecipeID: recipeID, Languages: langs})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := q.pub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish translation job: %w", err)
	}
	metrics.TranslationJobs.WithLabelValues("enqueued").Inc()
	return nil
}
