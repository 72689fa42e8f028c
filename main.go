package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/BRO3886/sitesearch/internal/catalog"
	"github.com/BRO3886/sitesearch/internal/config"
	"github.com/BRO3886/sitesearch/internal/content"
	"github.com/BRO3886/sitesearch/internal/kafka"
	"github.com/BRO3886/sitesearch/internal/logger"
	"github.com/BRO3886/sitesearch/internal/opensearch"
	"github.com/BRO3886/sitesearch/internal/queue"
	"github.com/BRO3886/sitesearch/internal/render"
	"github.com/BRO3886/sitesearch/internal/search"
	"github.com/BRO3886/sitesearch/internal/server"
	"github.com/BRO3886/sitesearch/internal/types"
)

var (
	mode       string
	configPath string
	query      string
	useMirror  bool
)

func init() {
	flag.StringVar(&mode, "mode", "serve", "mode to run in: serve, search, ingest or index")
	flag.StringVar(&configPath, "config", config.DefaultPath, "path to the config file")
	flag.StringVar(&query, "q", "", "query for -mode search")
	flag.BoolVar(&useMirror, "mirror", false, "query the opensearch mirror in -mode search")
}

func main() {
	flag.Parse()

	cfg := config.LoadConfig(configPath)
	l, err := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "serve":
		err = runServe(ctx, cfg, l)
	case "search":
		err = runSearch(ctx, cfg, l)
	case "ingest":
		err = runIngestion(ctx, cfg, l)
	case "index":
		err = runIndexing(ctx, cfg, l)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		l.Fatal().Err(err).Str("mode", mode).Msg("exiting")
	}
}

// consumerGroupID names the consumer group for a mode. Indexers share the
// configured group so each event is mirrored once; every serving instance
// gets a group of its own so each one sees every event.
func consumerGroupID(cfg *config.Config, mode string) string {
	if mode == "serve" {
		return fmt.Sprintf("%s-serve-%s", cfg.Kafka.ConsumerGroup, uuid.NewString())
	}
	return cfg.Kafka.ConsumerGroup
}

func newKafkaConfig(cfg *config.Config, groupID string, l zerolog.Logger) *kafka.Config {
	return kafka.NewConfig(
		kafka.WithBrokers(cfg.Kafka.Brokers...),
		kafka.WithSyncProducer(),
		kafka.WithConsumeOldest(),
		kafka.WithTopics(cfg.Kafka.Topic.Name),
		kafka.WithGroupID(groupID),
		kafka.WithRetry(
			cfg.Kafka.Retry.Max,
			time.Duration(cfg.Kafka.Retry.Backoff)*time.Millisecond,
		),
		kafka.WithLogger(l),
	)
}

func loadCollections(ctx context.Context, cfg *config.Config, l zerolog.Logger) (types.Collections, error) {
	cms := content.NewCMSSource(
		cfg.Content.CMS.URL,
		cfg.Content.Dataset,
		cfg.Content.CMS.Token,
		cfg.CMSConfigured(),
		time.Duration(cfg.Content.CMS.Timeout)*time.Second,
	)
	source := content.WithFallback(cms, content.NewFileSource(cfg.Content.Dir), logger.Component(l, "content"))
	c, err := source.Load(ctx)
	if err != nil {
		return c, fmt.Errorf("load content: %w", err)
	}
	l.Info().
		Int("services", len(c.Services)).
		Int("locations", len(c.Locations)).
		Int("blog_posts", len(c.BlogPosts)).
		Msg("content loaded")
	return c, nil
}

func runServe(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	collections, err := loadCollections(ctx, cfg, l)
	if err != nil {
		return err
	}
	cat := catalog.New(collections)

	var mirror search.Mirror
	if cfg.Opensearch.Enabled {
		m, err := opensearch.New(ctx, cfg, l)
		if err != nil {
			return fmt.Errorf("opensearch: %w", err)
		}
		mirror = m
	}

	if cfg.Kafka.Enabled {
		groupID := consumerGroupID(cfg, "serve")
		dequeuer, err := kafka.NewDequeuer(ctx, newKafkaConfig(cfg, groupID, l))
		if err != nil {
			return fmt.Errorf("kafka dequeuer: %w", err)
		}
		l.Info().Str("group", groupID).Msg("consuming content events")
		defer dequeuer.Close()

		handler := eventHandler(cat, mirror, logger.Component(l, "events"))
		go func() {
			if err := dequeuer.Dequeue(ctx, cfg.Kafka.Topic.Name, handler); err != nil {
				l.Error().Err(err).Msg("error dequeuing events")
			}
		}()
	}

	h := server.NewHandler(cat, search.NewMatcher(cat), mirror, logger.Component(l, "http"))
	srv := server.New(
		cfg.HTTP.Addr,
		time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second,
		h,
		logger.Component(l, "http"),
	)
	return srv.Start(ctx)
}

func runSearch(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	if useMirror {
		if !cfg.Opensearch.Enabled {
			return fmt.Errorf("opensearch is disabled in %s", configPath)
		}
		m, err := opensearch.New(ctx, cfg, l)
		if err != nil {
			return fmt.Errorf("opensearch: %w", err)
		}
		docs, err := m.Query(ctx, query)
		if err != nil {
			return err
		}
		return render.Documents(os.Stdout, docs)
	}

	collections, err := loadCollections(ctx, cfg, l)
	if err != nil {
		return err
	}
	return render.Results(os.Stdout, query, search.SearchSite(query, collections))
}

func decodeEvent(data []byte) (types.ContentEvent, error) {
	var event types.ContentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("%w: decode event: %w", queue.ErrUnprocessable, err)
	}
	return event, nil
}

// eventHandler applies content events to the catalog and, when a mirror is
// configured, copies them to it. Catalog rejections are never retried: every
// Apply error comes from the event itself.
func eventHandler(cat *catalog.Catalog, mirror search.Mirror, l zerolog.Logger) queue.MessageHandler {
	return func(ctx context.Context, data []byte) error {
		event, err := decodeEvent(data)
		if err != nil {
			return err
		}

		if err := cat.Apply(event); err != nil {
			return fmt.Errorf("%w: apply event %s: %w", queue.ErrUnprocessable, event.ID, err)
		}

		if mirror == nil {
			return nil
		}
		return mirrorEvent(ctx, mirror, event, l)
	}
}

func mirrorEvent(ctx context.Context, mirror search.Mirror, event types.ContentEvent, l zerolog.Logger) error {
	document, err := types.GetIndexableDoc(event)
	if err != nil {
		return fmt.Errorf("%w: index document for %s: %w", queue.ErrUnprocessable, event.ID, err)
	}

	if document == nil {
		l.Debug().Str("id", event.ID).Msg("document is nil")
		return nil
	}

	if document.DeIndex {
		l.Info().Str("id", document.Id).Msg("deindexing document")
		return mirror.DeIndex(ctx, *document)
	}

	return mirror.Index(ctx, *document)
}

func runIndexing(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	l = logger.Component(l, "indexer")
	dequeuer, err := kafka.NewDequeuer(ctx, newKafkaConfig(cfg, consumerGroupID(cfg, "index"), l))
	if err != nil {
		return fmt.Errorf("error starting kafka dequeuer: %w", err)
	}
	defer dequeuer.Close()

	mirror, err := opensearch.New(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("error starting opensearch mirror: %w", err)
	}

	l.Info().Str("topic", cfg.Kafka.Topic.Name).Msg("started indexing")
	err = dequeuer.Dequeue(ctx, cfg.Kafka.Topic.Name, func(ctx context.Context, data []byte) error {
		event, err := decodeEvent(data)
		if err != nil {
			return err
		}
		return mirrorEvent(ctx, mirror, event, l)
	})

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := mirror.Flush(flushCtx); ferr != nil {
		l.Error().Err(ferr).Msg("final flush")
	}
	return err
}

// contentEvents turns every record of c into a create event.
func contentEvents(dataset string, c types.Collections) ([]types.ContentEvent, error) {
	events := make([]types.ContentEvent, 0, len(c.Services)+len(c.Locations)+len(c.BlogPosts))
	add := func(kind types.Kind, slug string, record any) error {
		event, err := types.NewUpsertEvent(dataset, kind, slug, record)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	}
	for _, s := range c.Services {
		if err := add(types.KindService, s.Slug, s); err != nil {
			return nil, err
		}
	}
	for _, loc := range c.Locations {
		if err := add(types.KindLocation, loc.Slug, loc); err != nil {
			return nil, err
		}
	}
	for _, p := range c.BlogPosts {
		if err := add(types.KindBlog, p.Slug, p); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func runIngestion(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	l = logger.Component(l, "ingestion")
	kafkaCfg := newKafkaConfig(cfg, cfg.Kafka.ConsumerGroup, l)
	if err := kafka.EnsureTopic(kafkaCfg, cfg.Kafka.Topic.Name, cfg.Kafka.Topic.Partitions); err != nil {
		return err
	}

	enqueuer, err := kafka.NewEnqueuer(ctx, kafkaCfg)
	if err != nil {
		return fmt.Errorf("error starting kafka enqueuer: %w", err)
	}
	defer enqueuer.Close()

	collections, err := content.NewFileSource(cfg.Content.Dir).Load(ctx)
	if err != nil {
		return err
	}
	events, err := contentEvents(cfg.Content.Dataset, collections)
	if err != nil {
		return err
	}

	l.Info().Int("events", len(events)).Msg("started ingestion")
	limiter := rate.NewLimiter(rate.Every(time.Duration(cfg.Kafka.PublishInterval)*time.Millisecond), 1)
	sent := publish(ctx, enqueuer, limiter, cfg.Kafka.Topic.Name, events, l)
	l.Info().Int("sent", sent).Int("events", len(events)).Msg("ingestion completed")
	return ctx.Err()
}

// publish enqueues events one at a time at the limiter's pace and returns
// how many were accepted. Failed events are logged and skipped.
func publish(ctx context.Context, enqueuer queue.Enqueuer, limiter *rate.Limiter, topic string, events []types.ContentEvent, l zerolog.Logger) int {
	sent := 0
	for i, event := range events {
		if err := limiter.Wait(ctx); err != nil {
			return sent
		}
		data, err := json.Marshal(event)
		if err != nil {
			l.Error().Err(err).Int("event", i).Msg("error marshalling event")
			continue
		}
		if err := enqueuer.Enqueue(ctx, topic, event.After.Key, data); err != nil {
			l.Error().Err(err).Int("event", i).Msg("error enqueuing event")
			continue
		}
		sent++
		l.Debug().Int("event", i).Str("key", event.After.Key).Msg("enqueued event")
	}
	return sent
}
