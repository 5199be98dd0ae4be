package main

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/deskbot/internal/config"
	"github.com/zulandar/deskbot/internal/db"
	"github.com/zulandar/deskbot/internal/dialog"
	"github.com/zulandar/deskbot/internal/identity"
	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/state"
	"github.com/zulandar/deskbot/internal/telegraph"
	"gorm.io/gorm"
)

// stack is everything a running bot needs, assembled from config.
type stack struct {
	cfg         *config.Config
	gormDB      *gorm.DB // nil for memory and redis storage
	store       state.Store
	purgers     map[string]telegraph.Purger
	transcripts *telegraph.TranscriptStore
	snow        *servicenow.Client
	engine      *dialog.Engine
	closers     []func() error
}

// Close releases database and redis connections.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// retention converts the configured retention days to a duration.
func retention(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
}

// buildStack wires storage, the ServiceNow client, recognizers and the
// dialog engine.
func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	s := &stack{cfg: cfg, purgers: make(map[string]telegraph.Purger)}
	if err := s.openStorage(ctx); err != nil {
		s.Close()
		return nil, err
	}

	snow, err := newServiceNowClient(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.snow = snow

	rec, err := buildRecognizer(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := dialog.EngineOpts{
		State:            &state.Manager{Store: s.store, Compress: cfg.Storage.Gzip},
		Recognizer:       rec,
		ServiceNow:       snow,
		MaxLoginAttempts: cfg.Identity.MaxAttempts,
		BotName:          cfg.Branding.Name,
		ImageURL:         cfg.Branding.ImageURL,
	}
	if cfg.TokenExchangeEnabled() {
		resolver, err := identity.NewResolver(identity.ResolverOpts{
			ClientID:     cfg.BotFramework.AppID,
			ClientSecret: cfg.BotFramework.AppPassword,
			TokenURL:     cfg.BotFramework.TokenURL,
			Scope:        cfg.BotFramework.Scope,
			Users:        snow,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		opts.Identity = resolver
	}
	engine, err := dialog.NewEngine(opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// openStorage selects the state backend. SQL drivers also get a
// transcript store on the same database.
func (s *stack) openStorage(ctx context.Context) error {
	cfg := s.cfg
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		mem := state.NewMemoryStore()
		s.store = mem
		s.purgers["state"] = mem
		return nil

	case config.StorageRedis:
		rc := cfg.Storage.Redis
		client, err := state.NewRedisClient(ctx, rc.Address, rc.Password, rc.DB)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		store, err := state.NewRedisStore(state.RedisStoreOpts{
			Client: client,
			Prefix: rc.Prefix,
			TTL:    retention(cfg),
		})
		if err != nil {
			return err
		}
		s.store = store
		return nil
	}

	gormDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		s.closers = append(s.closers, sqlDB.Close)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	s.gormDB = gormDB

	store, err := state.NewGormStore(gormDB)
	if err != nil {
		return err
	}
	s.store = store
	s.purgers["state"] = store

	transcripts, err := telegraph.NewTranscriptStore(telegraph.TranscriptStoreOpts{DB: gormDB})
	if err != nil {
		return err
	}
	s.transcripts = transcripts
	return nil
}

// openDB connects to the configured SQL database.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite, config.StorageMySQL, config.StoragePostgres:
	default:
		return nil, fmt.Errorf("storage driver %q is not a SQL database", cfg.Storage.Driver)
	}
	gormDB, err := db.Connect(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Storage.Driver, err)
	}
	return gormDB, nil
}

func newServiceNowClient(cfg *config.Config) (*servicenow.Client, error) {
	sn := cfg.ServiceNow
	return servicenow.New(servicenow.Options{
		InstanceURL:     sn.InstanceURL,
		APIPath:         sn.APIPath,
		PortalPath:      sn.PortalPath,
		Username:        sn.Username,
		Password:        sn.Password,
		KnowledgeBaseID: sn.KnowledgeBaseID,
		Timeout:         time.Duration(sn.RequestTimeoutSec) * time.Second,
	})
}

// buildRecognizer returns the configured intent recognizer. When QnA is
// configured it answers whatever the intent recognizer leaves unmatched.
func buildRecognizer(cfg *config.Config) (recognizer.Recognizer, error) {
	var intents recognizer.Recognizer
	switch cfg.Recognizer.Provider {
	case config.RecognizerOpenAI:
		llm, err := recognizer.NewLLMRecognizer(recognizer.LLMOpts{
			APIKey:    cfg.Recognizer.OpenAI.APIKey,
			BaseURL:   cfg.Recognizer.OpenAI.BaseURL,
			Model:     cfg.Recognizer.OpenAI.Model,
			Threshold: cfg.Recognizer.Threshold,
		})
		if err != nil {
			return nil, err
		}
		intents = llm
	default:
		intents = recognizer.NewKeywordRecognizer()
	}

	if !cfg.QnAEnabled() {
		return intents, nil
	}
	qna, err := recognizer.NewQnAClient(recognizer.QnAOpts{
		EndpointHost:    cfg.QnA.EndpointHost,
		KnowledgeBaseID: cfg.QnA.KnowledgeBaseID,
		AuthKey:         cfg.QnA.AuthKey,
		Threshold:       cfg.QnA.Threshold,
	})
	if err != nil {
		return nil, err
	}
	return recognizer.NewSeries(cfg.QnA.Threshold, intents, qna), nil
}
