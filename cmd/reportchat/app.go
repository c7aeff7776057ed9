package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/stupiduntilnot/reportchat/internal/chat"
	"github.com/stupiduntilnot/reportchat/internal/config"
	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/db"
	"github.com/stupiduntilnot/reportchat/internal/dummy"
	"github.com/stupiduntilnot/reportchat/internal/llm"
	"github.com/stupiduntilnot/reportchat/internal/model"
	"github.com/stupiduntilnot/reportchat/internal/report"
	"github.com/stupiduntilnot/reportchat/internal/settings"
	"github.com/stupiduntilnot/reportchat/internal/store"
)

// app is the wired process: storage, backend and chat service.
type app struct {
	svc     *chat.Service
	conv    *conversation.Store
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, c *cli, role string) (*app, error) {
	cfg := c.cfg
	a := &app{}

	kv, recorder, err := openStore(ctx, c, role, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	sender, err := newSender(c)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.conv = conversation.NewStore(kv, cfg.ConversationKey(), c.log)
	a.conv.TTL = cfg.ConversationTTL

	opts := chat.Options{
		Normalizer:    report.NewNormalizer(c.log, report.NewFormatter(cfg.Locale), nil),
		Prompt:        ctxpkg.PromptBuilder{Language: cfg.ResponseLanguage},
		Conversation:  a.conv,
		Settings:      &settings.Repository{KV: kv, Key: cfg.SettingsKey(), Defaults: cfg.Settings},
		Sender:        sender,
		HistoryWindow: cfg.HistoryWindow,
		Log:           c.log,
	}
	if recorder != nil {
		opts.Recorder = recorder
	}
	a.svc = chat.NewService(opts)
	return a, nil
}

// openStore opens the configured backend. Only SQLite keeps an event log.
func openStore(ctx context.Context, c *cli, role string, a *app) (store.KV, *db.EventLog, error) {
	cfg := c.cfg
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		database, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, database.Close)
		if err := db.InitSchema(database); err != nil {
			return nil, nil, fmt.Errorf("failed to init schema: %w", err)
		}
		return &db.KV{DB: database}, processLog(c, database, role), nil
	case config.BackendRedis:
		r, err := store.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil, nil
	default:
		return store.NewMemory(), nil, nil
	}
}

func processLog(c *cli, database *sql.DB, role string) *db.EventLog {
	id, err := db.LogEvent(database, nil, db.EventProcessStarted, map[string]any{
		"role":    role,
		"pid":     os.Getpid(),
		"backend": c.cfg.StoreBackend,
	})
	if err != nil {
		c.log.WithError(err).Warn("failed to log process.started")
		return &db.EventLog{DB: database}
	}
	return &db.EventLog{DB: database, ParentID: &id}
}

func newSender(c *cli) (model.Sender, error) {
	if c.cfg.DummyScript != "" {
		c.log.WithField("script", c.cfg.DummyScript).Warn("using scripted backend")
		p, err := dummy.NewProvider(c.cfg.DummyScript)
		if err != nil {
			return nil, fmt.Errorf("dummy backend: %w", err)
		}
		return p, nil
	}
	return llm.NewAdapter(c.cfg.HTTPTimeout, c.log), nil
}
