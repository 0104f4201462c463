package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"smartstart/internal/config"
	"smartstart/internal/db"
	"smartstart/internal/engine"
	"smartstart/internal/logging"
	"smartstart/internal/migrate"
)

// Env is an opened workspace: migrated database, loaded config, logger and engine.
type Env struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Log       zerolog.Logger
	Engine    engine.Engine
}

// Options tweak how a workspace is opened.
type Options struct {
	// Logger replaces the logger built from the config's logging section.
	Logger *zerolog.Logger
}

// Open loads smartstart.yml (defaults when absent), opens and migrates the workspace
// database and wires the engine.
func Open(ctx context.Context, workspace string, opts Options) (*Env, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging)
	if opts.Logger != nil {
		log = *opts.Logger
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(workspace), err)
	}
	log.Debug().Str("workspace", workspace).Str("db", db.Path(workspace)).Msg("workspace opened")
	return &Env{
		Workspace: workspace,
		DB:        conn,
		Config:    cfg,
		Log:       log,
		Engine:    engine.New(conn, cfg, log),
	}, nil
}

func (e *Env) Close() error {
	return e.DB.Close()
}
