package app

import (
	"database/sql"
	"fmt"

	"caseline/internal/config"
	"caseline/internal/db"
	"caseline/internal/engine"
	"caseline/internal/migrate"
)

// Context bundles everything a command needs to talk to a workspace.
type Context struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open prepares the workspace: database opened and migrated, config loaded
// from caseline.yml (defaults when missing), engine wired. practiceOverride
// wins over the config file's practice id.
func Open(workspace, practiceOverride string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if practiceOverride != "" {
		cfg.Practice.ID = practiceOverride
	}
	return &Context{
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg),
	}, nil
}

func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
