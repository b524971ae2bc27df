package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/utils"
)

// Config holds the connection settings for the concept graph mirror. An
// empty URI means the mirror is disabled.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		URI:      utils.GetEnv("NEO4J_URI", "", log),
		User:     utils.GetEnv("NEO4J_USER", "neo4j", log),
		Password: utils.GetEnv("NEO4J_PASSWORD", "", log),
		Database: utils.GetEnv("NEO4J_DATABASE", "", log),
		Timeout:  time.Duration(utils.GetEnvAsInt("NEO4J_TIMEOUT_SECONDS", 10, log)) * time.Second,
		MaxPool:  utils.GetEnvAsInt("NEO4J_MAX_POOL_SIZE", 50, log),
	}
}

// Client wraps the neo4j driver used for the concept graph mirror. The
// mirror is optional: New returns (nil, nil) for an empty URI and every
// caller treats a nil client as "mirror disabled".
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	if cfg.URI == "" {
		return nil, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPool <= 0 {
		cfg.MaxPool = 50
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPool
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		log:      log.With("client", "neo4jdb"),
	}, nil
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(ConfigFromEnv(log), log)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	return c.Driver.Close(ctx)
}

// Session opens a write session against the configured database.
func (c *Client) Session(ctx context.Context) neo4j.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
}
