package quick_sqlite

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wemcdonald/quick_sqlite/internal/engine"
	"github.com/wemcdonald/quick_sqlite/pkg/listeners"
	"github.com/wemcdonald/quick_sqlite/pkg/sqlparser"
)

// Connection owns a single handle to the embedded database and the listeners
// notified about its lifecycle.
type Connection struct {
	id       string
	cfg      Config
	db       *sqlx.DB
	tx       *sqlx.Tx
	state    State
	registry *listeners.Registry
	parser   *sqlparser.SQLParser
	backoff  BackoffPolicy
	logger   *slog.Logger

	open  engine.Opener
	sleep func(time.Duration)
}

// New creates a Connection from cfg. It connects immediately when
// cfg.AutoConnect is set.
func New(cfg Config) (*Connection, error) {
	c, err := newConnection(cfg, engine.Open, time.Sleep)
	if err != nil {
		return nil, err
	}
	if cfg.AutoConnect {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Open creates a Connection to path with the default configuration and
// connects, failing if no connection could be made.
func Open(path string) (*Connection, error) {
	cfg := DefaultConfig(path)
	cfg.AutoConnect = true
	cfg.RequireConnect = true
	return New(cfg)
}

func newConnection(cfg Config, open engine.Opener, sleep func(time.Duration)) (*Connection, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverCGO
	}

	policy, _ := cfg.Backoff.Policy(cfg.ReconnectLimit)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := uuid.NewString()
	logger = logger.With("conn_id", id, "path", cfg.Path)

	return &Connection{
		id:       id,
		cfg:      cfg,
		state:    Disconnected,
		registry: listeners.NewRegistry(logger),
		parser:   sqlparser.NewSQLParser(),
		backoff:  policy,
		logger:   logger,
		open:     open,
		sleep:    sleep,
	}, nil
}

// ID returns the identifier attached to this connection's log records.
func (c *Connection) ID() string {
	return c.id
}

// Path returns the database path.
func (c *Connection) Path() string {
	return c.cfg.Path
}

// State returns the connection state.
func (c *Connection) State() State {
	return c.state
}

// Config returns the configuration the connection was created with.
func (c *Connection) Config() Config {
	return c.cfg
}

// Listeners returns the connection's listener registry.
func (c *Connection) Listeners() *listeners.Registry {
	return c.registry
}

// On registers callback for event, replacing any earlier callback.
func (c *Connection) On(event listeners.Event, callback any) error {
	if err := c.registry.Register(event, callback); err != nil {
		c.logger.Error("listener registration failed", "event", string(event), "error", err)
		return err
	}
	return nil
}

// Connect opens the database. If the first attempt fails it falls back to
// the reconnect loop; a ConnectError is returned only when the config sets
// RequireConnect. Connecting an open connection does nothing.
func (c *Connection) Connect() error {
	if c.db != nil {
		return nil
	}

	db, err := c.open(c.cfg.Driver, c.cfg.Path)
	if err == nil {
		c.db = db
		c.state = Connected
		c.logger.Info("connected", "driver", c.cfg.Driver)
		c.registry.Dispatch(listeners.Connect, c.cfg.Path)
		return nil
	}

	c.logger.Warn("connect failed", "error", err)
	return c.reconnect(c.cfg.RequireConnect)
}

// reconnect makes up to ReconnectLimit open attempts, waiting between them
// according to the backoff policy.
func (c *Connection) reconnect(errorOnFail bool) error {
	c.state = Reconnecting
	limit := c.cfg.ReconnectLimit

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		db, err := c.open(c.cfg.Driver, c.cfg.Path)
		if err == nil {
			c.db = db
			c.state = Connected
			c.logger.Info("reconnected", "attempt", attempt)
			c.registry.Dispatch(listeners.Reconnect, c.cfg.Path, attempt)
			return nil
		}

		lastErr = err
		c.logger.Warn("reconnect attempt failed", "attempt", attempt, "limit", limit, "error", err)
		if attempt < limit {
			c.sleep(c.backoff.Delay(attempt))
		}
	}

	c.state = Disconnected
	c.registry.Dispatch(listeners.Disconnect, c.cfg.Path)

	connErr := &ConnectError{Path: c.cfg.Path, Attempts: limit, Err: lastErr}
	if !errorOnFail {
		c.logger.Warn("giving up on connection", "attempts", limit, "error", lastErr)
		return nil
	}
	c.logger.Error("connection failed", "attempts", limit, "error", lastErr)
	return connErr
}

// checkIntegrity makes sure a handle is present, reconnecting if needed.
func (c *Connection) checkIntegrity() error {
	if c.db != nil {
		return nil
	}
	return c.reconnect(true)
}

// Close dispatches the disconnect event and releases the handle. A pending
// transaction is rolled back. Closing a disconnected connection does nothing.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}

	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil {
			c.logger.Warn("discarding pending transaction failed", "error", err)
		}
		c.tx = nil
	}

	c.registry.Dispatch(listeners.Disconnect, c.cfg.Path)

	err := c.db.Close()
	c.db = nil
	c.state = Disconnected
	if err != nil {
		c.logger.Error("close failed", "error", err)
		return &DBError{Code: CodeCloseFailed, Message: "failed to close database", Err: err}
	}
	c.logger.Info("closed")
	return nil
}

// Commit persists the pending transaction. With AutoCommit every operation
// is already persisted, so Commit does nothing and dispatches no events.
func (c *Connection) Commit() error {
	if c.cfg.AutoCommit {
		return nil
	}
	if err := c.checkIntegrity(); err != nil {
		return err
	}

	c.registry.Dispatch(listeners.Commit, c.cfg.Path)
	c.registry.Dispatch(listeners.TransactionSuccess, c.cfg.Path, opCommit)

	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return c.fail(opCommit, &DBError{Code: CodeCommitFailed, Message: "failed to commit transaction", Err: err})
	}
	c.logger.Debug("transaction committed")
	return nil
}

// Rollback discards the pending transaction, if any.
func (c *Connection) Rollback() error {
	if err := c.checkIntegrity(); err != nil {
		return err
	}

	c.registry.Dispatch(listeners.Rollback, c.cfg.Path)
	c.registry.Dispatch(listeners.TransactionSuccess, c.cfg.Path, opRollback)

	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return c.fail(opRollback, &DBError{Code: CodeRollbackFailed, Message: "failed to roll back transaction", Err: err})
	}
	c.logger.Debug("transaction rolled back")
	return nil
}

// fail logs err, dispatches the error event and returns err.
func (c *Connection) fail(op string, err *DBError) error {
	c.logger.Error("operation failed", "operation", op, "code", err.Code, "error", err)
	c.registry.Dispatch(listeners.Error, c.cfg.Path, op, err)
	return err
}
