package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "refurbot/core/config"
	coredatabase "refurbot/core/database"
	"refurbot/core/logger"
	"refurbot/core/store"
)

// Options control the bootstrap pipeline. The function fields exist so
// tests can stub out the infrastructure steps.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes the infrastructure initialized by the pipeline: the
// open database handle and the sender store built on top of it.
type Result struct {
	DB      *sqlx.DB
	Senders *store.SenderStore
}

// Run initializes the logger, opens the conversation database, applies
// migrations, and builds the sender store. A migration failure closes
// the handle before returning; nothing is left half-initialized.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db, Senders: store.NewSenderStore(db)}, nil
}
