package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sfmap/internal/config"
	"github.com/roach88/sfmap/internal/driver"
	"github.com/roach88/sfmap/internal/mapper"
	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/persistence"
	"github.com/roach88/sfmap/internal/store"
)

// environment is the wired set of collaborators a command works with.
type environment struct {
	cfg       config.Config
	driver    mapping.Driver
	declared  *persistence.Declared
	formatter *OutputFormatter
	logger    *slog.Logger
}

// loadConfig reads the config file and environment, then applies the flags
// the user set explicitly.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("mapping-path") {
		cfg.MappingPaths = opts.MappingPaths
	}
	if flags.Changed("mapping-format") {
		cfg.Format = opts.MappingFormat
	}
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("schema") {
		cfg.Schema = opts.Schema
	}
	if flags.Changed("no-cache") {
		cfg.Cache = !opts.NoCache
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newEnvironment builds the driver stack from the merged configuration.
// Without a declared schema the driver still gets an empty persistence
// handle so definitions using local identity strategies load.
func newEnvironment(opts *RootOptions, cmd *cobra.Command) (*environment, error) {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, fail(formatter, ErrCodeConfig, err)
	}

	format, err := driver.FormatByName(strings.ToLower(cfg.Format))
	if err != nil {
		return nil, fail(formatter, ErrCodeConfig, err)
	}

	declared := persistence.NewDeclared()
	if cfg.Schema != "" {
		declared, err = persistence.LoadDeclared(cfg.Schema)
		if err != nil {
			return nil, fail(formatter, ErrCodeConfig, err)
		}
	}

	logger := slog.Default()
	files := driver.New(format, cfg.MappingPaths,
		driver.WithLogger(logger),
		driver.WithPersistence(declared),
	)

	var d mapping.Driver = files
	if cfg.Cache {
		d = mapping.NewCachedDriver(files)
	}

	formatter.VerboseLog("Mapping roots: %s (%s)", strings.Join(cfg.MappingPaths, ", "), format.Name)

	return &environment{
		cfg:       cfg,
		driver:    d,
		declared:  declared,
		formatter: formatter,
		logger:    logger,
	}, nil
}

// mapper returns a Mapper over the declared schema, backed by st when set.
func (e *environment) mapper(st *store.Store) *mapper.Mapper {
	opts := []mapper.Option{mapper.WithLogger(e.logger)}
	if st != nil {
		opts = append(opts, mapper.WithMappingStore(st))
	}
	return mapper.New(e.driver, e.declared, opts...)
}

// openStore opens the configured database.
func (e *environment) openStore() (*store.Store, error) {
	if e.cfg.Database == "" {
		return nil, fail(e.formatter, ErrCodeConfig, fmt.Errorf("no database configured (use --db or SFMAP_DATABASE)"))
	}
	e.logger.Debug("opening database", "path", e.cfg.Database)
	st, err := store.Open(e.cfg.Database)
	if err != nil {
		return nil, fail(e.formatter, ErrCodeStore, err)
	}
	return st, nil
}
