package main

import (
	"context"
	"errors"
	"io"

	"notenav/internal/config"
	"notenav/internal/events"
	"notenav/internal/logging"
	"notenav/internal/notecache"
	"notenav/internal/notepath"
	"notenav/internal/options"
	"notenav/internal/recent"
	"notenav/internal/store"
)

// environment is the wiring shared by every command that touches the tree.
type environment struct {
	core     config.CoreConfig
	ui       config.UIConfig
	logger   logging.Logger
	repo     store.Repository
	bus      *events.Bus
	notes    *notecache.Cache
	resolver *notepath.Resolver
	options  *options.Options
	recent   *recent.Recorder
	closers  []io.Closer
}

// environmentFactory opens the environment. Interactive commands log to the
// UI log file instead of stderr.
type environmentFactory func(ctx context.Context, interactive bool) (*environment, error)

func defaultEnvironmentFactory(stderr io.Writer) environmentFactory {
	return func(ctx context.Context, interactive bool) (*environment, error) {
		core, err := config.LoadCoreConfig()
		if err != nil {
			return nil, err
		}
		ui, err := config.LoadUIConfig()
		if err != nil {
			return nil, err
		}

		level := logging.ParseLevel(core.LogLevel())
		logger := logging.New(stderr, level)
		var closers []io.Closer
		if interactive {
			logPath, err := config.UILogPath()
			if err != nil {
				return nil, err
			}
			fileLogger, closer, err := logging.OpenFile(logPath, level)
			if err != nil {
				return nil, err
			}
			logger = fileLogger
			closers = append(closers, closer)
		}

		paths, err := repositoryPaths(core)
		if err != nil {
			return nil, closeAll(err, closers)
		}
		repo, err := store.OpenRepository(paths, core.StorageBackend())
		if err != nil {
			return nil, closeAll(err, closers)
		}
		closers = append([]io.Closer{repo}, closers...)
		if err := store.SeedRepositoryFromFiles(ctx, repo, paths); err != nil {
			logger.Warn("repository_seed_failed", logging.Err(err))
		}
		if err := store.EnsureRoot(ctx, repo); err != nil {
			return nil, closeAll(err, closers)
		}

		env, err := newEnvironment(ctx, core, ui, repo, logger)
		if err != nil {
			return nil, closeAll(err, closers)
		}
		env.closers = closers
		return env, nil
	}
}

func repositoryPaths(core config.CoreConfig) (store.RepositoryPaths, error) {
	var (
		paths store.RepositoryPaths
		err   error
	)
	if paths.DBPath, err = core.ResolveDBPath(); err != nil {
		return paths, err
	}
	if paths.NotesPath, err = config.NotesPath(); err != nil {
		return paths, err
	}
	if paths.BlobsPath, err = config.BlobsPath(); err != nil {
		return paths, err
	}
	if paths.AttachmentsPath, err = config.AttachmentsPath(); err != nil {
		return paths, err
	}
	if paths.OptionsPath, err = config.OptionsPath(); err != nil {
		return paths, err
	}
	if paths.RecentNotesPath, err = config.RecentNotesPath(); err != nil {
		return paths, err
	}
	return paths, nil
}

func newEnvironment(ctx context.Context, core config.CoreConfig, ui config.UIConfig, repo store.Repository, logger logging.Logger) (*environment, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	bus := events.NewBus(logging.Component(logger, "bus"))
	notes := notecache.New(repo.Notes(),
		notecache.WithContent(repo.Blobs(), repo.Attachments()),
		notecache.WithBus(bus),
		notecache.WithLogger(logging.Component(logger, "notecache")),
	)
	opts := options.New(repo.Options(), options.Defaults(core, ui), logging.Component(logger, "options"))
	if err := opts.Load(ctx); err != nil {
		return nil, err
	}
	recorder := recent.NewRecorder(repo.RecentNotes(),
		recent.WithDelay(core.RecentNotesDelay()),
		recent.WithLogger(logging.Component(logger, "recent")),
		recent.WithReadOnly(func() bool { return opts.Is(options.DatabaseReadonly) }),
	)
	return &environment{
		core:     core,
		ui:       ui,
		logger:   logger,
		repo:     repo,
		bus:      bus,
		notes:    notes,
		resolver: notepath.NewResolver(notes, nil, logging.Component(logger, "notepath")),
		options:  opts,
		recent:   recorder,
	}, nil
}

// Close waits for pending recent note registrations and releases storage.
func (e *environment) Close() error {
	e.recent.Wait()
	return closeAll(nil, e.closers)
}

func closeAll(err error, closers []io.Closer) error {
	for _, closer := range closers {
		if closeErr := closer.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}
	return err
}
