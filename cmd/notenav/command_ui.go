package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os/signal"
	"syscall"

	"notenav/internal/app"
	"notenav/internal/config"
	"notenav/internal/hoisting"
	"notenav/internal/logging"
	"notenav/internal/notecontext"
	"notenav/internal/notepath"
	"notenav/internal/protectedsession"
	"notenav/internal/tabs"
)

type uiRunner func(ctx context.Context, deps app.Deps) error

type UICommand struct {
	stderr  io.Writer
	openEnv environmentFactory
	run     uiRunner
}

func NewUICommand(stderr io.Writer, openEnv environmentFactory, run uiRunner) *UICommand {
	return &UICommand{
		stderr:  stderr,
		openEnv: openEnv,
		run:     run,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	startPath := fs.String("path", "", "note path to open in the active tab")
	unlock := fs.Bool("unlock", false, "start with the protected session open")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	env, err := c.openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger

	keybindingsPath, err := config.KeybindingsPath()
	if err != nil {
		return err
	}
	keybindings, err := app.LoadKeybindings(keybindingsPath)
	if err != nil {
		logger.Warn("keybindings_load_failed", logging.F("path", keybindingsPath), logging.Err(err))
		keybindings = app.DefaultKeybindings()
	}

	protected := protectedsession.NewHolder(env.core.ProtectedSessionTimeout(),
		protectedsession.WithLogger(logging.Component(logger, "protected_session")),
	)
	if *unlock {
		protected.Enable()
	}
	go protected.Run(ctx)

	inbox := app.NewInbox()
	services := &notecontext.Services{
		Notes:              env.notes,
		Access:             hoisting.NewChecker(env.notes, inbox, logging.Component(logger, "hoisting")),
		Options:            env.options,
		Recent:             env.recent,
		Protected:          protected,
		Bus:                env.bus,
		Logger:             logging.Component(logger, "notecontext"),
		Mobile:             env.ui.IsMobile(),
		WidgetQueryTimeout: env.core.WidgetQueryTimeout(),
	}
	manager := tabs.New(services, env.options, tabs.WithUpdateInterval(env.core.TabsUpdateInterval()))
	services.Resolver = notepath.NewResolver(env.notes, manager.ActiveContextNotePath, logging.Component(logger, "notepath"))

	if err := manager.LoadTabs(ctx, *startPath); err != nil {
		logger.Warn("tabs_restore_failed", logging.Err(err))
	}
	runErr := c.run(ctx, app.Deps{
		Tabs:        manager,
		Notes:       env.notes,
		Bus:         env.bus,
		Inbox:       inbox,
		Recent:      env.recent,
		Protected:   protected,
		Keybindings: keybindings,
		UI:          env.ui,
		Logger:      logger,
	})
	closeErr := manager.Close(context.Background())
	return errors.Join(runErr, closeErr)
}
