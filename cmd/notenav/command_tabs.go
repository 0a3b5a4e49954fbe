package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"notenav/internal/options"
	"notenav/internal/types"
)

type TabsCommand struct {
	stdout  io.Writer
	stderr  io.Writer
	openEnv environmentFactory
}

func NewTabsCommand(stdout, stderr io.Writer, openEnv environmentFactory) *TabsCommand {
	return &TabsCommand{
		stdout:  stdout,
		stderr:  stderr,
		openEnv: openEnv,
	}
}

func (c *TabsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("tabs", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	forget := fs.Bool("clear", false, "forget the saved tabs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	env, err := c.openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if *forget {
		return env.options.SetJSON(ctx, options.OpenNoteContexts, []types.NoteContextState{})
	}
	var states []types.NoteContextState
	if err := env.options.GetJSON(options.OpenNoteContexts, &states); err != nil && !errors.Is(err, options.ErrUnknownOption) {
		return err
	}
	printNoteContexts(c.stdout, states)
	return nil
}
