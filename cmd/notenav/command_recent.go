package main

import (
	"context"
	"flag"
	"io"
)

type RecentCommand struct {
	stdout  io.Writer
	stderr  io.Writer
	openEnv environmentFactory
}

func NewRecentCommand(stdout, stderr io.Writer, openEnv environmentFactory) *RecentCommand {
	return &RecentCommand{
		stdout:  stdout,
		stderr:  stderr,
		openEnv: openEnv,
	}
}

func (c *RecentCommand) Run(args []string) error {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	limit := fs.Int("limit", 20, "number of notes to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	env, err := c.openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	notes, err := env.recent.List(ctx, *limit)
	if err != nil {
		return err
	}
	printRecentNotes(c.stdout, notes)
	return nil
}
