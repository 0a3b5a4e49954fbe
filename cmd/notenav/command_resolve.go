package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"notenav/internal/notepath"
)

type ResolveCommand struct {
	stdout  io.Writer
	stderr  io.Writer
	openEnv environmentFactory
}

func NewResolveCommand(stdout, stderr io.Writer, openEnv environmentFactory) *ResolveCommand {
	return &ResolveCommand{
		stdout:  stdout,
		stderr:  stderr,
		openEnv: openEnv,
	}
}

func (c *ResolveCommand) Run(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	hoisted := fs.String("hoisted", "", "hoisted note id the path must stay under")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: notenav resolve [--hoisted id] <note path>")
	}

	ctx := context.Background()
	env, err := c.openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	hoistedNoteID := strings.TrimSpace(*hoisted)
	if hoistedNoteID == "" {
		hoistedNoteID = env.core.DefaultHoistedNoteID()
	}
	resolved, err := env.resolver.ResolveString(ctx, fs.Arg(0), hoistedNoteID)
	if err != nil {
		return err
	}
	if resolved == "" {
		return fmt.Errorf("note path %q cannot be resolved", fs.Arg(0))
	}
	title, err := notepath.Title(ctx, env.notes, resolved)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s\t%s\n", resolved, title)
	return nil
}
