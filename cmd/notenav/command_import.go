package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"notenav/internal/store"
)

type ImportCommand struct {
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
	openEnv environmentFactory
}

func NewImportCommand(stdout, stderr io.Writer, stdin io.Reader, openEnv environmentFactory) *ImportCommand {
	return &ImportCommand{
		stdout:  stdout,
		stderr:  stderr,
		stdin:   stdin,
		openEnv: openEnv,
	}
}

func (c *ImportCommand) Run(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: notenav import <file.toml|->")
	}

	input := c.stdin
	if name := fs.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	ctx := context.Background()
	env, err := c.openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := store.ImportTree(ctx, env.repo, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "imported %d notes, %d branches\n", result.Notes, result.Branches)
	return nil
}
