package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

type OptionsCommand struct {
	stdout  io.Writer
	stderr  io.Writer
	openEnv environmentFactory
}

func NewOptionsCommand(stdout, stderr io.Writer, openEnv environmentFactory) *OptionsCommand {
	return &OptionsCommand{
		stdout:  stdout,
		stderr:  stderr,
		openEnv: openEnv,
	}
}

// Run stores every name=value argument, then lists the effective options with
// the scope each value comes from.
func (c *OptionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("options", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	env, err := c.openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	for _, arg := range fs.Args() {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return errors.New("options expects name=value arguments")
		}
		if err := env.options.Set(ctx, strings.TrimSpace(name), value); err != nil {
			return err
		}
	}

	entries, err := env.options.Entries()
	if err != nil {
		return err
	}
	writer := tabwriter.NewWriter(c.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tSOURCE\tVALUE")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Name, entry.Scope, entry.Value)
	}
	return writer.Flush()
}
