package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"notenav/internal/notecache"
	"notenav/internal/notepath"
	"notenav/internal/types"
)

type TreeCommand struct {
	stdout  io.Writer
	stderr  io.Writer
	openEnv environmentFactory
}

func NewTreeCommand(stdout, stderr io.Writer, openEnv environmentFactory) *TreeCommand {
	return &TreeCommand{
		stdout:  stdout,
		stderr:  stderr,
		openEnv: openEnv,
	}
}

func (c *TreeCommand) Run(args []string) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	depth := fs.Int("depth", 0, "levels to print below the start note (0 = all)")
	hidden := fs.Bool("hidden", false, "include the hidden subtree and archived notes")
	ids := fs.Bool("ids", false, "print note ids next to titles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	env, err := c.openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	start := types.RootNoteID
	if fs.NArg() > 0 {
		start = notepath.NoteID(fs.Arg(0))
	}
	note, err := env.notes.GetNote(ctx, start)
	if err != nil {
		return err
	}
	if note == nil {
		return fmt.Errorf("note %q not found", start)
	}
	printer := treePrinter{
		out:    c.stdout,
		notes:  env.notes,
		depth:  *depth,
		hidden: *hidden,
		ids:    *ids,
	}
	return printer.print(ctx, note, "", 0)
}

type treePrinter struct {
	out    io.Writer
	notes  *notecache.Cache
	depth  int
	hidden bool
	ids    bool
}

func (p treePrinter) print(ctx context.Context, note *notecache.Note, parentNoteID string, level int) error {
	title, err := p.notes.NoteTitle(ctx, note.ID(), parentNoteID)
	if err != nil {
		return err
	}
	line := strings.Repeat("  ", level) + title
	if p.ids {
		line += " [" + note.ID() + "]"
	}
	fmt.Fprintln(p.out, line)
	if p.depth > 0 && level >= p.depth {
		return nil
	}
	children, err := p.notes.GetNotes(ctx, note.ChildNoteIDs())
	if err != nil {
		return err
	}
	for _, child := range children {
		if !p.hidden && (child.ID() == types.HiddenNoteID || child.IsArchived()) {
			continue
		}
		if err := p.print(ctx, child, note.ID(), level+1); err != nil {
			return err
		}
	}
	return nil
}
