package main

import (
	"io"
	"os"

	"notenav/internal/app"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
	openEnv environmentFactory
	runUI   uiRunner
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:  stdout,
		stderr:  stderr,
		stdin:   os.Stdin,
		openEnv: defaultEnvironmentFactory(stderr),
		runUI:   app.Run,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"ui":      NewUICommand(wiring.stderr, wiring.openEnv, wiring.runUI),
		"resolve": NewResolveCommand(wiring.stdout, wiring.stderr, wiring.openEnv),
		"tree":    NewTreeCommand(wiring.stdout, wiring.stderr, wiring.openEnv),
		"import":  NewImportCommand(wiring.stdout, wiring.stderr, wiring.stdin, wiring.openEnv),
		"recent":  NewRecentCommand(wiring.stdout, wiring.stderr, wiring.openEnv),
		"tabs":    NewTabsCommand(wiring.stdout, wiring.stderr, wiring.openEnv),
		"options": NewOptionsCommand(wiring.stdout, wiring.stderr, wiring.openEnv),
		"config":  NewConfigCommand(wiring.stdout, wiring.stderr),
	}
}
