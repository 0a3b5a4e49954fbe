package main

import (
	"fmt"
	"os"
)

const usageText = `notenav browses a note tree in tabs and splits.

Usage:
  notenav <command> [flags]

Commands:
  ui       run the terminal navigator
  resolve  repair a note path and print it with its titles
  tree     print the note tree
  import   import notes from a TOML tree document
  recent   list recently visited notes
  tabs     list the saved tabs and splits
  options  list options and where they come from, or set name=value
  config   print configuration (effective or defaults)
  help     show help

Flags:
  -h, --help   show help

Examples:
  notenav ui --path root/projects
  notenav resolve --hoisted projects alpha
  notenav tree --depth 2 projects
  notenav import notes.toml
  notenav options databaseReadonly=true
  notenav config --scope core --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
