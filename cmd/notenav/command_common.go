package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"notenav/internal/types"
)

func printRecentNotes(output io.Writer, notes []*types.RecentNote) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "NOTE\tVISITED\tPATH")
	for _, note := range notes {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", note.NoteID, note.CreatedAt.Local().Format(time.DateTime), note.NotePath)
	}
	_ = writer.Flush()
}

func printNoteContexts(output io.Writer, states []types.NoteContextState) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "NTX\tMAIN\tACTIVE\tHOISTED\tVIEW\tPATH")
	for _, state := range states {
		main := "-"
		if state.MainNtxID != "" {
			main = state.MainNtxID
		}
		active := ""
		if state.Active {
			active = "*"
		}
		path := state.NotePath
		if path == "" {
			path = "(empty)"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n", state.NtxID, main, active, state.HoistedNoteID, state.ViewScope.Normalized().ViewMode, path)
	}
	_ = writer.Flush()
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}
