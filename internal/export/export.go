// File: internal/export/export.go
// Package export renders a finished session (statistics, transcript, action
// ledger) to a file or stdout, as JSON for machines or text for humans.
package export

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/formpilot/formpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is everything a session leaves behind.
type Report struct {
	Stats    schemas.SessionStats   `json:"stats"`
	Messages []schemas.ChatMessage  `json:"messages"`
	Actions  []schemas.ActionRecord `json:"actions"`
}

// Reporter writes session reports to an output.
type Reporter interface {
	// Write renders a single report.
	Write(report *Report) error
	// Close finalizes the output and releases any file handle.
	Close() error
}

type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format writing to outputPath, or to
// stdout when the path is empty.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return &jsonReporter{w: writer}, nil
	case "text":
		return &textReporter{w: writer}, nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// -- JSON --

type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(report *Report) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error { return r.w.Close() }

// -- Text --

type textReporter struct {
	w io.WriteCloser
}

func (r *textReporter) Write(report *Report) error {
	stats := report.Stats

	fmt.Fprintln(r.w, "Session Report")
	fmt.Fprintln(r.w, "==============")
	fmt.Fprintf(r.w, "Session:        %s\n", stats.SessionID)
	if !stats.StartedAt.IsZero() {
		fmt.Fprintf(r.w, "Started:        %s\n", stats.StartedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(r.w, "Duration:       %s\n", schemas.FormatDuration(stats.Duration))
	fmt.Fprintf(r.w, "Messages:       %d\n", stats.TotalMessages)
	fmt.Fprintf(r.w, "Actions:        %d (%d failed)\n", stats.TotalActions, stats.FailedActions)
	if stats.FirstMessage != "" {
		fmt.Fprintf(r.w, "First request:  %s\n", stats.FirstMessage)
	}

	if len(report.Actions) > 0 {
		fmt.Fprintln(r.w, "\nActions")
		fmt.Fprintln(r.w, "-------")
		for i, a := range report.Actions {
			fmt.Fprintf(r.w, "%3d. [%s] %s: %s\n", i+1, a.Status, a.Kind, a.Message)
		}
	}

	if len(report.Messages) > 0 {
		fmt.Fprintln(r.w, "\nTranscript")
		fmt.Fprintln(r.w, "----------")
		for _, m := range report.Messages {
			fmt.Fprintf(r.w, "[%s] %s\n", m.Role, m.Content)
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(r.w, "    %s -> %s\n", tc.Name, tc.Result)
			}
		}
	}
	return nil
}

func (r *textReporter) Close() error { return r.w.Close() }
