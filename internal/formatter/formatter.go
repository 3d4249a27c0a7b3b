// package formatter renders run reports, scan results and run history as text, Markdown, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/desertthunder/otv/internal/tasks"
)

// Format is an output format for reports.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// Formats lists every supported [Format].
var Formats = []Format{FormatText, FormatMarkdown, FormatJSON, FormatCSV}

// ParseFormat parses a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %v)", shared.ErrInvalidArgument, s, Formats)
	}
}

// FormatReport renders report in the given format.
func FormatReport(report *tasks.Report, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return ReportToText(report)
	case FormatMarkdown:
		return ReportToMarkdown(report)
	case FormatJSON:
		return shared.MarshalJSON(report, true)
	case FormatCSV:
		return ReportToCSV(report)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteReport renders report to w.
func WriteReport(w io.Writer, report *tasks.Report, format Format) error {
	data, err := FormatReport(report, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReportFile renders report into the file at path.
func WriteReportFile(path string, report *tasks.Report, format Format) error {
	data, err := FormatReport(report, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// ReportToText renders a plain text summary followed by one line per playlist and failed track.
func ReportToText(report *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(report.Summary() + "\n\n")
	fmt.Fprintf(&buf, "Service: %s\n", report.Service)
	fmt.Fprintf(&buf, "State: %s\n", report.State)
	if report.DryRun {
		buf.WriteString("Dry run: no playlists were created\n")
	}
	fmt.Fprintf(&buf, "Playlists: %d examined, %d transformed, %d failed\n",
		report.PlaylistsExamined, report.PlaylistsTransformed, report.PlaylistsFailed)
	fmt.Fprintf(&buf, "Tracks: %d examined, %d classified, %d replaced (%d substitutions)\n",
		report.TracksExamined, report.TracksClassified, report.TracksReplaced, report.Substitutions)
	fmt.Fprintf(&buf, "Unresolved: %d no match, %d search failed\n", report.NoMatch, report.SearchFailed)
	fmt.Fprintf(&buf, "Duration: %s\n", formatDuration(report.Duration()))

	if len(report.Playlists) > 0 {
		buf.WriteString("\nPlaylists:\n")
		for i, o := range report.Playlists {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, outcomeLine(o))
		}
	}

	if rp := report.ReplacementPlaylist; rp != nil {
		fmt.Fprintf(&buf, "\nReplacement playlist: %s\n", outcomeLine(*rp))
	}

	if len(report.Failures) > 0 {
		buf.WriteString("\nUnresolved tracks:\n")
		for _, f := range report.Failures {
			fmt.Fprintf(&buf, "- %s [%s]\n", f.Track, f.Kind)
		}
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown renders the report as a Markdown document with a counts table.
func ReportToMarkdown(report *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", report.Summary())
	fmt.Fprintf(&buf, "**Service**: %s\n", report.Service)
	fmt.Fprintf(&buf, "**State**: %s\n", report.State)
	fmt.Fprintf(&buf, "**Started**: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "**Duration**: %s\n", formatDuration(report.Duration()))
	if report.DryRun {
		buf.WriteString("**Dry run**: yes\n")
	}

	buf.WriteString("\n| Metric | Count |\n|---|---|\n")
	rows := []struct {
		name  string
		value int
	}{
		{"Playlists examined", report.PlaylistsExamined},
		{"Playlists transformed", report.PlaylistsTransformed},
		{"Playlists failed", report.PlaylistsFailed},
		{"Tracks examined", report.TracksExamined},
		{"Tracks classified", report.TracksClassified},
		{"Tracks replaced", report.TracksReplaced},
		{"Substitutions", report.Substitutions},
		{"No match", report.NoMatch},
		{"Search failed", report.SearchFailed},
	}
	for _, r := range rows {
		fmt.Fprintf(&buf, "| %s | %d |\n", r.name, r.value)
	}

	if len(report.Playlists) > 0 {
		buf.WriteString("\n## Playlists\n\n")
		for i, o := range report.Playlists {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, outcomeLine(o))
		}
	}

	if rp := report.ReplacementPlaylist; rp != nil {
		fmt.Fprintf(&buf, "\n## Replacement playlist\n\n%s\n", outcomeLine(*rp))
	}

	if len(report.Failures) > 0 {
		buf.WriteString("\n## Unresolved tracks\n\n")
		for _, f := range report.Failures {
			fmt.Fprintf(&buf, "- %s `%s`\n", f.Track, f.Kind)
		}
	}

	return buf.Bytes(), nil
}

// ReportToCSV renders one row per playlist outcome with columns:
// Source ID, Source Name, Name, Created ID, Replaced, Error
func ReportToCSV(report *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Source ID", "Source Name", "Name", "Created ID", "Replaced", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range report.Playlists {
		createdID := ""
		if o.Created != nil {
			createdID = o.Created.ID
		}
		record := []string{o.Source.ID, o.Source.Name, o.Name, createdID, strconv.Itoa(o.Replaced), o.Error}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ScanToText lists the affected playlists and candidate tracks found by a scan.
func ScanToText(scan *tasks.ScanResult) ([]byte, error) {
	var buf bytes.Buffer

	if len(scan.Candidates) == 0 {
		buf.WriteString("No songs found to replace\n")
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Found %d songs to replace on %d playlists\n\n", len(scan.Candidates), len(scan.Playlists))

	buf.WriteString("Playlists:\n")
	for i, p := range scan.Playlists {
		fmt.Fprintf(&buf, "%d. %s (%d tracks)\n", i+1, p.Name, len(p.Tracks))
	}

	buf.WriteString("\nSongs:\n")
	for _, c := range scan.Candidates {
		fmt.Fprintf(&buf, "- %s\n", c.Track)
	}

	return buf.Bytes(), nil
}

// RunsToText renders run history as an aligned table, newest first.
func RunsToText(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded\n")
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "%-5s %-20s %-14s %-13s %9s %9s %7s\n", "#", "Started", "Service", "State", "Playlists", "Replaced", "Failed")
	for _, r := range runs {
		state := r.State
		if r.DryRun {
			state += " (dry)"
		}
		fmt.Fprintf(&buf, "%-5d %-20s %-14s %-13s %9d %9d %7d\n",
			r.Sequence,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(r.Service, 14),
			state,
			r.PlaylistsTransformed,
			r.Substitutions,
			r.PlaylistsFailed,
		)
	}
	return buf.Bytes(), nil
}

// RunToText renders a single recorded run with its playlist outcomes.
func RunToText(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run #%d (%s)\n", run.Sequence, run.ID)
	fmt.Fprintf(&buf, "Service: %s\n", run.Service)
	fmt.Fprintf(&buf, "State: %s\n", run.State)
	fmt.Fprintf(&buf, "Started: %s\n", run.StartedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(&buf, "Duration: %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(&buf, "Replaced %d songs on %d playlists\n", run.Substitutions, run.PlaylistsTransformed)

	for i, p := range run.Playlists {
		switch {
		case p.Error != "":
			fmt.Fprintf(&buf, "%d. %s: failed: %s\n", i+1, p.SourceName, p.Error)
		case p.CreatedName != "":
			fmt.Fprintf(&buf, "%d. %s -> %s (%d replaced)\n", i+1, p.SourceName, p.CreatedName, p.Replaced)
		default:
			fmt.Fprintf(&buf, "%d. %s (%d replaced)\n", i+1, p.SourceName, p.Replaced)
		}
	}
	return buf.Bytes(), nil
}

func outcomeLine(o tasks.PlaylistOutcome) string {
	switch {
	case o.Err != nil || o.Error != "":
		msg := o.Error
		if msg == "" {
			msg = o.Err.Error()
		}
		return fmt.Sprintf("%s: failed: %s", displayName(o), msg)
	case o.DryRun:
		return fmt.Sprintf("%s: would create %q (%d replaced)", displayName(o), o.Name, o.Replaced)
	case o.Created != nil:
		return fmt.Sprintf("%s -> %s [%s] (%d replaced)", displayName(o), o.Created.Name, o.Created.ID, o.Replaced)
	default:
		return fmt.Sprintf("%s (%d replaced)", displayName(o), o.Replaced)
	}
}

func displayName(o tasks.PlaylistOutcome) string {
	if o.Source.Name != "" {
		return o.Source.Name
	}
	return o.Name
}

// formatDuration rounds d for display, e.g. "1.5s" or "2m3s".
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
