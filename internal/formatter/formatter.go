// package formatter renders sync history in various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/playsync/internal/models"
)

// Format names an export format accepted by [Export].
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "text"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "", "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// ExportToCSV renders jobs with columns: ID, Kind, Direction, Playlist, Status, Total, Synced, Failed, Started, Completed, Error
func ExportToCSV(jobs []*models.SyncJob) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Kind", "Direction", "Playlist", "Status", "Total", "Synced", "Failed", "Started", "Completed", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range jobs {
		record := []string{
			job.ID,
			string(job.Kind),
			string(job.Direction),
			job.PlaylistName,
			string(job.Status),
			strconv.Itoa(job.TracksTotal),
			strconv.Itoa(job.TracksSynced),
			strconv.Itoa(job.TracksFailed),
			formatTime(&job.StartedAt),
			formatTime(job.CompletedAt),
			job.ErrorMessage,
		}
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

// ExportToMarkdown renders jobs as a Markdown table
func ExportToMarkdown(jobs []*models.SyncJob) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Sync History\n\n")
	buf.WriteString(fmt.Sprintf("**Jobs**: %d\n\n", len(jobs)))
	if len(jobs) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| Started | Playlist | Direction | Status | Synced | Failed |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, job := range jobs {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %d |\n",
			formatTime(&job.StartedAt),
			strings.ReplaceAll(job.PlaylistName, "|", `\|`),
			job.Direction,
			job.Status,
			job.TracksSynced,
			job.TracksFailed,
		))
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per job, followed by its error when it failed
func ExportToText(jobs []*models.SyncJob) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Jobs: %d\n\n", len(jobs)))
	for i, job := range jobs {
		name := job.PlaylistName
		if name == "" {
			name = job.SourceID
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s (%s) %d/%d synced, %d failed\n",
			i+1, job.Status, name, job.Direction, job.TracksSynced, job.TracksTotal, job.TracksFailed))
		if job.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf("   error: %s\n", job.ErrorMessage))
		}
	}

	return buf.Bytes(), nil
}

// Export renders jobs in the given format.
func Export(jobs []*models.SyncJob, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(jobs)
	case FormatMarkdown:
		return ExportToMarkdown(jobs)
	case FormatText:
		return ExportToText(jobs)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// WriteExport renders jobs and writes them to path.
//
// Defaults to sync_history.{ext} when path is empty.
func WriteExport(jobs []*models.SyncJob, format Format, path string) (string, error) {
	if path == "" {
		ext := string(format)
		if format == FormatText {
			ext = "txt"
		}
		path = "sync_history." + ext
	}

	data, err := Export(jobs, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
