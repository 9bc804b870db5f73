package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// Format defines the output format for exports.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a string to Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, true
	case "csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	if f == FormatCSV {
		return "csv"
	}
	return "json"
}

// Exporter writes incident reports and listings in one format.
type Exporter struct {
	format Format
	writer io.Writer
}

// NewExporter creates an exporter for the given format.
func NewExporter(format Format, w io.Writer) *Exporter {
	return &Exporter{
		format: format,
		writer: w,
	}
}

// ExportReport writes a single incident report.
func (e *Exporter) ExportReport(report *Report) error {
	metrics.ExportsTotal.WithLabelValues(string(e.format)).Inc()
	switch e.format {
	case FormatCSV:
		return e.exportReportCSV(report)
	default:
		return e.exportJSON(report)
	}
}

func (e *Exporter) exportJSON(v any) error {
	encoder := json.NewEncoder(e.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (e *Exporter) exportReportCSV(report *Report) error {
	w := csv.NewWriter(e.writer)
	defer w.Flush()

	inc := report.Incident

	// Summary
	w.Write([]string{"# Incident"})
	w.Write([]string{"id", strconv.FormatInt(inc.ID, 10)})
	w.Write([]string{"title", inc.Title})
	w.Write([]string{"severity", string(inc.Severity)})
	w.Write([]string{"status", string(inc.Status)})
	w.Write([]string{"occurred_at", formatTime(&inc.OccurredAt)})
	w.Write([]string{"resolved_at", formatTime(inc.ResolvedAt)})
	w.Write([]string{"time_to_resolve", report.Summary.TimeToResolve})
	w.Write([]string{"tags", strings.Join(report.Summary.Tags, ";")})
	w.Write([]string{"description", inc.Description})
	w.Write([]string{"root_cause", inc.RootCause})
	w.Write([]string{"impact", inc.Impact})
	w.Write([]string{})

	// Timeline
	w.Write([]string{"# Timeline"})
	w.Write([]string{"occurred_at", "author", "description"})
	for _, ev := range report.Timeline {
		w.Write([]string{formatTime(&ev.OccurredAt), ev.Author, ev.Description})
	}
	w.Write([]string{})

	// Action items
	w.Write([]string{"# Action Items"})
	w.Write([]string{"title", "status", "priority", "assigned_to", "due_date", "completed_at"})
	for _, item := range report.ActionItems {
		w.Write([]string{
			item.Title,
			string(item.Status),
			string(item.Priority),
			item.AssignedTo,
			formatTime(item.DueDate),
			formatTime(item.CompletedAt),
		})
	}

	return w.Error()
}

// ExportIncidents writes a flat incident listing.
func (e *Exporter) ExportIncidents(incidents []*models.Incident) error {
	metrics.ExportsTotal.WithLabelValues(string(e.format)).Inc()
	switch e.format {
	case FormatCSV:
		return e.exportIncidentsCSV(incidents)
	default:
		if incidents == nil {
			incidents = []*models.Incident{}
		}
		return e.exportJSON(incidents)
	}
}

func (e *Exporter) exportIncidentsCSV(incidents []*models.Incident) error {
	w := csv.NewWriter(e.writer)
	defer w.Flush()

	w.Write([]string{"id", "title", "severity", "status", "occurred_at", "resolved_at", "tags"})
	for _, inc := range incidents {
		tags := make([]string, 0, len(inc.Tags))
		for _, tag := range inc.Tags {
			tags = append(tags, tag.Name)
		}
		w.Write([]string{
			strconv.FormatInt(inc.ID, 10),
			inc.Title,
			string(inc.Severity),
			string(inc.Status),
			formatTime(&inc.OccurredAt),
			formatTime(inc.ResolvedAt),
			strings.Join(tags, ";"),
		})
	}

	return w.Error()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
