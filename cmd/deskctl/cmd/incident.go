package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/incidentdesk/internal/export"
	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

var (
	incidentStatus       string
	incidentSeverity     string
	incidentShowResolved bool
	incidentPage         int
	incidentPageSize     int
	incidentListFormat   string
	incidentExportFormat string
	incidentOutFile      string
)

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Incident listing and export",
	Long: `Read incidents straight from the database.

Examples:
  # Active incidents, most severe first
  deskctl incident list

  # Critical incidents including resolved ones, as CSV
  deskctl incident list --severity critical --show-resolved --format csv

  # Post-incident report
  deskctl incident export 42 --out incident-42.json`,
}

var incidentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := incidentListQuery()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openDatabase(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()

		page, err := incident.NewService(store, nil).GetIncidentsPaged(ctx, q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if incidentListFormat != "" {
			format, ok := export.ParseFormat(incidentListFormat)
			if !ok {
				return fmt.Errorf("unknown format %q", incidentListFormat)
			}
			return export.NewExporter(format, out).ExportIncidents(page.Items)
		}
		printIncidentPage(out, page)
		return nil
	},
}

var incidentExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export an incident report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid incident id %q", args[0])
		}
		format, ok := export.ParseFormat(incidentExportFormat)
		if !ok {
			return fmt.Errorf("unknown format %q", incidentExportFormat)
		}

		ctx := cmd.Context()
		store, err := openDatabase(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()

		inc, err := incident.NewService(store, nil).GetIncident(ctx, id)
		if err != nil {
			return err
		}
		if inc == nil {
			return fmt.Errorf("incident %d not found", id)
		}

		var w io.Writer = cmd.OutOrStdout()
		if incidentOutFile != "" {
			f, err := os.Create(incidentOutFile)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		if err := export.NewExporter(format, w).ExportReport(export.NewReport(inc, time.Now().UTC())); err != nil {
			return fmt.Errorf("export incident: %w", err)
		}
		PrintVerbose("exported incident %d as %s", id, format)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(incidentCmd)
	incidentCmd.AddCommand(incidentListCmd, incidentExportCmd)

	incidentListCmd.Flags().StringVar(&incidentStatus, "status", "", "filter by status (open, investigating, resolved, closed)")
	incidentListCmd.Flags().StringVar(&incidentSeverity, "severity", "", "filter by severity (low, medium, high, critical)")
	incidentListCmd.Flags().BoolVar(&incidentShowResolved, "show-resolved", false, "include resolved incidents")
	incidentListCmd.Flags().IntVar(&incidentPage, "page", 1, "page number")
	incidentListCmd.Flags().IntVar(&incidentPageSize, "page-size", 20, "incidents per page")
	incidentListCmd.Flags().StringVar(&incidentListFormat, "format", "", "write the page as json or csv instead of a table")

	incidentExportCmd.Flags().StringVar(&incidentExportFormat, "format", "json", "report format (json, csv)")
	incidentExportCmd.Flags().StringVar(&incidentOutFile, "out", "", "write to file instead of stdout")
}

func incidentListQuery() (incident.ListQuery, error) {
	q := incident.ListQuery{
		Page:         incidentPage,
		PageSize:     incidentPageSize,
		ShowResolved: incidentShowResolved,
	}
	if incidentStatus != "" {
		status, ok := models.ParseStatus(incidentStatus)
		if !ok {
			return q, fmt.Errorf("unknown status %q", incidentStatus)
		}
		q.Status = &status
	}
	if incidentSeverity != "" {
		severity, ok := models.ParseSeverity(incidentSeverity)
		if !ok {
			return q, fmt.Errorf("unknown severity %q", incidentSeverity)
		}
		q.Severity = &severity
	}
	return q, nil
}

func printIncidentPage(w io.Writer, page *incident.Page) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No incidents found.")
		return
	}

	fmt.Fprintf(w, "\n%-6s  %-9s  %-14s  %-19s  %s\n", "ID", "SEVERITY", "STATUS", "OCCURRED", "TITLE")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, inc := range page.Items {
		fmt.Fprintf(w, "%-6d  %-9s  %-14s  %-19s  %s\n",
			inc.ID,
			inc.Severity,
			inc.Status,
			inc.OccurredAt.Format("2006-01-02 15:04:05"),
			inc.Title,
		)
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d incident(s))\n", page.Page, page.TotalPages, page.TotalCount)
}
