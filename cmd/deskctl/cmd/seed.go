package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// SeedFile is the catalog loaded by the seed command.
type SeedFile struct {
	Tags      []SeedTag      `yaml:"tags"`
	Templates []SeedTemplate `yaml:"templates"`
}

// SeedTag is one tag entry.
type SeedTag struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// SeedTemplate is one template entry.
type SeedTemplate struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	TagsCreated      int
	TagsSkipped      int
	TemplatesCreated int
	TemplatesSkipped int
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load tags and templates from a YAML file",
	Long: `Load tags and incident templates from a YAML file. Entries whose
name already exists are skipped, so the command can be re-run.

Example file:
  tags:
    - name: database
      color: "#d9534f"
  templates:
    - name: outage
      title: Service outage
      severity: critical`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := loadSeedFile(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openDatabase(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := applySeed(ctx, incident.NewService(store, nil), seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tags: %d created, %d skipped\nTemplates: %d created, %d skipped\n",
			res.TagsCreated, res.TagsSkipped, res.TemplatesCreated, res.TemplatesSkipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

func applySeed(ctx context.Context, svc *incident.Service, seed *SeedFile) (*SeedResult, error) {
	var res SeedResult

	for _, t := range seed.Tags {
		_, err := svc.CreateTag(ctx, t.Name, t.Color)
		switch {
		case err == nil:
			res.TagsCreated++
		case errors.Is(err, incident.ErrConflict):
			res.TagsSkipped++
			PrintVerbose("tag %q exists, skipping", t.Name)
		default:
			return &res, fmt.Errorf("tag %q: %w", t.Name, err)
		}
	}

	for _, t := range seed.Templates {
		severity, ok := models.ParseSeverity(t.Severity)
		if !ok {
			return &res, fmt.Errorf("template %q: unknown severity %q", t.Name, t.Severity)
		}
		err := svc.CreateTemplate(ctx, &models.Template{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			Severity:    severity,
		})
		switch {
		case err == nil:
			res.TemplatesCreated++
		case errors.Is(err, incident.ErrConflict):
			res.TemplatesSkipped++
			PrintVerbose("template %q exists, skipping", t.Name)
		default:
			return &res, fmt.Errorf("template %q: %w", t.Name, err)
		}
	}

	return &res, nil
}
