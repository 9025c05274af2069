// Package main provides the offline CLI for composing workbooks without
// the HTTP layer.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/crumbworks/sheetforge/internal/core"
	"github.com/crumbworks/sheetforge/internal/logging"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

var (
	outputPath   string
	templatesDir string
	reportsDir   string
	dbDriver     string
	dbDSN        string
	logLevel     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetforge",
		Short: "Compose xlsx workbooks from declarative documents",
		Long: `sheetforge composes xlsx workbooks offline: from JSON workbook
documents, stored templates with placeholder data, or saved YAML report
definitions.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logLevel, "text")
		},
	}

	rootCmd.PersistentFlags().StringVar(&templatesDir, "templates", "templates", "Template directory")
	rootCmd.PersistentFlags().StringVar(&reportsDir, "reports", "reports", "Report definitions directory")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Row-source database driver: mysql or postgres")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "dsn", "", "Row-source database connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	buildCmd := &cobra.Command{
		Use:   "build <spec.json>",
		Short: "Compose a workbook from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	buildCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: the document's output name)")

	validateCmd := &cobra.Command{
		Use:   "validate <spec.json>",
		Short: "Validate a JSON document and print its write plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	fillCmd := &cobra.Command{
		Use:   "fill <template.xlsx> <data.json>",
		Short: "Fill a template file with placeholder data",
		Args:  cobra.ExactArgs(2),
		RunE:  runFill,
	}
	fillCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: <template>_filled.xlsx)")

	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Work with saved report definitions",
	}
	reportsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the report definitions in the reports directory",
		Args:  cobra.NoArgs,
		RunE:  runReportsList,
	})
	renderCmd := &cobra.Command{
		Use:   "render <name> [params.json]",
		Short: "Render a saved report, optionally with a parameter file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runReportsRender,
	}
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: the report's output name)")
	reportsCmd.AddCommand(renderCmd)

	rootCmd.AddCommand(buildCmd, validateCmd, fillCmd, reportsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newService wires an offline service from the CLI flags. Query-backed
// tables work only when --driver/--dsn are given.
func newService(ctx context.Context) (*core.Service, func(), error) {
	store, err := core.NewTemplateStore(templatesDir, 64<<20, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	reports, err := core.LoadReports(reportsDir, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	var source core.RowSource
	cleanup := func() {}
	if dbDriver != "" && dbDSN != "" {
		db, err := sql.Open(dbDriver, dbDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		source = core.NewSQLSource(db)
		cleanup = func() { db.Close() }
	}

	service := core.NewService(core.ServiceDeps{
		Templates: store,
		Reports:   reports,
		Limiter:   core.NewComposeLimiter(1, 0),
		Source:    source,
		Log:       slog.Default(),
	})
	return service, cleanup, nil
}

// readDocument decodes a workbook document from a JSON file. UseNumber
// keeps integer cell values intact.
func readDocument(path string) (*core.WorkbookSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc core.WorkbookSpec
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := service.BuildWorkbook(ctx, doc)
	if err != nil {
		return fmt.Errorf("%s", core.FormatUserError(err))
	}

	out := outputPath
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("composed %s (%d sheets, %d cells, %d bytes)\n", out, res.Sheets, res.Cells, len(res.Data))
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	service, cleanup, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	plan, err := service.PlanWorkbook(doc)
	if err != nil {
		var valErr *core.ValidationError
		if errors.As(err, &valErr) {
			fmt.Println("document is invalid:")
			for _, iss := range valErr.Issues {
				fmt.Printf("  %s: %s\n", iss.Field, iss.Message)
			}
			return fmt.Errorf("%d issue(s) found", len(valErr.Issues))
		}
		return err
	}

	fmt.Printf("document is valid: %d sheets, %d planned cells, %d tables (%d query-backed)\n",
		plan.Sheets, plan.PlannedCells, plan.Tables, plan.QueryBacked)
	return nil
}

func runFill(cmd *cobra.Command, args []string) error {
	templatePath, dataPath := args[0], args[1]

	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return fmt.Errorf("parse %s: %w", dataPath, err)
	}

	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	cells, err := core.Fill(f, data, slog.Default())
	if err != nil {
		return fmt.Errorf("%s", core.FormatUserError(err))
	}

	out := outputPath
	if out == "" {
		out = filledOutputName(templatePath)
	}
	if err := f.SaveAs(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("filled %s (%d cells substituted)\n", out, cells)
	return nil
}

// filledOutputName derives the default fill output path next to the
// template file.
func filledOutputName(templatePath string) string {
	base := strings.TrimSuffix(templatePath, filepath.Ext(templatePath))
	return base + "_filled.xlsx"
}

func runReportsList(cmd *cobra.Command, args []string) error {
	reports, err := core.LoadReports(reportsDir, slog.Default())
	if err != nil {
		return err
	}

	defs := reports.List()
	if len(defs) == 0 {
		fmt.Println("no report definitions found")
		return nil
	}
	for _, def := range defs {
		line := def.Name
		if def.Description != "" {
			line += "  -  " + def.Description
		}
		fmt.Println(line)
	}
	return nil
}

func runReportsRender(cmd *cobra.Command, args []string) error {
	params := make(map[string]any)
	if len(args) == 2 {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil {
			return fmt.Errorf("parse %s: %w", args[1], err)
		}
	}

	ctx := cmd.Context()
	service, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := service.RenderReport(ctx, args[0], params)
	if err != nil {
		return fmt.Errorf("%s", core.FormatUserError(err))
	}

	out := outputPath
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("rendered %s (%d sheets, %d cells)\n", out, res.Sheets, res.Cells)
	return nil
}
