package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/filing-analyzer/internal/bootstrap"
	"github.com/kirillkom/filing-analyzer/internal/config"
	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/filing-analyzer/internal/observability/logging"
)

const service = "filingctl"

type globalFlags struct {
	envFile      string
	keywordsFile string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "filingctl",
		Short:         "Analyze financial filing PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Optional KEY=VALUE file loaded before the environment is read")
	cmd.PersistentFlags().StringVar(&flags.keywordsFile, "keywords-file", "", "YAML file with table keywords and labels")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	cmd.AddCommand(analyzeCmd(flags), tablesCmd(flags))
	return cmd
}

func analyzeCmd(flags *globalFlags) *cobra.Command {
	var (
		questions []string
		xlsxPath  string
	)
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf>",
		Short: "Extract metadata and key tables, and answer questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer app.Close()
			return runAnalyze(cmd.Context(), app.AnalyzeUC, args[0], questions, xlsxPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "Question to answer over the filing (repeatable)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the key tables to this workbook")
	return cmd
}

func tablesCmd(flags *globalFlags) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "tables <file.pdf>",
		Short: "Export the key financial tables to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer app.Close()
			return runTables(cmd.Context(), app.AnalyzeUC, args[0], xlsxPath, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Output workbook path")
	_ = cmd.MarkFlagRequired("xlsx")
	return cmd
}

func newApp(ctx context.Context, flags *globalFlags) (*bootstrap.App, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if flags.keywordsFile != "" {
		cfg.KeywordsFile = flags.keywordsFile
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, service, cfg.LogLevel)
	return bootstrap.New(ctx, cfg, bootstrap.Options{Service: service, Logger: logger})
}

type report struct {
	DocumentID string                `json:"document_id"`
	Filename   string                `json:"filename"`
	Pages      int                   `json:"pages"`
	Metadata   domain.Metadata       `json:"metadata"`
	Tables     []domain.LabeledTable `json:"tables"`
	TableError string                `json:"table_error,omitempty"`
	Index      domain.IndexStats     `json:"index"`
	IndexError string                `json:"index_error,omitempty"`
	QA         []answerReport        `json:"qa,omitempty"`
}

type answerReport struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer,omitempty"`
	Sources  []string `json:"sources,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func newReport(a *domain.Analysis) report {
	out := report{
		DocumentID: a.DocumentID,
		Filename:   a.Filename,
		Pages:      a.Pages,
		Metadata:   a.Metadata,
		Tables:     a.Tables.Value,
		TableError: a.Tables.ErrorMessage(),
		Index:      a.Index.Value,
		IndexError: a.Index.ErrorMessage(),
	}
	for _, answer := range a.Answers {
		out.QA = append(out.QA, answerReport{
			Question: answer.Value.Question,
			Answer:   answer.Value.Answer,
			Sources:  answer.Value.SourceTexts(),
			Error:    answer.ErrorMessage(),
		})
	}
	return out
}

func runAnalyze(ctx context.Context, analyzer ports.FilingAnalyzer, path string, questions []string, xlsxPath string, out io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	analysis, err := analyzer.Analyze(ctx, ports.AnalyzeRequest{
		Filename:  filepath.Base(path),
		Content:   content,
		Questions: questions,
	})
	if err != nil {
		return err
	}
	if xlsxPath != "" {
		if err := writeWorkbook(xlsxPath, analysis.Tables.Value); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(newReport(analysis))
}

func runTables(ctx context.Context, reader ports.FilingTableReader, path, xlsxPath string, warnings io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	outcome, err := reader.Tables(ctx, filepath.Base(path), content)
	if err != nil {
		return err
	}
	if !outcome.OK() {
		fmt.Fprintln(warnings, "warning:", outcome.ErrorMessage())
	}
	return writeWorkbook(xlsxPath, outcome.Value)
}

func writeWorkbook(path string, tables []domain.LabeledTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := xlsx.Write(f, tables); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
