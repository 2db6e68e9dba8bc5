package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fundscan/internal/config"
	"github.com/sells-group/fundscan/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single company",
	Long:  "Runs the full pipeline for one company and prints the report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		companyURL, _ := cmd.Flags().GetString("company-url")
		profileURL, _ := cmd.Flags().GetString("profile-url")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		env, err := initPipeline(ctx, config.ModeAnalyze)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Pipeline.Run(ctx, model.AnalyzeRequest{
			CompanyURL: companyURL,
			ProfileURL: profileURL,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		return writeReport(os.Stdout, report, format)
	},
}

func checkFormat(format string) error {
	switch format {
	case "json", "yaml":
		return nil
	default:
		return eris.Errorf("unsupported format %q (json, yaml)", format)
	}
}

// writeReport encodes report to w as indented JSON or YAML.
func writeReport(w io.Writer, report *model.Report, format string) error {
	switch format {
	case "yaml":
		// Round-trip through JSON so YAML keys match the API's field names.
		raw, err := json.Marshal(report)
		if err != nil {
			return eris.Wrap(err, "encode report")
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrap(err, "encode report")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return checkFormat(format)
	}
}

func init() {
	analyzeCmd.Flags().String("company-url", "", "company website URL (required)")
	analyzeCmd.Flags().String("profile-url", "", "Crunchbase profile URL (required)")
	analyzeCmd.Flags().String("format", "json", "output format: json or yaml")
	_ = analyzeCmd.MarkFlagRequired("company-url")
	_ = analyzeCmd.MarkFlagRequired("profile-url")
	rootCmd.AddCommand(analyzeCmd)
}
