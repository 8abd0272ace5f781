package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetdash/internal/ai"
	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/insights"
	"github.com/KaramelBytes/sheetdash/internal/parser"
	"github.com/KaramelBytes/sheetdash/internal/utils"
)

var (
	anaUseAI      bool
	anaJSON       bool
	anaSheetName  string
	anaSheetIndex int
	anaMaxRows    int
	anaDelimiter  string
)

// analyzeReport is the --json output of analyze.
type analyzeReport struct {
	File     string                   `json:"file"`
	Rows     int                      `json:"rows"`
	Headers  []string                 `json:"headers"`
	Profiles []analysis.ColumnProfile `json:"profiles"`
	Chart    analysis.ChartSelection  `json:"chart"`
	Insights *insights.Payload        `json:"insights"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV/TSV/XLSX file and print chart series and insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := parser.Options{SheetName: anaSheetName, SheetIndex: anaSheetIndex, MaxRows: anaMaxRows}
		if !cmd.Flags().Changed("max-rows") {
			opt.MaxRows = cfg.MaxRows
		}
		switch anaDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case ";":
			opt.Delimiter = ';'
		case "\t", "tab":
			opt.Delimiter = '\t'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
		}
		ds, err := parser.ParseFile(path, opt)
		if err != nil {
			return err
		}

		var rt ai.Runtime
		if anaUseAI {
			rt, err = cfg.Runtime()
			if err != nil {
				return err
			}
			if rt == nil {
				return fmt.Errorf("--ai needs an api key: run 'sheetdash config set api_key <key>' or set SHEETDASH_API_KEY")
			}
		}
		analyzer := insights.NewAnalyzer(rt, insights.Options{
			Model:       cfg.DefaultModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, logger)

		ctx := cmd.Context()
		profiles := analysis.ClassifyAll(ds)
		rep := analyzeReport{
			File:     filepath.Base(path),
			Rows:     ds.Len(),
			Headers:  ds.Headers,
			Profiles: profiles,
			Chart:    analysis.SelectChartFromProfiles(ds, profiles),
			Insights: analyzer.Analyze(ctx, filepath.Base(path), ds),
		}

		out := cmd.OutOrStdout()
		if anaJSON {
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		printReport(out, rep)
		return nil
	},
}

func printReport(out io.Writer, rep analyzeReport) {
	fmt.Fprintf(out, "File: %s (%d rows, %d columns)\n\n", rep.File, rep.Rows, len(rep.Headers))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tVALUES\tUNIQUE\tNUMERIC\tAVERAGE")
	for _, p := range rep.Profiles {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", p.Name, p.Kind, p.Total, p.Unique, p.NumericCount,
			analysis.FormatValue(p.Average, analysis.OpAverage))
	}
	_ = tw.Flush()

	if rep.Chart.CategoryColumn != "" {
		fmt.Fprintf(out, "\nChart: %s by %s\n", rep.Chart.ValueColumn, rep.Chart.CategoryColumn)
		for _, pt := range rep.Chart.Series {
			fmt.Fprintf(out, "  %-24s %s\n", pt.Name, analysis.FormatValue(pt.Value, analysis.OpSum))
		}
	}

	if p := rep.Insights; p != nil {
		fmt.Fprintf(out, "\nInsights (%s):\n", p.Source)
		keys := make([]string, 0, len(p.WidgetInsights))
		for k := range p.WidgetInsights {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			in := p.WidgetInsights[k]
			line := fmt.Sprintf("  • %s: %s", in.WidgetName, in.Display())
			if in.Description != "" {
				line += " (" + in.Description + ")"
			}
			fmt.Fprintln(out, line)
		}
		for _, rec := range []*insights.ChartRecommendation{p.ChartRecommendations.BarChart, p.ChartRecommendations.PieChart} {
			if rec == nil {
				continue
			}
			names := make([]string, 0, len(rec.ChartData))
			for _, d := range rec.ChartData {
				names = append(names, string(d.Name))
			}
			fmt.Fprintf(out, "  • chart %q: %s\n", rec.Title, strings.Join(names, ", "))
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&anaUseAI, "ai", false, "ask the configured chat model for insights (falls back to heuristics on failure)")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the full report as JSON")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum rows to process (default from config; 0 = unlimited)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
}
