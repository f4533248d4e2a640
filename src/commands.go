package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tweet-sentiment/src/csvparse"
	"tweet-sentiment/src/dashboard"
	"tweet-sentiment/src/mq"
	"tweet-sentiment/src/pipeline"
	"tweet-sentiment/src/report"
	"tweet-sentiment/src/source"
	"tweet-sentiment/src/tweets"
	"tweet-sentiment/src/watch"
)

var (
	asJSON      bool
	tierCount   int
	tweetsOf    string
	tweetsLimit int
	outputPath  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE...",
	Short: "Analyse CSV exports and show the dashboard",
	Long: `Analyses one or more CSV exports (.csv or .csv.gz).

With a single file the result is stored as the last analysis. With several
files each one is analysed on its own, concurrently, and nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var columnsCmd = &cobra.Command{
	Use:   "columns FILE",
	Short: "List the header columns of an export",
	Args:  cobra.ExactArgs(1),
	RunE:  runColumns,
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check that an export has a classification column and data rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last stored dashboard",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored analysis",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var exportCmd = &cobra.Command{
	Use:   "export CATEGORY",
	Short: "Write the stored tweets of one category as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Re-analyse exports dropped into a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Analyse exports received from RabbitMQ",
	Args:  cobra.NoArgs,
	RunE:  runConsume,
}

func init() {
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the dashboard as JSON")
	analyzeCmd.Flags().IntVar(&tierCount, "tiers", -1, "Split keywords into N frequency tiers (default from config)")
	validateCmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the dashboard as JSON")
	showCmd.Flags().IntVar(&tierCount, "tiers", -1, "Split keywords into N frequency tiers (default from config)")
	showCmd.Flags().StringVar(&tweetsOf, "tweets", "", "Also list the tweets of this category")
	showCmd.Flags().IntVar(&tweetsLimit, "limit", 10, "Maximum number of tweets to list")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to this file instead of stdout")

	rootCmd.AddCommand(analyzeCmd, columnsCmd, validateCmd, showCmd, clearCmd, exportCmd, watchCmd, consumeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, release, err := newService(ctx)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		res, err := svc.Analyze(ctx, source.File{Path: args[0]})
		if err != nil {
			return err
		}
		return printResult(out, res)
	}

	results, err := svc.AnalyzeFiles(ctx, args)
	if err != nil {
		return err
	}
	failed := 0
	for _, fr := range results {
		fmt.Fprintf(out, "== %s\n", fr.Path)
		if fr.Err != nil {
			failed++
			fmt.Fprintf(out, "ERROR: %v\n\n", fr.Err)
			continue
		}
		if err := printResult(out, fr.Result); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runColumns(cmd *cobra.Command, args []string) error {
	text, err := source.ReadAllBytesAsText(cmd.Context(), source.File{Path: args[0]})
	if err != nil {
		return err
	}
	for i, name := range csvparse.GetColumnNames(text) {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i, name)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	text, err := source.ReadAllBytesAsText(cmd.Context(), source.File{Path: args[0]})
	if err != nil {
		return err
	}
	rep := csvparse.ValidateStructure(text)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	if !rep.Valid {
		return errors.New(rep.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d columns, %d data rows\n", len(rep.Headers), rep.TotalRows)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, release, err := newService(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, ok, err := svc.Last(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored analysis. Run 'analyze FILE' first.")
		return nil
	}
	if err := printResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if tweetsOf == "" {
		return nil
	}
	c, err := parseCategoryArg(tweetsOf)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.NewRenderer().Tweets(res.View.Tweets[c], tweetsLimit))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, release, err := newService(ctx)
	if err != nil {
		return err
	}
	defer release()
	return svc.Clear(ctx)
}

func runExport(cmd *cobra.Command, args []string) error {
	c, err := parseCategoryArg(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, release, err := newService(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, ok, err := svc.Last(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no stored analysis to export")
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputPath, err)
		}
		defer f.Close()
		w = f
	}
	return report.WriteCSV(w, res.Snapshot.Tweets[c])
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := cfg.Watch.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no directory to watch: pass DIR or set watch.dir")
	}

	ctx := cmd.Context()
	svc, release, err := newService(ctx)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()
	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	w, err := watch.New(dir, debounce, func(ctx context.Context, path string) error {
		res, err := svc.Analyze(ctx, source.File{Path: path})
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
			return err
		}
		fmt.Fprintf(out, "== %s\n", path)
		return printResult(out, res)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s for exports (Ctrl+C to stop)\n", dir)
	return w.Run(ctx)
}

func runConsume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, release, err := newService(ctx)
	if err != nil {
		return err
	}
	defer release()

	consumer, err := mq.NewConsumer(mq.Config{
		Host:        cfg.MQ.Host,
		Port:        cfg.MQ.Port,
		Username:    cfg.MQ.Username,
		Password:    cfg.MQ.Password,
		Queue:       cfg.MQ.Queue,
		ResultQueue: cfg.MQ.ResultQueue,
	}, svc)
	if err != nil {
		return err
	}
	defer consumer.Close()

	if backlog, err := consumer.Backlog(); err != nil {
		slog.Warn("Could not inspect input queue", "queue", cfg.MQ.Queue, "error", err)
	} else {
		slog.Info("Input queue backlog", "queue", backlog.Queue, "messages", backlog.Messages, "consumers", backlog.Consumers)
		fmt.Fprintf(cmd.OutOrStdout(), "%d exports waiting in %s\n", backlog.Messages, backlog.Queue)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Consuming exports from %s (Ctrl+C to stop)\n", cfg.MQ.Queue)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printResult(w io.Writer, res dashboard.Result) error {
	if asJSON {
		return writeJSON(w, res.View)
	}
	r := report.NewRenderer()
	if n := tiers(); n > 0 {
		r.Tiers = make(map[tweets.Category]pipeline.TierResult, len(tweets.Categories))
		for _, c := range tweets.Categories {
			r.Tiers[c] = pipeline.BuildKeywordTiers(res.Snapshot.KeywordStats[c], n, pipeline.TierOptions{})
		}
	}
	fmt.Fprint(w, r.Dashboard(res.View))
	fmt.Fprint(w, r.TierSummary())
	if res.ID != "" {
		fmt.Fprintf(w, "stored as %s at %s", res.ID, res.Timestamp)
		if res.Source != "" {
			fmt.Fprintf(w, " from %s", res.Source)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func tiers() int {
	if tierCount >= 0 {
		return tierCount
	}
	return cfg.Tiers
}

func parseCategoryArg(arg string) (tweets.Category, error) {
	if c, ok := tweets.ParseCategory(arg); ok {
		return c, nil
	}
	names := make([]string, len(tweets.Categories))
	for i, c := range tweets.Categories {
		names[i] = string(c)
	}
	return "", fmt.Errorf("unknown category %q (want one of %s)", arg, strings.Join(names, ", "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
