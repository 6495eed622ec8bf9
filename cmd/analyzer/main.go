package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/time/rate"

	"bankflow/internal/config"
	"bankflow/internal/dataprocessing"
	"bankflow/internal/infrastructure"
	"bankflow/internal/services"
	"bankflow/internal/whois"
	"bankflow/pkg/contracts"
	"bankflow/pkg/contracts/domain"
)

func main() {
	fileA := flag.String("a", "", "transaction workbook (file A)")
	fileB := flag.String("b", "", "IP login workbook (file B)")
	output := flag.String("o", "analysis_report.xlsx", "output report path")
	batchRoot := flag.String("batch", "", "scan this directory for A/B workbook pairs and analyze each folder")
	outputDir := flag.String("output-dir", "", "directory for batch reports (defaults to the batch root)")
	maxDepth := flag.Int("max-depth", 3, "maximum folder depth for batch scanning")
	showHeaders := flag.String("show-headers", "", "print the header check for this workbook and exit")
	fileType := flag.String("type", "a", "workbook type for -show-headers: a (transactions) or b (IP logins)")
	mapA := flag.String("map-a", "", "JSON object overriding file A column headers, e.g. {\"timestamp\":\"時間\"}")
	mapB := flag.String("map-b", "", "JSON object overriding file B column headers")
	windowBefore := flag.Int64("window-before", -1, "seconds before a transaction a login may match (default from config)")
	windowAfter := flag.Int64("window-after", -1, "seconds after a transaction a login may match (default from config)")
	hideSensitive := flag.Bool("hide-sensitive", false, "mask sensitive columns in the report")
	noSplit := flag.Bool("no-split", false, "do not split income and expense into separate sheets")
	noMatch := flag.Bool("no-match", false, "skip IP cross-referencing")
	whoisLookup := flag.Bool("whois", false, "enrich matched IPs with country and ISP")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	// A CLI run logs to the console only.
	cfg.Logging.Output = "console"
	cfg.Logging.Format = "text"
	logger := infrastructure.MustInitializeLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mappingA, err := parseMapping(*mapA)
	if err != nil {
		logger.Error("Invalid -map-a", "error", err)
		os.Exit(1)
	}
	mappingB, err := parseMapping(*mapB)
	if err != nil {
		logger.Error("Invalid -map-b", "error", err)
		os.Exit(1)
	}

	service := services.NewAnalysisService(logger, whoisClient(cfg, logger, *whoisLookup))

	switch {
	case *showHeaders != "":
		if err := runShowHeaders(service, *showHeaders, *fileType, mappingA, mappingB); err != nil {
			logger.Error("Header check failed", "error", err)
			os.Exit(1)
		}
	case *batchRoot != "":
		request := buildRequest(cfg, mappingA, mappingB, *windowBefore, *windowAfter, *hideSensitive, *noSplit, *noMatch, *whoisLookup)
		dir := *outputDir
		if dir == "" {
			dir = *batchRoot
		}
		if err := runBatch(ctx, service, logger, *batchRoot, dir, *maxDepth, request); err != nil {
			logger.Error("Batch analysis failed", "error", err)
			os.Exit(1)
		}
	case *fileA != "" && *fileB != "":
		request := buildRequest(cfg, mappingA, mappingB, *windowBefore, *windowAfter, *hideSensitive, *noSplit, *noMatch, *whoisLookup)
		request.PathA = *fileA
		request.PathB = *fileB
		request.OutputPath = *output
		if err := runSingle(ctx, service, logger, request); err != nil {
			logger.Error("Analysis failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: analyzer -a transactions.xlsx -b logins.xlsx [-o report.xlsx]")
		fmt.Fprintln(os.Stderr, "       analyzer -batch /path/to/cases [-output-dir reports]")
		fmt.Fprintln(os.Stderr, "       analyzer -show-headers file.xlsx -type a|b")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func parseMapping(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, fmt.Errorf("expected a JSON object of field to header: %w", err)
	}
	return mapping, nil
}

func whoisClient(cfg *config.Config, logger *slog.Logger, requested bool) *whois.Client {
	if !requested && !cfg.Whois.Enabled {
		return nil
	}
	return whois.NewClient(logger,
		whois.WithEndpoint(cfg.Whois.Endpoint),
		whois.WithRateLimit(rate.Limit(cfg.Whois.RatePerSecond)),
		whois.WithHTTPClient(&http.Client{Timeout: cfg.Whois.Timeout}),
	)
}

// buildRequest folds configuration defaults and CLI flags into one request.
// A negative window flag means the flag was not given.
func buildRequest(cfg *config.Config, mappingA, mappingB map[string]string, windowBefore, windowAfter int64, hideSensitive, noSplit, noMatch, whoisLookup bool) *services.AnalysisRequest {
	window := dataprocessing.TimeWindow{Before: cfg.Analysis.WindowBefore, After: cfg.Analysis.WindowAfter}
	if windowBefore >= 0 {
		window.Before = windowBefore
	}
	if windowAfter >= 0 {
		window.After = windowAfter
	}

	return &services.AnalysisRequest{
		MappingA: mappingA,
		MappingB: mappingB,
		Window:   &window,
		Settings: domain.AnalysisSettings{
			HideSensitive:      hideSensitive || cfg.Analysis.HideSensitive,
			SplitIncomeExpense: cfg.Analysis.SplitIncomeExpense && !noSplit,
			IPCrossReference:   !noMatch,
			WhoisLookup:        whoisLookup,
		},
		SensitiveColumns: cfg.Analysis.SensitiveColumns,
	}
}

func runShowHeaders(service *services.AnalysisService, path, fileType string, mappingA, mappingB map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var preview *services.HeaderPreview
	switch fileType {
	case "a":
		preview, err = service.PreviewTransactionHeaders(f, mappingA)
	case "b":
		preview, err = service.PreviewIPLogHeaders(f, mappingB)
	default:
		return fmt.Errorf("unknown file type %q, expected a or b", fileType)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Headers: %s\n", strings.Join(preview.Headers, ", "))
	if preview.Valid {
		fmt.Println("All required columns resolved.")
		return nil
	}
	fmt.Printf("Missing columns: %s\n", strings.Join(preview.Missing, ", "))
	return nil
}

func runSingle(ctx context.Context, service *services.AnalysisService, logger *slog.Logger, request *services.AnalysisRequest) error {
	outcome, err := service.Analyze(ctx, request)
	if err != nil {
		return err
	}

	logger.Info("Analysis complete",
		slog.String("report", request.OutputPath),
		slog.Int("total_records", outcome.Result.TotalRecords),
		slog.Int("matched", outcome.Result.MatchedCount),
		slog.Int("multi_ip", outcome.Result.MultiIPCount),
		slog.Duration("duration", outcome.Duration))
	return nil
}

func runBatch(ctx context.Context, service *services.AnalysisService, logger *slog.Logger, root, outputDir string, maxDepth int, request *services.AnalysisRequest) error {
	outcome, err := service.AnalyzeBatch(ctx, root, outputDir, maxDepth, request)
	if err != nil {
		return err
	}

	for _, folder := range outcome.Analyzed {
		if folder.Err != "" {
			logger.Error("Folder failed", slog.String("folder", folder.FolderName), slog.String("error", folder.Err))
			continue
		}
		logger.Info("Folder analyzed",
			slog.String("folder", folder.FolderName),
			slog.String("report", folder.ReportPath),
			slog.Int("matched", folder.Result.MatchedCount))
	}
	for _, folder := range outcome.IncompleteFolders {
		logger.Warn("Folder skipped, could not identify exactly one A and one B workbook",
			slog.String("folder", folder))
	}

	logger.Info("Batch complete",
		slog.Int("folders_scanned", outcome.TotalFoldersScanned),
		slog.Int("analyzed", len(outcome.Analyzed)),
		slog.Int("incomplete", len(outcome.IncompleteFolders)))
	return nil
}
