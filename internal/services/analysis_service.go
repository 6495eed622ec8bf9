package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bankflow/internal/dataprocessing"
	apperrors "bankflow/internal/errors"
	"bankflow/internal/exporter"
	"bankflow/internal/files"
	"bankflow/internal/metrics"
	"bankflow/internal/operations"
	"bankflow/internal/whois"
	"bankflow/pkg/contracts/domain"
)

// AnalysisRequest describes one correlation run. Inputs come either from
// paths on disk or from already-open readers (uploads).
type AnalysisRequest struct {
	PathA string
	PathB string

	SourceA io.Reader
	SourceB io.Reader
	NameA   string
	NameB   string

	// Header overrides: logical field key to the header actually present.
	MappingA map[string]string
	MappingB map[string]string

	// Window, when nil, falls back to the default correlation window. A
	// non-nil zero window is honored as-is and matches the same second only.
	Window           *dataprocessing.TimeWindow
	Settings         domain.AnalysisSettings
	SensitiveColumns []int

	// OutputPath, when set, also writes the report to disk.
	OutputPath string
}

// AnalysisOutcome is the product of one run: the summary counters, the xlsx
// report, and the per-step execution trace.
type AnalysisOutcome struct {
	Result   *domain.AnalysisResult
	Report   []byte
	MetaA    domain.FileMetadata
	MetaB    domain.FileMetadata
	Steps    []*operations.StepState
	Duration time.Duration
}

// AnalysisService orchestrates the correlation pipeline.
type AnalysisService struct {
	logger   *slog.Logger
	whois    *whois.Client
	exporter *exporter.ReportExporter
}

// NewAnalysisService creates the service. whoisClient may be nil when IP
// enrichment is disabled.
func NewAnalysisService(logger *slog.Logger, whoisClient *whois.Client) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		logger:   logger.With(slog.String("component", "analysis_service")),
		whois:    whoisClient,
		exporter: exporter.NewReportExporter(),
	}
}

// Analyze runs the full pipeline for one pair of inputs.
func (s *AnalysisService) Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisOutcome, error) {
	start := time.Now()

	state := operations.NewState("")
	state.PathA = req.PathA
	state.PathB = req.PathB
	state.Settings = req.Settings

	runner := operations.NewRunner(s.logger,
		operations.NewStepFunc("parse", "Parse Inputs", func(ctx context.Context, st *operations.State) error {
			return s.parse(req, st)
		}),
		operations.NewStepFunc("match", "Correlate Logins", func(ctx context.Context, st *operations.State) error {
			return s.match(ctx, req, st)
		}),
		operations.NewStepFunc("whois", "Enrich IPs", func(ctx context.Context, st *operations.State) error {
			return s.enrich(ctx, st)
		}),
		operations.NewStepFunc("process", "Project and Mask", func(ctx context.Context, st *operations.State) error {
			return s.process(req, st)
		}),
		operations.NewStepFunc("export", "Export Report", func(ctx context.Context, st *operations.State) error {
			return s.export(req, st)
		}),
	)

	run := runner.Run(ctx, state)

	outcome := &AnalysisOutcome{
		Result:   state.Result,
		Report:   state.Report,
		MetaA:    state.MetaA,
		MetaB:    state.MetaB,
		Steps:    run.Steps,
		Duration: run.Duration,
	}

	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if run.Err != nil {
		metrics.AnalysesTotal.WithLabelValues("single", "error").Inc()
		return outcome, run.Err
	}
	metrics.AnalysesTotal.WithLabelValues("single", "ok").Inc()
	return outcome, nil
}

func (s *AnalysisService) parse(req *AnalysisRequest, st *operations.State) error {
	var (
		transactions []domain.Transaction
		ipRecords    []domain.IPRecord
		metaA, metaB *domain.FileMetadata
		err          error
	)

	if req.SourceA != nil {
		transactions, metaA, err = dataprocessing.ParseTransactionsFromReader(req.SourceA, req.NameA, req.MappingA)
	} else {
		transactions, metaA, err = dataprocessing.ParseTransactions(req.PathA, req.MappingA)
	}
	if err != nil {
		return parseError("file A", err)
	}

	if req.SourceB != nil {
		ipRecords, metaB, err = dataprocessing.ParseIPRecordsFromReader(req.SourceB, req.NameB, req.MappingB)
	} else {
		ipRecords, metaB, err = dataprocessing.ParseIPRecords(req.PathB, req.MappingB)
	}
	if err != nil {
		return parseError("file B", err)
	}

	st.Transactions = transactions
	st.IPRecords = ipRecords
	st.MetaA = *metaA
	st.MetaB = *metaB

	metrics.RowsProcessedTotal.Add(float64(len(transactions)))
	return nil
}

// parseError keeps the structured missing-column list when header resolution
// failed, so the HTTP edge can report exactly which columns to remap.
func parseError(file string, err error) error {
	var colErr *dataprocessing.ColumnError
	if errors.As(err, &colErr) {
		return apperrors.ErrMissingColumns(file, colErr.Missing)
	}
	return apperrors.NewParsingError(file, err)
}

func (s *AnalysisService) match(ctx context.Context, req *AnalysisRequest, st *operations.State) error {
	result := &domain.AnalysisResult{
		TotalRecords: len(st.Transactions),
		Settings:     st.Settings,
	}
	st.Result = result

	if !st.Settings.IPCrossReference {
		return nil
	}

	window := dataprocessing.DefaultTimeWindow()
	if req.Window != nil {
		window = *req.Window
	}

	matcher := dataprocessing.NewIPMatcher(st.IPRecords, window)
	matcher.MatchAll(ctx, st.Transactions)

	stats := matcher.Stats(st.Transactions)
	result.MatchedCount = stats.Matched
	result.MultiIPCount = stats.MultiIP

	metrics.RowsMatchedTotal.Add(float64(stats.Matched))
	metrics.MultiIPRowsTotal.Add(float64(stats.MultiIP))
	return nil
}

func (s *AnalysisService) enrich(ctx context.Context, st *operations.State) error {
	if !st.Settings.WhoisLookup || !st.Settings.IPCrossReference || s.whois == nil {
		return nil
	}

	// One lookup per distinct first IP; repeated IPs hit the client cache.
	queried := make(map[string]domain.WhoisResult)
	for i := range st.Transactions {
		tx := &st.Transactions[i]
		ip := dataprocessing.FirstIP(tx.MatchedIP)
		if ip == "" {
			continue
		}

		res, seen := queried[ip]
		if !seen {
			res = s.whois.Lookup(ctx, ip)
			queried[ip] = res
			if res.QuerySuccess {
				metrics.WhoisLookupsTotal.WithLabelValues("ok").Inc()
			} else {
				metrics.WhoisLookupsTotal.WithLabelValues("error").Inc()
			}
		}

		tx.IPCountry = res.Country
		tx.IPISP = res.ISP
	}

	st.Result.WhoisQueried = len(queried)
	return nil
}

func (s *AnalysisService) process(req *AnalysisRequest, st *operations.State) error {
	// Projections and counterparty extraction read the raw columns, so both
	// run before masking.
	if st.Settings.SplitIncomeExpense {
		income, expense := dataprocessing.SplitIncomeExpense(st.Transactions)
		if income == nil {
			income = []domain.Transaction{}
		}
		if expense == nil {
			expense = []domain.Transaction{}
		}
		st.IncomeRecords = income
		st.ExpenseRecords = expense
		st.Counterparties = dataprocessing.ExtractCounterparties(income, expense)
	} else {
		st.Counterparties = dataprocessing.ExtractCounterparties(st.Transactions)
	}

	if st.Settings.HideSensitive {
		columns := req.SensitiveColumns
		if len(columns) == 0 {
			columns = dataprocessing.DefaultSensitiveColumns
		}
		processor := dataprocessing.NewProcessorWithColumns(true, columns)
		processor.Process(st.Transactions)
		processor.Process(st.IncomeRecords)
		processor.Process(st.ExpenseRecords)
	}
	return nil
}

func (s *AnalysisService) export(req *AnalysisRequest, st *operations.State) error {
	report, err := s.exporter.ExportToBytes(st.Transactions, st.IncomeRecords, st.ExpenseRecords, st.Counterparties)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	st.Report = report

	metrics.ReportsExportedTotal.Inc()
	metrics.ReportBytes.Observe(float64(len(report)))

	if req.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
			return apperrors.NewStorageError("create output directory", err)
		}
		if err := os.WriteFile(req.OutputPath, report, 0o644); err != nil {
			return apperrors.NewStorageError("write report", err)
		}
	}
	return nil
}

// HeaderPreview reports how a header row resolves against the required
// columns, so a caller can offer a repair mapping before running an analysis.
type HeaderPreview struct {
	Headers []string `json:"headers"`
	Missing []string `json:"missing,omitempty"`
	Valid   bool     `json:"valid"`
}

// PreviewTransactionHeaders inspects a File A header row.
func (s *AnalysisService) PreviewTransactionHeaders(r io.Reader, mapping map[string]string) (*HeaderPreview, error) {
	headers, err := dataprocessing.HeadersFromReader(r)
	if err != nil {
		return nil, err
	}
	return previewHeaders(headers, func() error {
		_, err := dataprocessing.ResolveFileAColumns(headers, mapping)
		return err
	})
}

// PreviewIPLogHeaders inspects a File B header row.
func (s *AnalysisService) PreviewIPLogHeaders(r io.Reader, mapping map[string]string) (*HeaderPreview, error) {
	headers, err := dataprocessing.HeadersFromReader(r)
	if err != nil {
		return nil, err
	}
	return previewHeaders(headers, func() error {
		_, err := dataprocessing.ResolveFileBColumns(headers, mapping)
		return err
	})
}

func previewHeaders(headers []string, resolve func() error) (*HeaderPreview, error) {
	preview := &HeaderPreview{Headers: headers, Valid: true}
	if err := resolve(); err != nil {
		colErr, ok := err.(*dataprocessing.ColumnError)
		if !ok {
			return nil, err
		}
		preview.Valid = false
		preview.Missing = colErr.Missing
	}
	return preview, nil
}

// BatchFolderOutcome records how one paired folder fared during a batch run.
type BatchFolderOutcome struct {
	FolderName string                 `json:"folder_name"`
	ReportPath string                 `json:"report_path,omitempty"`
	Result     *domain.AnalysisResult `json:"result,omitempty"`
	Err        string                 `json:"error,omitempty"`
}

// BatchOutcome summarizes a batch run over a folder tree.
type BatchOutcome struct {
	TotalFoldersScanned int                  `json:"total_folders_scanned"`
	Analyzed            []BatchFolderOutcome `json:"analyzed"`
	IncompleteFolders   []string             `json:"incomplete_folders,omitempty"`
}

// AnalyzeBatch scans root for paired workbooks and runs the pipeline on each
// pair, writing one report per folder into outputDir. A failed folder does
// not stop the rest of the batch.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, root, outputDir string, maxDepth int, template *AnalysisRequest) (*BatchOutcome, error) {
	if template == nil {
		template = &AnalysisRequest{Settings: domain.DefaultAnalysisSettings()}
	}

	discovery := files.NewDiscovery(root)
	scan, err := discovery.ScanPairs(".", maxDepth)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("batch", "error").Inc()
		return nil, err
	}

	outcome := &BatchOutcome{
		TotalFoldersScanned: scan.TotalFoldersScanned,
		IncompleteFolders:   scan.IncompleteFolders,
	}

	for _, pair := range scan.Pairs {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		req := &AnalysisRequest{
			PathA:            pair.PathA,
			PathB:            pair.PathB,
			MappingA:         template.MappingA,
			MappingB:         template.MappingB,
			Window:           template.Window,
			Settings:         template.Settings,
			SensitiveColumns: template.SensitiveColumns,
			OutputPath:       filepath.Join(outputDir, pair.FolderName+"_report.xlsx"),
		}

		folder := BatchFolderOutcome{FolderName: pair.FolderName}
		res, err := s.Analyze(ctx, req)
		if err != nil {
			folder.Err = err.Error()
			s.logger.WarnContext(ctx, "batch folder failed",
				slog.String("folder", pair.FolderName),
				slog.String("error", err.Error()))
		} else {
			folder.ReportPath = req.OutputPath
			folder.Result = res.Result
		}
		outcome.Analyzed = append(outcome.Analyzed, folder)
	}

	metrics.AnalysesTotal.WithLabelValues("batch", "ok").Inc()
	return outcome, nil
}
