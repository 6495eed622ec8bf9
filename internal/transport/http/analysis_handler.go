package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"bankflow/internal/dataprocessing"
	apierrors "bankflow/internal/errors"
	"bankflow/internal/services"
	"bankflow/pkg/contracts/domain"
)

const reportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalysisHandler handles analysis HTTP requests
type AnalysisHandler struct {
	service        *services.AnalysisService
	validate       *validator.Validate
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *services.AnalysisService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *AnalysisHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &AnalysisHandler{
		service:        service,
		validate:       validator.New(),
		logger:         logger.With(slog.String("component", "analysis_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Analyze)
	r.Post("/headers", h.PreviewHeaders)
	r.With(render.SetContentType(render.ContentTypeJSON)).Post("/batch", h.AnalyzeBatch)

	return r
}

// analysisOptions carries the tunable settings of a run. All fields are
// optional; zero values fall back to the service defaults.
type analysisOptions struct {
	WindowBefore       int64 `json:"window_before" validate:"min=0,max=86400"`
	WindowAfter        int64 `json:"window_after" validate:"min=0,max=86400"`
	HideSensitive      bool  `json:"hide_sensitive"`
	SensitiveColumns   []int `json:"sensitive_columns" validate:"omitempty,dive,min=0"`
	SplitIncomeExpense bool  `json:"split_income_expense"`
	IPCrossReference   bool  `json:"ip_cross_reference"`
	WhoisLookup        bool  `json:"whois_lookup"`

	MappingA map[string]string `json:"mapping_a"`
	MappingB map[string]string `json:"mapping_b"`
}

func defaultOptions() analysisOptions {
	settings := domain.DefaultAnalysisSettings()
	window := dataprocessing.DefaultTimeWindow()
	return analysisOptions{
		WindowBefore:       window.Before,
		WindowAfter:        window.After,
		HideSensitive:      settings.HideSensitive,
		SplitIncomeExpense: settings.SplitIncomeExpense,
		IPCrossReference:   settings.IPCrossReference,
		WhoisLookup:        settings.WhoisLookup,
	}
}

func (o *analysisOptions) toRequest() *services.AnalysisRequest {
	return &services.AnalysisRequest{
		MappingA: o.MappingA,
		MappingB: o.MappingB,
		Window:   &dataprocessing.TimeWindow{Before: o.WindowBefore, After: o.WindowAfter},
		Settings: domain.AnalysisSettings{
			HideSensitive:      o.HideSensitive,
			SplitIncomeExpense: o.SplitIncomeExpense,
			IPCrossReference:   o.IPCrossReference,
			WhoisLookup:        o.WhoisLookup,
		},
		SensitiveColumns: o.SensitiveColumns,
	}
}

// optionsFromForm reads analysis options from multipart form fields. The
// mapping fields carry JSON objects.
func (h *AnalysisHandler) optionsFromForm(r *http.Request) (analysisOptions, error) {
	opts := defaultOptions()

	parseInt := func(field string, into *int64) error {
		v := r.FormValue(field)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer", field)
		}
		*into = n
		return nil
	}
	parseBool := func(field string, into *bool) error {
		v := r.FormValue(field)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean", field)
		}
		*into = b
		return nil
	}
	parseMapping := func(field string, into *map[string]string) error {
		v := r.FormValue(field)
		if v == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), into); err != nil {
			return fmt.Errorf("%s must be a JSON object of field to header", field)
		}
		return nil
	}

	steps := []error{
		parseInt("window_before", &opts.WindowBefore),
		parseInt("window_after", &opts.WindowAfter),
		parseBool("hide_sensitive", &opts.HideSensitive),
		parseBool("split_income_expense", &opts.SplitIncomeExpense),
		parseBool("ip_cross_reference", &opts.IPCrossReference),
		parseBool("whois_lookup", &opts.WhoisLookup),
		parseMapping("mapping_a", &opts.MappingA),
		parseMapping("mapping_b", &opts.MappingB),
	}
	for _, err := range steps {
		if err != nil {
			return opts, err
		}
	}

	if v := r.FormValue("sensitive_columns"); v != "" {
		if err := json.Unmarshal([]byte(v), &opts.SensitiveColumns); err != nil {
			return opts, fmt.Errorf("sensitive_columns must be a JSON array of indices")
		}
	}

	if err := h.validate.Struct(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseMultipart enforces the upload limit and parses the form. Failures are
// already written to the response when it returns an error.
func (h *AnalysisHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	err := r.ParseMultipartForm(h.maxUploadBytes)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
	} else {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	}
	return err
}

// Analyze handles POST /api/analyze. The request is a multipart form with
// the two workbooks under file_a and file_b; the response is the report
// workbook.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		return
	}

	fileA, headerA, err := r.FormFile("file_a")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file_a", "Transaction workbook is required"))
		return
	}
	defer fileA.Close()

	fileB, headerB, err := r.FormFile("file_b")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file_b", "IP log workbook is required"))
		return
	}
	defer fileB.Close()

	opts, err := h.optionsFromForm(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	req := opts.toRequest()
	req.SourceA = fileA
	req.SourceB = fileB
	req.NameA = headerA.Filename
	req.NameB = headerB.Filename

	outcome, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "analysis completed",
		slog.String("file_a", headerA.Filename),
		slog.String("file_b", headerB.Filename),
		slog.Int("total_records", outcome.Result.TotalRecords),
		slog.Int("matched", outcome.Result.MatchedCount),
		slog.Duration("duration", outcome.Duration))

	filename := fmt.Sprintf("analysis_report_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", reportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Total-Records", strconv.Itoa(outcome.Result.TotalRecords))
	w.Header().Set("X-Matched-Records", strconv.Itoa(outcome.Result.MatchedCount))
	w.Header().Set("X-Multi-IP-Records", strconv.Itoa(outcome.Result.MultiIPCount))
	w.Write(outcome.Report)
}

// PreviewHeaders handles POST /api/analyze/headers. It reads only the header
// row of an uploaded workbook and reports whether the required columns
// resolve, so a client can collect overrides before a full run.
func (h *AnalysisHandler) PreviewHeaders(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Workbook is required"))
		return
	}
	defer file.Close()

	fileType := r.FormValue("file_type")
	if fileType != "a" && fileType != "b" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file_type", "file_type must be \"a\" or \"b\""))
		return
	}

	var mapping map[string]string
	if v := r.FormValue("mapping"); v != "" {
		if err := json.Unmarshal([]byte(v), &mapping); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("mapping", "mapping must be a JSON object"))
			return
		}
	}

	var preview *services.HeaderPreview
	if fileType == "a" {
		preview, err = h.service.PreviewTransactionHeaders(file, mapping)
	} else {
		preview, err = h.service.PreviewIPLogHeaders(file, mapping)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, preview)
}

// batchRequest is the JSON body of POST /api/analyze/batch.
type batchRequest struct {
	Root      string          `json:"root" validate:"required"`
	OutputDir string          `json:"output_dir"`
	MaxDepth  int             `json:"max_depth" validate:"min=0,max=10"`
	Options   analysisOptions `json:"options"`
}

// AnalyzeBatch handles POST /api/analyze/batch, pairing workbooks by folder
// under root and writing one report per pair.
func (h *AnalysisHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	req := batchRequest{MaxDepth: 3, Options: defaultOptions()}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = req.Root
	}

	outcome, err := h.service.AnalyzeBatch(r.Context(), req.Root, outputDir, req.MaxDepth, req.Options.toRequest())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, outcome)
}
