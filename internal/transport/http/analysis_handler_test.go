package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "bankflow/internal/errors"
	"bankflow/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalysisHandler(t *testing.T) *AnalysisHandler {
	t.Helper()
	logger := testLogger()
	service := services.NewAnalysisService(logger, nil)
	return NewAnalysisHandler(service, logger, apierrors.NewErrorHandler(logger, false), 0)
}

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, cell := range row {
			if cell == nil {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellName, cell))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func fileAFixture(t *testing.T) []byte {
	return buildWorkbook(t, [][]interface{}{
		{"交易時間", "帳號", "摘要", "支出金額", "存入金額", "對方帳號"},
		{"2024-01-15 10:30:00", "ACC-1", "transfer in", nil, 500.0, "CP-9"},
		{"2024-01-15 11:00:00", "ACC-1", "withdrawal", 120.5, nil, "CP-3"},
	})
}

func fileBFixture(t *testing.T) []byte {
	return buildWorkbook(t, [][]interface{}{
		{"登入時間", "帳號", "ip位址"},
		{"2024-01-15 10:29:59", "ACC-1", "203.0.113.7"},
	})
}

// multipartBody assembles a multipart form from file parts and plain fields.
func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, content := range files {
		part, err := mw.CreateFormFile(name, name+".xlsx")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAnalyzeReturnsReport(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"file_a": fileAFixture(t), "file_b": fileBFixture(t)},
		nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reportContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "2", rec.Header().Get("X-Total-Records"))
	assert.Equal(t, "1", rec.Header().Get("X-Matched-Records"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", rows[1][5])
}

func TestAnalyzeMissingFile(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"file_a": fileAFixture(t)}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file_b")
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	logger := testLogger()
	service := services.NewAnalysisService(logger, nil)
	handler := NewAnalysisHandler(service, logger, apierrors.NewErrorHandler(logger, false), 1024)

	body, contentType := multipartBody(t,
		map[string][]byte{"file_a": fileAFixture(t), "file_b": fileBFixture(t)},
		nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeRejectsBadOptions(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"non-numeric window", map[string]string{"window_before": "soon"}},
		{"window beyond a day", map[string]string{"window_after": "100000"}},
		{"mapping not json", map[string]string{"mapping_a": "timestamp=time"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t,
				map[string][]byte{"file_a": fileAFixture(t), "file_b": fileBFixture(t)},
				tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyzeMissingColumns(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	badA := buildWorkbook(t, [][]interface{}{
		{"時間", "摘要", "金額"},
		{"2024-01-15 10:30:00", "transfer", 500.0},
	})
	body, contentType := multipartBody(t,
		map[string][]byte{"file_a": badA, "file_b": fileBFixture(t)}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required columns")
}

func TestPreviewHeaders(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"file": fileAFixture(t)},
		map[string]string{"file_type": "a"})
	req := httptest.NewRequest(http.MethodPost, "/headers", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var preview services.HeaderPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.True(t, preview.Valid)
	assert.Contains(t, preview.Headers, "交易時間")
	assert.Empty(t, preview.Missing)
}

func TestPreviewHeadersBadFileType(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"file": fileAFixture(t)},
		map[string]string{"file_type": "c"})
	req := httptest.NewRequest(http.MethodPost, "/headers", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeBatch(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	root := t.TempDir()
	caseDir := filepath.Join(root, "case1")
	require.NoError(t, os.MkdirAll(caseDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(caseDir, "transaction_a.xlsx"), fileAFixture(t), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(caseDir, "login_b.xlsx"), fileBFixture(t), 0o644))
	outputDir := t.TempDir()

	payload, err := json.Marshal(map[string]interface{}{
		"root":       root,
		"output_dir": outputDir,
		"max_depth":  3,
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/batch", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome services.BatchOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Len(t, outcome.Analyzed, 1)
	assert.Equal(t, "case1", outcome.Analyzed[0].FolderName)
	assert.FileExists(t, filepath.Join(outputDir, "case1_report.xlsx"))
}

func TestAnalyzeBatchMissingRoot(t *testing.T) {
	handler := newTestAnalysisHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/batch", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
