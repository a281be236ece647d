package analysis

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skytrace/skytrace/internal/dataset"
)

func testRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(fixtureResolver(t), zap.NewNop())
	h := NewHandler(svc, Options{Contamination: 0.1, AlertThreshold: 0.7}, zap.NewNop())

	r := gin.New()
	h.RegisterRoutes(r)
	return r, svc
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleRawRecords() []dataset.RawRecord {
	var rows []dataset.RawRecord
	for _, rec := range dataset.SampleRecords() {
		rows = append(rows, dataset.RawRecord{
			Timestamp: rec.Timestamp.Format("2006-01-02 15:04:05"),
			UserID:    rec.UserID,
			IPAddress: rec.IPAddress,
			UserAgent: rec.UserAgent,
		})
	}
	return rows
}

func TestAnalyzeJSON(t *testing.T) {
	r, svc := testRouter(t)

	w := postJSON(t, r, "/api/v1/analysis", gin.H{"records": sampleRawRecords()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Records, 5)

	_, ok := svc.Get(result.RunID)
	assert.True(t, ok)
}

func TestAnalyzeCSVUpload(t *testing.T) {
	r, _ := testRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "logins.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(dataset.SampleCSV()))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Records, 5)
}

func TestAnalyzeValidationFailure(t *testing.T) {
	r, _ := testRouter(t)

	records := sampleRawRecords()
	records[0].Timestamp = "not-a-timestamp"
	w := postJSON(t, r, "/api/v1/analysis", gin.H{"records": records})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestAnalyzeMissingBody(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun(t *testing.T) {
	r, _ := testRouter(t)

	w := postJSON(t, r, "/api/v1/analysis", gin.H{"records": sampleRawRecords()})
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/"+result.RunID, nil))
	assert.Equal(t, http.StatusOK, get.Code)

	missing := httptest.NewRecorder()
	r.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/nope", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestExportRun(t *testing.T) {
	r, _ := testRouter(t)

	w := postJSON(t, r, "/api/v1/analysis", gin.H{"records": sampleRawRecords()})
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	csvExport := httptest.NewRecorder()
	r.ServeHTTP(csvExport, httptest.NewRequest(http.MethodGet,
		"/api/v1/analysis/"+result.RunID+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, csvExport.Code)
	assert.Contains(t, csvExport.Header().Get("Content-Disposition"), "anomaly_report.csv")
	assert.True(t, strings.HasPrefix(csvExport.Body.String(), "timestamp,"))

	badExport := httptest.NewRecorder()
	r.ServeHTTP(badExport, httptest.NewRequest(http.MethodGet,
		"/api/v1/analysis/"+result.RunID+"/export?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, badExport.Code)
}

func TestDigest(t *testing.T) {
	r, _ := testRouter(t)

	w := postJSON(t, r, "/api/v1/analysis", gin.H{"records": sampleRawRecords()})
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	digest := httptest.NewRecorder()
	r.ServeHTTP(digest, httptest.NewRequest(http.MethodGet,
		"/api/v1/analysis/"+result.RunID+"/digest", nil))
	require.Equal(t, http.StatusOK, digest.Code)
	assert.Contains(t, digest.Body.String(), "last_24_hours")
}

func TestSampleTemplate(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sample", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dataset.SampleCSV(), w.Body.String())
}

func TestAlertConfigEndpoint(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "risk_thresholds")
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
