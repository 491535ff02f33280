package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/jianpu2midi/pkg/converter"
)

const melody = "@tempo=100\n[track melody]\n@instrument=40\n1 2 3 5-- 0"

func newTestRouter(t *testing.T) (*gin.Engine, *test.Hook) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewServer(converter.DefaultOptions(), logger).Router(), hook
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "healthy", path)
	}
}

func TestInfoRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/formats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var formats struct {
		Conversions []string `json:"conversions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &formats))
	assert.Equal(t, []string{"jianpu -> midi"}, formats.Conversions)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/instruments", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Instruments []struct {
			Program int    `json:"program"`
			Name    string `json:"name"`
		} `json:"instruments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Instruments, 128)
	assert.Equal(t, 40, resp.Instruments[40].Program)
	assert.Equal(t, "Violin", resp.Instruments[40].Name)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/convert", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestConvertRawBody(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(melody))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Equal(t, "MThd", w.Body.String()[:4])
	assert.Equal(t, "1", w.Header().Get("X-Jianpu-Warnings"))

	summary, err := converter.Inspect(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, summary.Tracks, 2)
	assert.Equal(t, 4, summary.Tracks[1].NoteOns)
	assert.Equal(t, 40, summary.Tracks[1].Program)
}

func TestConvertMultipart(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "ode.jianpu", []byte(melody))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert?ticks_per_beat=96", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ode.mid")

	summary, err := converter.Inspect(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(96), summary.TicksPerBeat)
}

func TestConvertNotationErrors(t *testing.T) {
	r, hook := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader("[track]\n1 2 9\n7^^^^^^^^"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Error    string              `json:"error"`
		Problems []converter.Problem `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Problems, 2)
	assert.Equal(t, "9", resp.Problems[0].Token)
	assert.Equal(t, 2, resp.Problems[0].Line)
	assert.Equal(t, "range", resp.Problems[1].Category)
	assert.Equal(t, 3, resp.Problems[1].Line)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "conversion failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestConvertBadRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"empty body", "/api/v1/convert", "", http.StatusBadRequest},
		{"bad ticks", "/api/v1/convert?ticks_per_beat=5", melody, http.StatusBadRequest},
		{"bad velocity", "/api/v1/convert?velocity=300", melody, http.StatusBadRequest},
		{"bad policy", "/api/v1/convert?pitch_policy=wrap", melody, http.StatusBadRequest},
		{"metadata error", "/api/v1/convert", "@tempo=fast\n[track]\n1", http.StatusUnprocessableEntity},
		{"no tracks", "/api/v1/convert", "@tempo=90", http.StatusUnprocessableEntity},
		{"clamped", "/api/v1/convert?pitch_policy=clamp", "[track]\n7^^^^^^^^", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestValidate(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(melody)))
	require.Equal(t, http.StatusOK, w.Code)

	var report converter.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, 1, report.Tracks)
	assert.Equal(t, 4, report.Notes)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader("[track]\nxyz")))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Problems, 1)
	assert.Equal(t, "note_format", report.Problems[0].Category)
}

func TestInspect(t *testing.T) {
	r, _ := newTestRouter(t)

	result, err := converter.New(converter.DefaultOptions()).Convert(melody)
	require.NoError(t, err)

	body, contentType := multipartBody(t, "ode.mid", result.Data)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inspect", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary converter.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.InDelta(t, 100.0, summary.BPM, 0.01)
	require.Len(t, summary.Tracks, 2)
	assert.Equal(t, "melody", summary.Tracks[1].Name)

	body, contentType = multipartBody(t, "ode.jianpu", []byte(melody))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/inspect", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery(), sentryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
