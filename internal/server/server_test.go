package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/dashboard"
	"github.com/KaramelBytes/sheetdash/internal/store"
)

func newTestServer(t *testing.T, maxUpload int64) *httptest.Server {
	t.Helper()
	srv, _ := newTestServerWithStore(t, maxUpload)
	return srv
}

func newTestServerWithStore(t *testing.T, maxUpload int64) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	svc := dashboard.NewService(st, nil, zap.NewNop(), dashboard.Options{})
	srv := httptest.NewServer(New(Config{Service: svc, MaxUploadBytes: maxUpload}).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func uploadFile(t *testing.T, baseURL, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(baseURL+"/api/files", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, 0)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, healthResponse{Status: "ok", SchemaVersion: 1}, decode[healthResponse](t, resp))
}

func TestHealthzReportsClosedDatabase(t *testing.T) {
	srv, st := newTestServerWithStore(t, 0)
	require.NoError(t, st.Close())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Error, "ping database")
}

func TestUploadAndDashboardFlow(t *testing.T) {
	srv := newTestServer(t, 0)

	resp := uploadFile(t, srv.URL, "sales.csv", "Region,Revenue\nNorth,100\nSouth,200\nNorth,50\n")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	f := decode[store.File](t, resp)
	require.NotEmpty(t, f.ID)
	assert.Equal(t, 3, f.RowCount)

	resp, err := http.Get(srv.URL + "/api/files")
	require.NoError(t, err)
	files := decode[[]store.File](t, resp)
	require.Len(t, files, 1)

	resp = do(t, http.MethodPost, srv.URL+"/api/files/"+f.ID+"/connect?mode=raw", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	connected := decode[struct {
		Mode    string         `json:"mode"`
		Widgets []store.Widget `json:"widgets"`
	}](t, resp)
	assert.Equal(t, "raw", connected.Mode)
	require.NotEmpty(t, connected.Widgets)

	resp, err = http.Get(srv.URL + "/api/files/" + f.ID + "/dashboard?mode=raw")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[dashboard.Dashboard](t, resp)
	assert.Len(t, d.Widgets, len(connected.Widgets))
	require.Len(t, d.Charts.BarChart, 2)
	assert.Equal(t, "North", d.Charts.BarChart[0].Name)
	assert.InDelta(t, 150, d.Charts.BarChart[0].Value, 1e-9)
	require.Len(t, d.Table, 3)
	assert.EqualValues(t, 1, d.Table[0]["id"])
	require.NotNil(t, d.Widgets[0].Config.Value)
	assert.Equal(t, "350", d.Widgets[0].Config.Formatted)

	resp = do(t, http.MethodPatch, srv.URL+"/api/widgets/"+d.Widgets[0].ID, `{"visible": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[store.Widget](t, resp).Visible)

	resp = do(t, http.MethodPost, srv.URL+"/api/files/"+f.ID+"/insights/regenerate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cache := decode[store.InsightCache](t, resp)
	assert.EqualValues(t, "fallback", cache.Payload.Source)

	resp, err = http.Get(srv.URL + "/api/files/" + f.ID + "/dashboard?mode=ai")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ai := decode[dashboard.Dashboard](t, resp)
	require.NotNil(t, ai.Insights)
	assert.NotEmpty(t, ai.Insights.Payload.WidgetInsights)
}

func TestCombineEndpoint(t *testing.T) {
	srv := newTestServer(t, 0)
	a := decode[store.File](t, uploadFile(t, srv.URL, "a.csv", "Region,Revenue\nNorth,1\n"))
	b := decode[store.File](t, uploadFile(t, srv.URL, "b.csv", "Region,Units\nSouth,2\n"))

	resp := do(t, http.MethodPost, srv.URL+"/api/files/combine",
		`{"name": "both", "file_ids": ["`+a.ID+`", "`+b.ID+`"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	f := decode[store.File](t, resp)
	assert.Equal(t, "both", f.Name)
	assert.Equal(t, []string{"Region", "Revenue", "Units"}, f.Headers)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t, 1024)

	cases := []struct {
		name   string
		resp   func() *http.Response
		status int
	}{
		{"unknown file", func() *http.Response {
			r, err := http.Get(srv.URL + "/api/files/nope/dashboard")
			require.NoError(t, err)
			return r
		}, http.StatusNotFound},
		{"unknown widget", func() *http.Response {
			return do(t, http.MethodPatch, srv.URL+"/api/widgets/nope", `{"visible": true}`)
		}, http.StatusNotFound},
		{"bad toggle body", func() *http.Response {
			return do(t, http.MethodPatch, srv.URL+"/api/widgets/nope", `{}`)
		}, http.StatusBadRequest},
		{"unsupported format", func() *http.Response {
			return uploadFile(t, srv.URL, "notes.docx", "hello")
		}, http.StatusBadRequest},
		{"missing file field", func() *http.Response {
			return do(t, http.MethodPost, srv.URL+"/api/files", "{}")
		}, http.StatusBadRequest},
		{"combine one file", func() *http.Response {
			return do(t, http.MethodPost, srv.URL+"/api/files/combine", `{"file_ids": ["x"]}`)
		}, http.StatusBadRequest},
		{"too large", func() *http.Response {
			return uploadFile(t, srv.URL, "big.csv", "a,b\n"+strings.Repeat("1,2\n", 2000))
		}, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tc.resp()
			assert.Equal(t, tc.status, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			assert.NotEmpty(t, body.Error)
		})
	}
}
