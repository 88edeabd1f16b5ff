package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/partplan/pkg/errors"
	pkgio "github.com/matzehuels/partplan/pkg/io"
	"github.com/matzehuels/partplan/pkg/observability"
	"github.com/matzehuels/partplan/pkg/partition"
	"github.com/matzehuels/partplan/pkg/preset"
)

const twoOtaCSV = `# Name, Type, SubType, Offset, Size, Flags
nvs, data, nvs, 0x9000, 0x5000,
otadata, data, ota, 0xe000, 0x2000,
ota_0, app, ota_0, 0x10000, 1536K,
ota_1, app, ota_1, 0x190000, 1536K,
`

const singleAppCSV = `# Name, Type, SubType, Offset, Size, Flags
nvs, data, nvs, , 24K,
phy_init, data, phy, , 4K,
factory, app, factory, , 1M,
`

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	reg, err := preset.NewRegistry()
	require.NoError(t, err)
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(partition.DefaultDevice(4*partition.MiB), reg, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.Code) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, code, resp.Code)
	require.NotEmpty(t, resp.Message)
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
}

func TestPresets(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/v1/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []presetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 5)

	rec = do(t, h, http.MethodGet, "/v1/presets/singleapp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "factory, app, factory, 0x10000, 0x100000,")

	rec = do(t, h, http.MethodGet, "/v1/presets/nope", "")
	requireError(t, rec, http.StatusNotFound, errors.ErrCodeUnknownPreset)
}

func TestLayoutCSV(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/layout", twoOtaCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := pkgio.ReadCSV(rec.Body)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Equal(t, int64(0x190000), entries[3].Offset)
}

func TestLayoutJSON(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name     string
		query    string
		flash    int64
		location int64
	}{
		{"auto flash", "", 4 * partition.MiB, 0},
		{"explicit flash", "?flash=16M", 16 * partition.MiB, 0},
		{"explicit location", "?table_offset=0x1000", 4 * partition.MiB, 0x1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/layout"+tt.query, singleAppCSV, "Accept", "application/json")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp layoutResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tt.flash, resp.FlashSize)
			require.Equal(t, tt.location, resp.TableLocation)
			require.True(t, resp.Fits)
			require.Len(t, resp.Partitions, 3)
			require.Nil(t, resp.Resized)
		})
	}
}

func TestLayoutErrors(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/v1/layout", "not,a,table\n")
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidFormat)

	rec = do(t, h, http.MethodPost, "/v1/layout?table_offset=0x800", singleAppCSV)
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeMisalignedOffset)

	rec = do(t, h, http.MethodPost, "/v1/layout?flash=big", singleAppCSV)
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func TestSharedLayout(t *testing.T) {
	h := newTestServer(t)

	link, err := pkgio.EncodeShareURL("/v1/layout", []byte(twoOtaCSV))
	require.NoError(t, err)
	rec := do(t, h, http.MethodGet, link, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "otadata, data, ota, 0xe000, 0x2000,")

	rec = do(t, h, http.MethodGet, "/v1/layout?partitions="+url.QueryEscape(singleAppCSV), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/layout", "")
	requireError(t, rec, http.StatusNotFound, errors.ErrCodeNotFound)
}

func TestResize(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/v1/resize?name=factory&size=4M", singleAppCSV, "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "0x3f0000", rec.Header().Get("X-Resized-Size"))

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Resized)
	require.Equal(t, int64(0x3F0000), *resp.Resized)
	require.True(t, resp.Fits)
}

func TestResizeErrors(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/v1/resize?size=4M", singleAppCSV)
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = do(t, h, http.MethodPost, "/v1/resize?name=factory&size=lots", singleAppCSV)
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = do(t, h, http.MethodPost, "/v1/resize?name=missing&size=4K", singleAppCSV)
	requireError(t, rec, http.StatusNotFound, errors.ErrCodeNotFound)

	overfull := `# Name, Type, SubType, Offset, Size, Flags
nvs, data, nvs, , 0x5000,
factory, app, factory, , 0x3F0000,
spiffs, data, spiffs, , 0x10000,
`
	rec = do(t, h, http.MethodPost, "/v1/resize?name=nvs&size=0x3000&flash=4M", overfull)
	requireError(t, rec, http.StatusUnprocessableEntity, errors.ErrCodeOutOfRange)
}

func TestFlashLimit(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/v1/layout?flash=128M", singleAppCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/layout?flash=0x8001000", singleAppCSV)
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = do(t, h, http.MethodPost, "/v1/resize?name=nvs&size=0x7fffffffffff&flash=0x40000000", singleAppCSV)
	requireError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, WithMetrics(observability.NewMetrics()))

	rec := do(t, h, http.MethodPost, "/v1/layout", singleAppCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `partplan_http_requests_total{route="/v1/layout",status="200"} 1`)
	require.Contains(t, rec.Body.String(), "partplan_relayouts_total")
}

func TestMetricsDisabled(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
