package app

import (
	"anthrometer/internal/overlay"
	"anthrometer/internal/prefs"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHandler_HealthAndPage(t *testing.T) {
	h := newTestEnv(t).runner.Handler()

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Good Times Index")

	rec = doRequest(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_View(t *testing.T) {
	h := newTestEnv(t).runner.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/view", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v View
	decodeJSON(t, rec, &v)
	assert.False(t, v.NoData)
	assert.Equal(t, 310, v.KPI.Value)

	rec = doRequest(t, h, http.MethodPost, "/api/view", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_Chart(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"xaxis"`)
	assert.Contains(t, rec.Body.String(), `"config"`)

	env.data.set("gti.json", `{"series":[]}`)
	env.runner.Load(t.Context())

	rec = doRequest(t, h, http.MethodGet, "/api/chart", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_data")
}

func TestHandler_RawStatus(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/status/raw", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), tokenA)

	env.data.set("status.json", `not json`)
	env.runner.Load(t.Context())

	rec = doRequest(t, h, http.MethodGet, "/api/status/raw", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Preferences(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got prefs.Preferences
	decodeJSON(t, rec, &got)
	assert.Equal(t, prefs.Defaults(nil), got)

	rec = doRequest(t, h, http.MethodPost, "/api/preferences", `{"range":"decade","lineWeight":6}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := env.runner.prefs.Get()
	assert.Equal(t, prefs.RangeDecade, p.Range)
	assert.Equal(t, 6, p.LineWeight)
	assert.Equal(t, prefs.LineColorAuto, p.LineColor)

	// Persisted as a whole record.
	blob, err := env.kv.Get(t.Context(), prefs.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, blob, `"range":"decade"`)
	assert.Contains(t, blob, `"lineColor":"auto"`)

	v := env.runner.View()
	assert.Equal(t, []int{2016, 2025}, v.Chart.Layout.XAxis.Range)
	assert.Equal(t, 6, v.Chart.Data[0].Line.Width)
}

func TestHandler_PreferencesRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/preferences", `{"lineWeight":0,"lineColor":"teal"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Success bool                    `json:"success"`
		Errors  []prefs.ValidationError `json:"errors"`
	}
	decodeJSON(t, rec, &body)
	assert.False(t, body.Success)
	assert.Len(t, body.Errors, 2)
	assert.Equal(t, prefs.Defaults(nil), env.runner.prefs.Get())

	rec = doRequest(t, h, http.MethodPost, "/api/preferences", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/api/preferences", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_PreferencesReset(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	doRequest(t, h, http.MethodPost, "/api/preferences", `{"lineColor":"red","darkMode":true}`)
	require.Equal(t, prefs.LineColorRed, env.runner.prefs.Get().LineColor)

	rec := doRequest(t, h, http.MethodGet, "/api/preferences/reset", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/preferences/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prefs.Defaults(nil), env.runner.prefs.Get())

	rec = doRequest(t, h, http.MethodGet, "/api/preferences/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"default"`)
}

func TestHandler_AutoRefresh(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/auto-refresh", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
	assert.False(t, env.runner.driver.Enabled())

	rec = doRequest(t, h, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":"skipped"`)

	rec = doRequest(t, h, http.MethodPost, "/api/auto-refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/auto-refresh", "")
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestHandler_RefreshSurvivesClientHangup(t *testing.T) {
	env := newTestEnv(t)
	env.data.setToken(tokenB)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	env.runner.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":"changed"`)
	assert.Len(t, env.runner.store.Current().Series, 5)
	assert.Equal(t, tokenB, env.runner.detector.Token())
}

func TestHandler_Overlay(t *testing.T) {
	env := newTestEnv(t)
	h := env.runner.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/overlay/select", `{"year":2008}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var st overlay.State
	decodeJSON(t, rec, &st)
	assert.True(t, st.Visible)
	require.NotNil(t, st.Detail)
	assert.Equal(t, "260", st.Detail.Value)
	assert.Equal(t, "Financial crisis", st.Detail.Event)
	assert.Equal(t, "Credit markets froze.", st.Detail.Summary)

	// Hover on a year with no event leaves everything as it was.
	rec = doRequest(t, h, http.MethodPost, "/api/overlay/hover", `{"year":1900}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":false`)
	assert.True(t, env.runner.overlay.State().Visible)

	rec = doRequest(t, h, http.MethodPost, "/api/overlay/select", `{"year":1950}`)
	decodeJSON(t, rec, &st)
	assert.Equal(t, overlay.ValueUnavailable, st.Detail.Value)
	assert.Equal(t, overlay.EventNone, st.Detail.Event)
	assert.Equal(t, overlay.SummaryPending, st.Detail.Summary)

	rec = doRequest(t, h, http.MethodPost, "/api/overlay/dismiss", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.runner.overlay.State().Visible)

	rec = doRequest(t, h, http.MethodPost, "/api/overlay/select", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, h, http.MethodGet, "/api/overlay/select", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_WebSocketPushesViews(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.runner.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial struct {
		Type    MessageType `json:"type"`
		Payload View        `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, MessageView, initial.Type)
	assert.Equal(t, 310, initial.Payload.KPI.Value)
	assert.Equal(t, 1, env.runner.hub.Count())

	_, err = env.runner.prefs.Update(t.Context(), func(p *prefs.Preferences) { p.DarkMode = true })
	require.NoError(t, err)

	var next struct {
		Type    MessageType `json:"type"`
		Payload View        `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, MessageView, next.Type)
	assert.True(t, next.Payload.Preferences.DarkMode)
	assert.Equal(t, "#0b1220", next.Payload.Chart.Layout.PaperBGColor)

	env.runner.overlay.Select(2020)
	var ov struct {
		Type    MessageType   `json:"type"`
		Payload overlay.State `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ov))
	assert.Equal(t, MessageOverlay, ov.Type)
	assert.Equal(t, "COVID-19", ov.Payload.Detail.Event)
	env.runner.overlay.Dismiss()
}
