package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanSrivas/precious-metals-app/internal/alert"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/screen"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, failureRate float64) *Server {
	t.Helper()
	mc := clock.NewMock()
	cat := metals.Default()
	src := oracle.NewMockSource(cat, oracle.MockOptions{FailureRate: failureRate, Seed: 5, Clock: mc})
	o := oracle.New(src, cat, mc)
	opts := screen.Options{Interval: 3 * time.Second, Clock: mc}
	alerts := alert.NewLogAlerter()

	nav := screen.NewNavigator(screen.NewListScreen(cat, oracle.SineGenerator{}, opts), func(sel model.Selection) *screen.DetailScreen {
		return screen.NewDetailScreen(sel, o, alerts, opts)
	})
	require.NoError(t, nav.Start(context.Background()))
	t.Cleanup(nav.Stop)
	return NewServer(":0", nav, o, cat)
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, 0)
	w := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","screen":"list"}`, w.Body.String())
}

func TestServer_MetalsAndList(t *testing.T) {
	s := newTestServer(t, 0)

	w := do(t, s, http.MethodGet, "/api/v1/metals")
	require.Equal(t, http.StatusOK, w.Code)
	ms := decode[[]model.Metal](t, w)
	require.Len(t, ms, 4)
	assert.Equal(t, "XAU", ms[0].Code)

	w = do(t, s, http.MethodGet, "/api/v1/list")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[model.ScreenState](t, w)
	assert.Equal(t, model.ScreenList, st.Kind)
	assert.Len(t, st.Snapshots, 4)
}

func TestServer_SelectDetailBack(t *testing.T) {
	s := newTestServer(t, 0)

	w := do(t, s, http.MethodGet, "/api/v1/detail")
	assert.Equal(t, http.StatusNotFound, w.Code)

	listed := s.Navigator.List().State().Snapshots["XAU"]
	w = do(t, s, http.MethodPost, "/api/v1/list/select/gold")
	require.Equal(t, http.StatusOK, w.Code)
	sel := decode[model.Selection](t, w)
	assert.Equal(t, "XAU", sel.Metal.Code)
	assert.Equal(t, listed.Price, sel.Data.Price)

	w = do(t, s, http.MethodGet, "/api/v1/detail")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "XAU", decode[model.ScreenState](t, w).Selected)

	w = do(t, s, http.MethodPost, "/api/v1/detail/back")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"popped":true`)
	assert.Nil(t, s.Navigator.Detail())

	w = do(t, s, http.MethodPost, "/api/v1/list/select/ZZZ")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RefreshDetail(t *testing.T) {
	t.Run("no detail", func(t *testing.T) {
		s := newTestServer(t, 0)
		w := do(t, s, http.MethodPost, "/api/v1/detail/refresh")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, 0)
		do(t, s, http.MethodPost, "/api/v1/list/select/XAG")
		w := do(t, s, http.MethodPost, "/api/v1/detail/refresh")
		require.Equal(t, http.StatusOK, w.Code)
		st := decode[model.ScreenState](t, w)
		assert.False(t, st.Loading)
		assert.Empty(t, st.LastError)
	})

	t.Run("failure keeps snapshot", func(t *testing.T) {
		s := newTestServer(t, 1)
		do(t, s, http.MethodPost, "/api/v1/list/select/XAG")
		before := s.Navigator.Detail().Snapshot()

		w := do(t, s, http.MethodPost, "/api/v1/detail/refresh")
		require.Equal(t, http.StatusBadGateway, w.Code)
		var body struct {
			Error string            `json:"error"`
			State model.ScreenState `json:"state"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Failed to refresh data", body.Error)
		assert.Equal(t, "network timeout", body.State.LastError)
		assert.Equal(t, before.Price, body.State.Snapshots["XAG"].Price)
	})
}

func TestServer_Quotes(t *testing.T) {
	s := newTestServer(t, 1)
	w := do(t, s, http.MethodGet, "/api/v1/quotes")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Source string          `json:"source"`
		Quotes []oracle.Result `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "mock", body.Source)
	require.Len(t, body.Quotes, 4)
	for _, q := range body.Quotes {
		assert.True(t, q.Data.IsOffline, q.Metal)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, 0)
	do(t, s, http.MethodPost, "/api/v1/list/select/XPT")
	w := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "metalshud_mounted_screens")
}

func TestServer_Stream(t *testing.T) {
	s := newTestServer(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Frame {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := read()
	assert.Equal(t, "list", first.Type)
	assert.Equal(t, model.ScreenList, first.State.Kind)

	require.Eventually(t, func() bool { return s.Hub.Clients() == 1 }, 2*time.Second, time.Millisecond)

	do(t, s, http.MethodPost, "/api/v1/list/select/XPD")
	var detail *Frame
	for i := 0; i < 5 && detail == nil; i++ {
		if f := read(); f.Type == "detail" {
			detail = &f
		}
	}
	require.NotNil(t, detail)
	assert.Equal(t, "XPD", detail.State.Selected)
}
