package server

import (
	"bufio"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() config.Params {
	p := config.Default()
	p.Aperture.Oversample = 1
	p.Spectrum.Count = 4
	p.View.Width, p.View.Height = 24, 16
	return p
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	backend := renderer.NewCPUBackend(2)
	t.Cleanup(func() { backend.Close() })

	s := NewServer(0, backend, config.NewMutableSource(testParams()))
	s.SetStaticDir(t.TempDir())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestParamsGetAndPost(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/params")
	require.NoError(t, err)
	var got ParamsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, testParams(), got.Params)
	assert.Equal(t, config.Default(), got.Defaults)
	assert.Contains(t, got.Limits, "edgeCount")

	// Partial update, out of range edge count is clamped
	resp, err = http.Post(ts.URL+"/api/params", "application/json",
		strings.NewReader(`{"aperture":{"edgeCount":200},"view":{"logExposure":-3}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cur := s.params.Current()
	assert.Equal(t, config.MaxEdgeCount, cur.Aperture.EdgeCount)
	assert.Equal(t, -3.0, cur.View.LogExposure)
	assert.Equal(t, 24, cur.View.Width)

	// The glare source is a server-side path and stays as configured
	resp, err = http.Post(ts.URL+"/api/params", "application/json",
		strings.NewReader(`{"glare":{"source":"/etc/secret.png","directions":2}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cur = s.params.Current()
	assert.Empty(t, cur.Glare.Source)
	assert.Equal(t, 2, cur.Glare.Directions)

	resp, err = http.Post(ts.URL+"/api/params", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOutlineEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/outline.png?size=64&edges=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	resp2, err := http.Get(ts.URL + "/api/outline.svg")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "image/svg+xml", resp2.Header.Get("Content-Type"))

	resp3, err := http.Get(ts.URL + "/api/outline.svg?edges=3&radius=0.2")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp3.StatusCode)

	resp4, err := http.Get(ts.URL + "/api/outline.png?edges=two")
	require.NoError(t, err)
	resp4.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp4.StatusCode)
}

func TestInspectCenterPixel(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/inspect?x=12&y=8&radius=0&edges=6")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got InspectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, [2]float64{0, 0}, got.Offset)
	assert.Equal(t, [2]float64{0, 0}, got.Frequency)
	assert.InDelta(t, 2.598076211353316, got.Area, 1e-9)
	assert.Greater(t, got.XYZW[1], 0.0)

	resp2, err := http.Get(ts.URL + "/api/inspect?x=99&y=0")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

// readSSE collects event types until the stream ends
func readSSE(t *testing.T, url string) ([]string, []string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events, data []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	for scanner.Scan() {
		line := scanner.Text()
		if e, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, e)
		}
		if d, ok := strings.CutPrefix(line, "data: "); ok {
			data = append(data, d)
		}
	}
	return events, data
}

func TestRenderStreamsProgress(t *testing.T) {
	_, ts := newTestServer(t)
	events, data := readSSE(t, ts.URL+"/api/render")

	require.NotEmpty(t, events)
	assert.Equal(t, "complete", events[len(events)-1])
	assert.Contains(t, events, "progress")
	assert.Contains(t, events, "console")

	var last ProgressUpdate
	for i, e := range events {
		if e == "progress" {
			require.NoError(t, json.Unmarshal([]byte(data[i]), &last))
		}
	}
	assert.True(t, last.IsComplete)
	assert.Equal(t, 1.0, last.Completed)
	assert.NotEmpty(t, last.ImageData)
}

func TestRenderRejectsInvalidAperture(t *testing.T) {
	_, ts := newTestServer(t)
	events, _ := readSSE(t, ts.URL+"/api/render?edges=4&radius=0.3")
	require.NotEmpty(t, events)
	assert.Equal(t, "error", events[len(events)-1])
	assert.NotContains(t, events, "progress")

	events, _ = readSSE(t, ts.URL+"/api/render?width=0")
	assert.Equal(t, []string{"error"}, events)
}

func TestWebsocketSession(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil := func(match func(SessionMessage) bool) SessionMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(20*time.Second)))
		for {
			var msg SessionMessage
			require.NoError(t, conn.ReadJSON(&msg))
			if match(msg) {
				return msg
			}
		}
	}

	done := readUntil(func(m SessionMessage) bool { return m.Type == "frame" && m.Frame.IsComplete })
	assert.Equal(t, "cpu", done.Backend)
	assert.True(t, done.Frame.Valid)

	require.NoError(t, conn.WriteJSON(map[string]any{"view": map[string]any{"logExposure": 0}}))
	edited := readUntil(func(m SessionMessage) bool {
		return m.Type == "frame" && m.Params != nil && m.Params.View.LogExposure == 0
	})
	assert.Equal(t, 24, edited.Params.View.Width)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"view":  map[string]any{"logExposure": -1},
		"glare": map[string]any{"source": "/etc/secret.png"},
	}))
	kept := readUntil(func(m SessionMessage) bool {
		return m.Type == "frame" && m.Params != nil && m.Params.View.LogExposure == -1
	})
	assert.Empty(t, kept.Params.Glare.Source)

	require.NoError(t, conn.WriteJSON(map[string]any{"aperture": map[string]any{"curvatureRadius": 0.1}}))
	invalid := readUntil(func(m SessionMessage) bool { return m.Type == "frame" && !m.Frame.Valid })
	assert.Equal(t, 0.1, invalid.Params.Aperture.CurvatureRadius)
}

func TestMergeClientParamsKeepsGlareSource(t *testing.T) {
	base := testParams()
	base.Glare.Source = "psf/star.png"

	p, err := mergeClientParams(base, []byte(`{"glare":{"source":"../../etc/passwd"},"aperture":{"edgeCount":5}}`))
	require.NoError(t, err)
	assert.Equal(t, "psf/star.png", p.Glare.Source)
	assert.Equal(t, 5, p.Aperture.EdgeCount)

	_, err = mergeClientParams(base, []byte(`not json`))
	assert.Error(t, err)
}
