package wspreview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

func smallConfig() ledmatrix.PanelConfig {
	cfg := ledmatrix.DefaultPanelConfig()
	cfg.Rows = 4
	cfg.Cols = 4
	cfg.ChainLength = 2
	return cfg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readTopology(t *testing.T, conn *websocket.Conn) Topology {
	t.Helper()
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)

	var top Topology
	require.NoError(t, json.Unmarshal(data, &top))
	return top
}

func TestStreamFrames(t *testing.T) {
	b := New()
	panel, err := ledmatrix.NewPanel(smallConfig(), b)
	require.NoError(t, err)
	defer panel.Close()

	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	top := readTopology(t, conn)
	assert.Equal(t, Topology{Width: 8, Height: 4, Rows: 4, Cols: 4, ChainLength: 2, Mapping: "adafruit-hat"}, top)

	c := panel.OffscreenCanvas()
	c.SetPixel(1, 0, ledmatrix.Red)
	c.SetPixel(7, 3, ledmatrix.RGB(1, 2, 3))
	_, err = panel.Swap(c)
	require.NoError(t, err)

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	require.Len(t, data, 8*4*3)
	assert.Equal(t, []byte{255, 0, 0}, data[3:6])
	assert.Equal(t, []byte{1, 2, 3}, data[len(data)-3:])
	assert.Equal(t, []byte{0, 0, 0}, data[0:3])
}

func TestLateClientGetsLastFrame(t *testing.T) {
	b := New()
	panel, err := ledmatrix.NewPanel(smallConfig(), b)
	require.NoError(t, err)
	defer panel.Close()

	c := panel.OffscreenCanvas()
	c.Fill(ledmatrix.Blue)
	_, err = panel.Swap(c)
	require.NoError(t, err)

	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readTopology(t, conn)

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255}, data[:3])
}

func TestHealth(t *testing.T) {
	b := New()
	panel, err := ledmatrix.NewPanel(smallConfig(), b)
	require.NoError(t, err)
	defer panel.Close()

	_, err = panel.Swap(panel.OffscreenCanvas())
	require.NoError(t, err)

	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, true, health["ready"])
	assert.Equal(t, float64(1), health["frame_id"])
	assert.Equal(t, float64(0), health["clients"])
}

func TestIndexPage(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListenAndClose(t *testing.T) {
	b := New(WithAddr("127.0.0.1:0"))
	panel, err := ledmatrix.NewPanel(smallConfig(), b)
	require.NoError(t, err)

	addr := b.Addr()
	require.NotEmpty(t, addr)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	readTopology(t, conn)

	require.NoError(t, panel.Close())
	assert.Empty(t, b.Addr())

	// the client is told to go away
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	assert.Error(t, b.Present(panel.OffscreenCanvas()))
}
