package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chilanguiux/Image-smart-finder/internal/config"
	"github.com/Chilanguiux/Image-smart-finder/internal/database"
	"github.com/Chilanguiux/Image-smart-finder/internal/events"
	"github.com/Chilanguiux/Image-smart-finder/internal/library"
	"github.com/Chilanguiux/Image-smart-finder/internal/store"
)

type testEnv struct {
	app           *fiber.App
	svc           *library.Service
	db            *database.DB
	fs            afero.Fs
	broadcaster   *events.Broadcaster
	configManager *config.Manager
	configFile    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "sib.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	broadcaster := events.NewBroadcaster()
	t.Cleanup(func() { broadcaster.Close() })

	fs := afero.NewMemMapFs()
	svc := library.NewServiceWithFs(library.ServiceConfig{}, fs, store.NewWithFs(fs), db.Scans, broadcaster)
	t.Cleanup(func() { svc.Close() })

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	configManager := config.NewManager(config.DefaultConfig(), configFile)

	app := fiber.New()
	NewServer(nil, svc, db.Settings, db.Scans, broadcaster, configManager).RegisterRoutes(app)

	return &testEnv{
		app:           app,
		svc:           svc,
		db:            db,
		fs:            fs,
		broadcaster:   broadcaster,
		configManager: configManager,
		configFile:    configFile,
	}
}

func (e *testEnv) writeFiles(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, e.fs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(e.fs, p, []byte("img"), 0o644))
	}
}

func (e *testEnv) scanAndWait(t *testing.T, path string) {
	t.Helper()
	e.request(t, "POST", "/api/scan", map[string]string{"path": path}, 200)
	require.Eventually(t, func() bool {
		return !e.svc.Busy()
	}, 5*time.Second, 5*time.Millisecond)
}

func (e *testEnv) request(t *testing.T, method, target string, body any, wantStatus int) map[string]any {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestAPI_Live(t *testing.T) {
	env := newTestEnv(t)
	result := env.request(t, "GET", "/live", nil, 200)
	assert.Equal(t, "ok", result["status"])
}

func TestAPI_ScanAndListImages(t *testing.T) {
	env := newTestEnv(t)
	env.writeFiles(t, "/photos/cat.png", "/photos/dog.jpg", "/photos/readme.txt")

	env.scanAndWait(t, "/photos")

	result := env.request(t, "GET", "/api/images", nil, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["shown"])

	images := data["images"].([]any)
	first := images[0].(map[string]any)
	assert.Equal(t, "/photos/cat.png", first["path"])
	assert.Equal(t, "cat.png", first["name"])
}

func TestAPI_ListImagesFiltered(t *testing.T) {
	env := newTestEnv(t)
	env.writeFiles(t, "/photos/Holiday.png", "/photos/cat.jpg")
	env.scanAndWait(t, "/photos")

	result := env.request(t, "GET", "/api/images?filter=holi", nil, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, float64(1), data["shown"])
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, "holi", data["filter"])
}

func TestAPI_ScanStatus(t *testing.T) {
	env := newTestEnv(t)
	env.writeFiles(t, "/photos/a.png")
	env.scanAndWait(t, "/photos")

	result := env.request(t, "GET", "/api/scan/status", nil, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, "idle", data["status"])
	assert.Equal(t, false, data["busy"])
	assert.Equal(t, float64(1), data["files_found"])
}

func TestAPI_ScanEmptyPathClears(t *testing.T) {
	env := newTestEnv(t)
	env.writeFiles(t, "/photos/a.png")
	env.scanAndWait(t, "/photos")

	env.request(t, "POST", "/api/scan", map[string]string{"path": ""}, 200)

	result := env.request(t, "GET", "/api/images", nil, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, float64(0), data["total"])
}

func TestAPI_CancelScanWithoutScan(t *testing.T) {
	env := newTestEnv(t)
	result := env.request(t, "DELETE", "/api/scan", nil, 409)
	assert.Equal(t, false, result["success"])
}

func TestAPI_DeleteImages(t *testing.T) {
	env := newTestEnv(t)
	env.writeFiles(t, "/photos/a.png", "/photos/b.jpg")
	env.scanAndWait(t, "/photos")

	result := env.request(t, "DELETE", "/api/images", map[string]any{
		"paths": []string{"/photos/a.png", "/photos/gone.png"},
	}, 200)

	data := result["data"].(map[string]any)
	deleted := data["deleted"].([]any)
	require.Len(t, deleted, 1)
	assert.Equal(t, "/photos/a.png", deleted[0])

	failures := data["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "/photos/gone.png", failures[0].(map[string]any)["path"])

	// Deleted file left the store.
	images := env.request(t, "GET", "/api/images", nil, 200)
	assert.Equal(t, float64(1), images["data"].(map[string]any)["total"])
}

func TestAPI_DeleteImagesEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	result := env.request(t, "DELETE", "/api/images", map[string]any{"paths": []string{}}, 422)
	assert.Equal(t, false, result["success"])
}

func TestAPI_Settings(t *testing.T) {
	env := newTestEnv(t)

	result := env.request(t, "GET", "/api/settings", nil, 200)
	assert.Empty(t, result["data"])

	result = env.request(t, "PUT", "/api/settings", map[string]any{
		"values": map[string]string{
			"last_path":   "/photos",
			"last_filter": "holiday",
		},
	}, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, "/photos", data["last_path"])
	assert.Equal(t, "holiday", data["last_filter"])

	result = env.request(t, "GET", "/api/settings", nil, 200)
	assert.Equal(t, "/photos", result["data"].(map[string]any)["last_path"])
}

func TestAPI_History(t *testing.T) {
	env := newTestEnv(t)
	env.writeFiles(t, "/photos/a.png")
	env.scanAndWait(t, "/photos")

	var records []any
	require.Eventually(t, func() bool {
		result := env.request(t, "GET", "/api/history", nil, 200)
		records, _ = result["data"].([]any)
		return len(records) == 1
	}, 5*time.Second, 10*time.Millisecond)

	rec := records[0].(map[string]any)
	assert.Equal(t, "/photos", rec["root"])
	assert.Equal(t, "completed", rec["status"])
	assert.Equal(t, float64(1), rec["file_count"])

	bad := env.request(t, "GET", "/api/history?limit=zero", nil, 400)
	assert.Equal(t, false, bad["success"])
}

func TestAPI_EventStream(t *testing.T) {
	env := newTestEnv(t)

	// The SSE body is produced by a stream writer that outlives the handler,
	// so this needs a real connection rather than app.Test.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.ShutdownWithTimeout(time.Second) })

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	readFrame := func() string {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before delivering a frame")
				if strings.HasPrefix(line, "data: ") {
					return strings.TrimPrefix(line, "data: ")
				}
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for a frame")
			}
		}
	}

	initial := readFrame()
	assert.Contains(t, initial, `"initial"`)

	// The subscriber registered before the initial frame was written, so a
	// publish now must reach the open stream.
	require.Equal(t, 1, env.broadcaster.SubscriberCount())
	env.broadcaster.Publish(events.Event{Type: events.TypeStoreReset, Total: 3})

	frame := readFrame()
	assert.Contains(t, frame, `"store_reset"`)
	assert.Contains(t, frame, `"total":3`)
}

func TestAPI_GetConfig(t *testing.T) {
	env := newTestEnv(t)

	result := env.request(t, "GET", "/api/config", nil, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, float64(8422), data["server"].(map[string]any)["port"])
	assert.Equal(t, "info", data["log"].(map[string]any)["level"])
}

func TestAPI_UpdateConfig(t *testing.T) {
	env := newTestEnv(t)

	// Registered components hear about accepted updates.
	var oldLevel, newLevel string
	env.configManager.OnConfigChange(func(oldConfig, newConfig *config.Config) {
		oldLevel = oldConfig.GetLogLevel()
		newLevel = newConfig.GetLogLevel()
	})

	result := env.request(t, "PUT", "/api/config", map[string]any{
		"log": map[string]any{"level": "debug"},
	}, 200)
	data := result["data"].(map[string]any)
	assert.Equal(t, "debug", data["log"].(map[string]any)["level"])

	assert.Equal(t, "info", oldLevel)
	assert.Equal(t, "debug", newLevel)
	assert.Equal(t, "debug", env.configManager.GetConfig().Log.Level)
	// Unmentioned sections survive the merge.
	assert.Equal(t, 8422, env.configManager.GetConfig().Server.Port)

	// The accepted update was written back to the config file.
	saved, err := os.ReadFile(env.configFile)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "level: debug")
}

func TestAPI_UpdateConfigRestartOnlyField(t *testing.T) {
	env := newTestEnv(t)

	result := env.request(t, "PUT", "/api/config", map[string]any{
		"server": map[string]any{"port": 9999},
	}, 422)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, 8422, env.configManager.GetConfig().Server.Port)
}
