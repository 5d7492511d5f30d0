package e2e_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mcoot/qhunt/internal/api"
	"github.com/mcoot/qhunt/internal/api/response"
	"github.com/mcoot/qhunt/internal/factory"
	"github.com/mcoot/qhunt/internal/testutil"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "qhunt-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/qhunt")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) args(args ...string) []string {
	return append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	cmd := exec.Command(r.binaryPath, r.args(args...)...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runJSON runs a command that must succeed and decodes its output into T
func runJSON[T any](t *testing.T, r *cliRunner, args ...string) T {
	t.Helper()
	output, err := r.run(args...)
	require.NoError(t, err, "output: %s", output)

	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	server   *http.Server
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	app, err := factory.New(context.Background(), factory.Config{})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		EventController: app.EventController,
		GameController:  app.GameController,
		Registry:        app.Registry,
		Projector:       app.Projector,
		TeamService:     app.TeamService,
		ExportService:   app.ExportService,
		HubManager:      app.HubManager,
		Metrics:         app.Metrics,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		server: server,
		addr:   serverURL,
		shutdown: func() {
			_ = app.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

const parkGame = `
mode: individual
target_code_count: 2
codes:
  - id: oak
    value: OAK-1
    points: 100
  - id: elm
    value: ELM-2
    points: 150
  - id: ash
    value: ASH-3
    points: 50
`

const typedGame = `{
  "mode": "individual",
  "enable_type_based_hunting": true,
  "available_code_types": ["red"],
  "codes": [{"id": "r1", "value": "RED-1", "type": "red", "points": 10}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	resp := runJSON[response.HealthResponse](t, cli, "health")
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_FullGameFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	gameFile := writeFile(t, "park.yaml", parkGame)

	ev := runJSON[response.Event](t, cli, "event", "create", "--id", "park", "--title", "Park Hunt", "--file", gameFile)
	assert.Equal(t, "registration", ev.Game.Phase)
	assert.Len(t, ev.Game.Codes, 3)

	reg := runJSON[response.RegisterResponse](t, cli, "player", "register", "park", "--id", "p1", "--name", "Alice", "--avatar", "🦉")
	assert.True(t, reg.Success)
	assert.Equal(t, "p1", reg.Player.ID)

	// Without --id the CLI generates a player id
	other := runJSON[response.RegisterResponse](t, cli, "player", "register", "park", "--name", "Bob")
	assert.NotEmpty(t, other.Player.ID)

	runJSON[response.Event](t, cli, "event", "phase", "park", "countdown")
	ev = runJSON[response.Event](t, cli, "event", "phase", "park", "playing")
	assert.Equal(t, "playing", ev.Game.Phase)

	started := runJSON[response.Player](t, cli, "player", "start", "park", "p1")
	assert.NotNil(t, started.GameStartedAt)

	scan := runJSON[response.ScanResponse](t, cli, "scan", "park", "p1", "oak-1")
	assert.Equal(t, 100, scan.NewScore)
	assert.Equal(t, "manual", scan.Scan.Method)

	scan = runJSON[response.ScanResponse](t, cli, "scan", "--method", "qr", "park", "p1", "ELM-2")
	assert.Equal(t, 250, scan.NewScore)
	assert.True(t, scan.IsGameComplete)

	scans := runJSON[[]response.Scan](t, cli, "player", "scans", "park", "p1")
	assert.Len(t, scans, 2)

	board := runJSON[response.Leaderboard](t, cli, "leaderboard", "park", "--limit", "1")
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "Alice", board.Entries[0].Name)
	assert.Equal(t, 250, board.Entries[0].Score)

	stats := runJSON[response.Stats](t, cli, "stats", "park")
	assert.Equal(t, 2, stats.PlayersCount)
	assert.Equal(t, 2, stats.TotalScans)

	recent := runJSON[[]response.RecentScan](t, cli, "recent", "park")
	assert.Len(t, recent, 2)

	runJSON[response.Event](t, cli, "event", "phase", "park", "finished")

	xlsx := filepath.Join(t.TempDir(), "park.xlsx")
	output, err := cli.run("results", "export", "park", "--file", xlsx)
	require.NoError(t, err, "output: %s", output)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Scans")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	ev = runJSON[response.Event](t, cli, "event", "reset", "park")
	assert.Equal(t, "registration", ev.Game.Phase)

	board = runJSON[response.Leaderboard](t, cli, "leaderboard", "park")
	assert.Empty(t, board.Entries)
}

func TestCLI_CodeToggle(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	gameFile := writeFile(t, "park.yaml", parkGame)
	runJSON[response.Event](t, cli, "event", "create", "--id", "park", "--title", "Park Hunt", "-f", gameFile)

	ev := runJSON[response.Event](t, cli, "event", "code", "park", "elm", "--disable")
	assert.False(t, ev.Game.Codes[1].Active)

	runJSON[response.RegisterResponse](t, cli, "player", "register", "park", "--id", "p1", "--name", "Alice")
	runJSON[response.Player](t, cli, "player", "start", "park", "p1")

	output, err := cli.run("scan", "park", "p1", "ELM-2")
	assert.Error(t, err)
	assert.Contains(t, output, "CODE_NOT_FOUND")

	runJSON[response.Event](t, cli, "event", "code", "park", "elm")
	scan := runJSON[response.ScanResponse](t, cli, "scan", "park", "p1", "ELM-2")
	assert.Equal(t, 150, scan.NewScore)
}

func TestCLI_Stream(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	gameFile := writeFile(t, "park.yaml", parkGame)
	runJSON[response.Event](t, cli, "event", "create", "--id", "park", "--title", "Park Hunt", "-f", gameFile)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, cli.binaryPath, cli.args("stream", "park")...)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	lines := bufio.NewScanner(stdout)

	// The current leaderboard arrives on connect
	require.True(t, lines.Scan())
	var first struct {
		Event string               `json:"event"`
		Data  response.Leaderboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(lines.Bytes(), &first))
	assert.Equal(t, "leaderboard", first.Event)
	assert.Equal(t, "park", first.Data.EventID)

	runJSON[response.RegisterResponse](t, cli, "player", "register", "park", "--id", "p1", "--name", "Alice")

	sawAlice := false
	for !sawAlice && lines.Scan() {
		var evt struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(lines.Bytes(), &evt))
		if evt.Event != "leaderboard" {
			continue
		}
		var lb response.Leaderboard
		require.NoError(t, json.Unmarshal(evt.Data, &lb))
		if len(lb.Entries) == 1 && lb.Entries[0].Name == "Alice" {
			sawAlice = true
		}
	}
	assert.True(t, sawAlice, "leaderboard update for the new player never arrived")
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("event", "get", "missing")
	assert.Error(t, err)
	assert.Contains(t, output, "EVENT_NOT_FOUND")

	output, err = cli.run("player", "register", "missing", "--name", "Alice")
	assert.Error(t, err)
	assert.Contains(t, output, "EVENT_NOT_FOUND")

	typedFile := writeFile(t, "typed.json", typedGame)
	runJSON[response.Event](t, cli, "event", "create", "--id", "typed", "--title", "Typed", "-f", typedFile)

	output, err = cli.run("event", "phase", "typed", "results")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_TRANSITION")

	output, err = cli.run("player", "register", "typed", "--id", "p1", "--name", "A")
	assert.Error(t, err)
	assert.Contains(t, output, "NAME_INVALID")

	output, err = cli.run("event", "create", "--title", "Broken", "-f", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Contains(t, output, "nope.yaml")
}
