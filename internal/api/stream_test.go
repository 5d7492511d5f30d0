package api_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/qhunt/internal/api/response"
)

type streamEvent struct {
	name string
	data string
}

// readStream forwards each SSE event on the body until it ends
func readStream(resp *http.Response) <-chan streamEvent {
	events := make(chan streamEvent, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		var current streamEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				current.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.data += strings.TrimPrefix(line, "data: ")
			case line == "" && current.name != "":
				events <- current
				current = streamEvent{}
			}
		}
	}()
	return events
}

func TestStream_OutlivesWriteTimeout(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createEvent(t, "park", huntGame)

	srv := httptest.NewUnstartedServer(ts.handler)
	srv.Config.WriteTimeout = 300 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/events/park/stream")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readStream(resp)

	// connected, then the current leaderboard
	for _, want := range []string{"connected", "leaderboard"} {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream ended before %s", want)
			assert.Equal(t, want, ev.name)
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s event", want)
		}
	}

	time.Sleep(600 * time.Millisecond)
	ts.register(t, "park", "p1", "Alice")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream was cut after the write timeout")
			if ev.name != "leaderboard" {
				continue
			}
			var lb response.Leaderboard
			require.NoError(t, json.Unmarshal([]byte(ev.data), &lb))
			if len(lb.Entries) == 1 {
				assert.Equal(t, "Alice", lb.Entries[0].Name)
				return
			}
		case <-deadline:
			t.Fatal("leaderboard update never arrived")
		}
	}
}
