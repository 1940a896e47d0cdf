package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/chat"
	"github.com/lorekeep/lorekeep/internal/metrics"
	"github.com/lorekeep/lorekeep/internal/server"
	"github.com/lorekeep/lorekeep/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGenerator streams canned tokens or fails on demand.
type fakeGenerator struct {
	tokens []string
	err    error
	title  string
}

func (f *fakeGenerator) StreamAnswer(_ context.Context, _ string, onToken func(string) error) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var full string
	for _, tok := range f.tokens {
		if err := onToken(tok); err != nil {
			return "", err
		}
		full += tok
	}
	return full, nil
}

func (f *fakeGenerator) GenerateTitle(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.title, nil
}

func newTestServer(t *testing.T, gen server.Generator) (*httptest.Server, *metrics.Collector) {
	t.Helper()
	mc := metrics.NewCollector()
	srv := server.New(gen, mc, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, mc
}

func collectTurn(t *testing.T, baseURL, chatID, prompt string) []chat.Event {
	t.Helper()
	ctx := context.Background()

	src, err := stream.Dial(ctx, baseURL, chatID, prompt)
	require.NoError(t, err)
	defer src.Close()

	var events []chat.Event
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestChatStreamsOrderedEvents(t *testing.T) {
	ts, mc := newTestServer(t, &fakeGenerator{tokens: []string{"Hel", "lo"}})

	events := collectTurn(t, ts.URL, "c1", "say hello")
	require.Len(t, events, 5)

	assert.Equal(t, chat.EventStatus, events[0].Type)
	assert.Equal(t, chat.PhaseThinking, events[0].Payload.Phase)

	assert.Equal(t, chat.EventStatus, events[1].Type)
	assert.Equal(t, chat.PhaseWriting, events[1].Payload.Phase)

	assert.Equal(t, chat.EventOutput, events[2].Type)
	assert.Equal(t, "Hel", events[2].Payload.Content)
	assert.Equal(t, chat.EventOutput, events[3].Type)
	assert.Equal(t, "lo", events[3].Payload.Content)

	assert.Equal(t, chat.EventDone, events[4].Type)

	for _, ev := range events {
		assert.Equal(t, "c1", ev.ChatID)
	}

	snap := mc.Snapshot()
	require.NotNil(t, snap.Turn)
	assert.Equal(t, int64(1), snap.Turn.Count)
}

func TestChatEmptyStreamStillCompletes(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{})

	events := collectTurn(t, ts.URL, "c1", "anything")
	require.NotEmpty(t, events)
	assert.Equal(t, chat.EventDone, events[len(events)-1].Type)
}

func TestChatErrorEndsTurn(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{err: errors.New("model unavailable")})

	events := collectTurn(t, ts.URL, "c1", "doomed")
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, chat.EventError, last.Type)
	assert.Contains(t, last.Payload.Message, "model unavailable")
}

func TestChatRejectsMissingChatID(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{tokens: []string{"hi"}})

	events := collectTurn(t, ts.URL, "", "no id")
	require.NotEmpty(t, events)
	assert.Equal(t, chat.EventError, events[len(events)-1].Type)
}

func TestTitleEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{title: "Auth service notes"})

	body, _ := json.Marshal(server.TitleRequest{ChatID: "c1", Text: "how does auth work?"})
	resp, err := http.Post(ts.URL+"/title", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tr server.TitleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	assert.Equal(t, "Auth service notes", tr.Title)
}

func TestTitleEndpointValidation(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{title: "unused"})

	t.Run("rejects GET", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/title")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		body, _ := json.Marshal(server.TitleRequest{ChatID: "c1"})
		resp, err := http.Post(ts.URL+"/title", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var apiErr struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
		assert.Equal(t, "text is required", apiErr.Message)
	})
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{tokens: []string{"hi"}})

	// Run one turn so the snapshot has data.
	collectTurn(t, ts.URL, "c1", "hello")

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap metrics.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NotNil(t, snap.Turn)
	assert.Equal(t, int64(1), snap.Turn.Count)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
