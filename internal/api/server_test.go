package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ramonehamilton/deckforge/internal/editor"
	"github.com/ramonehamilton/deckforge/internal/storage"
	"github.com/ramonehamilton/deckforge/internal/version"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	server  *Server
	editor  *editor.Service
	lockDir string
}

// newTestEnv wires a server to an offline editor over a migrated temporary
// database.
func newTestEnv(t *testing.T, logger *zap.Logger) *testEnv {
	t.Helper()

	config := storage.DefaultConfig(filepath.Join(t.TempDir(), "api.db"))
	config.AutoMigrate = true
	db, err := storage.Open(config)
	require.NoError(t, err)
	store := storage.NewService(db)
	t.Cleanup(func() { _ = store.Close() })

	lockDir := t.TempDir()
	svc := editor.NewService(store, editor.Options{LockDir: lockDir, Logger: logger})

	cfg := DefaultConfig()
	cfg.Logger = logger
	return &testEnv{server: NewServer(cfg, svc, svc.Prices()), editor: svc, lockDir: lockDir}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// data decodes the "data" member of a success response.
func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, zaptest.NewLogger(t))

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"deckforge-api","version":"`+version.String()+`","wsClients":0}`, rec.Body.String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.NotEmpty(t, cfg.AllowedOrigins)

	s := NewServer(nil, nil, nil)
	assert.Equal(t, cfg.Addr, s.Addr())
	assert.NotNil(t, s.WebSocketHub())
}

func TestDeckLifecycle(t *testing.T) {
	env := newTestEnv(t, zaptest.NewLogger(t))

	rec := env.do(t, http.MethodPost, "/api/v1/decks/", `{"name":"Burn"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := data(t, rec)["id"].(string)
	base := "/api/v1/decks/" + id

	rec = env.do(t, http.MethodPost, base+"/cards",
		`{"zone":"main","card":{"name":"Lightning Bolt","set":"2xm","number":"141","qty":4,"prices":{"usd":"2.00"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := data(t, rec)["resolution"].(map[string]any)
	assert.Equal(t, "context", res["tier"])

	rec = env.do(t, http.MethodPost, base+"/cards", `{"zone":"sideboard","card":{"name":"Forest","count":5}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = data(t, rec)["resolution"].(map[string]any)
	assert.Equal(t, "basic-land-default", res["tier"])

	rec = env.do(t, http.MethodPost, base+"/move",
		`{"keys":["Forest|m21#272|normal","Opt|unknown|normal"],"from":"sideboard","to":"techIdeas","quantities":{"forest|m21#272|normal":2}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := data(t, rec)["report"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"key": "forest|m21#272|normal", "count": float64(2), "remaining": float64(3)}}, report["moved"])
	assert.Equal(t, []any{map[string]any{"key": "opt|unknown|normal", "reason": "not-found"}}, report["skipped"])

	rec = env.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := data(t, rec)
	assert.Equal(t, "8.30", doc["total"], "tech ideas are not part of the total")
	assert.Equal(t, map[string]any{"main": float64(4), "sideboard": float64(3), "techIdeas": float64(2)}, doc["counts"])

	rec = env.do(t, http.MethodGet, base+"/export?format=arena&tech=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "4 Lightning Bolt (2XM) 141")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Burn")

	rec = env.do(t, http.MethodPost, base+"/finish", `{"zone":"main","key":"lightning bolt|2xm#141|normal","finish":"foil"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/remove", `{"zone":"main","key":"lightning bolt|2xm#141|foil","count":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mainZone := data(t, rec)["zones"].(map[string]any)["main"].([]any)
	require.Len(t, mainZone, 1)
	assert.Equal(t, float64(3), mainZone[0].(map[string]any)["count"])

	rec = env.do(t, http.MethodPost, base+"/consolidate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/prices/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(0), data(t, rec)["report"].(map[string]any)["updated"], "offline refresh changes nothing")

	rec = env.do(t, http.MethodGet, "/api/v1/decks/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	rec = env.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportEndpoints(t *testing.T) {
	env := newTestEnv(t, zaptest.NewLogger(t))

	rec := env.do(t, http.MethodPost, "/api/v1/decks/import", `{"name":"Lands","content":"Deck\n10 Island\n"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := data(t, rec)
	assert.Equal(t, true, result["created"])
	id := result["deck"].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/v1/decks/"+id+"/import", `{"content":"[{\"name\":\"Island\",\"qty\":2}]"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "json", data(t, rec)["format"])

	d, err := env.editor.GetDeck(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, d.Zones["main"], 1)
	assert.Equal(t, 12, d.Zones["main"][0].Count)

	rec = env.do(t, http.MethodPost, "/api/v1/decks/import", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrintingEndpoints(t *testing.T) {
	env := newTestEnv(t, zaptest.NewLogger(t))

	rec := env.do(t, http.MethodPut, "/api/v1/printings/preferences/Sol%20Ring", `{"set_code":"c21","collector_number":"263"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/v1/printings/preferences/Sol%20Ring", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/printings/resolve", `{"channel":"picker","cards":[{"name":"Sol Ring"},{"name":"Opt"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data []struct {
			Key        string `json:"key"`
			Resolution struct {
				Tier string `json:"tier"`
			} `json:"resolution"`
			PriceSource string `json:"priceSource"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "sol ring|c21#263|normal", body.Data[0].Key)
	assert.Equal(t, "user-preference", body.Data[0].Resolution.Tier)
	assert.Equal(t, "opt|unknown|normal", body.Data[1].Key)
	assert.Equal(t, "none", body.Data[1].PriceSource)

	rec = env.do(t, http.MethodDelete, "/api/v1/printings/preferences/Sol%20Ring", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPriceResolveEndpoint(t *testing.T) {
	env := newTestEnv(t, zaptest.NewLogger(t))

	rec := env.do(t, http.MethodPost, "/api/v1/prices/resolve", `{"cards":[
		{"name":"Forest","count":2},
		{"name":"Lightning Bolt","qty":3,"prices":{"usd":"1.00"}},
		{"name":"Foil Only","prices":{"usd_foil":"0.50"},"finishes":["foil"]},
		{"name":"Nothing"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := data(t, rec)
	assert.Equal(t, "3.70", out["total"])
	assert.Equal(t, float64(1), out["missing"])

	cards := out["cards"].([]any)
	require.Len(t, cards, 4)
	assert.Equal(t, "basic-land", cards[0].(map[string]any)["source"])
	assert.Equal(t, "0.20", cards[0].(map[string]any)["lineTotal"])
	assert.Equal(t, "foil-only", cards[2].(map[string]any)["source"])
	assert.Nil(t, cards[3].(map[string]any)["unitPrice"])

	rec = env.do(t, http.MethodPost, "/api/v1/prices/resolve", `{"cards":[
		{"name":"Sol Ring","count":4,"prices":{"usd":"N/A"}},
		{"count":2}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out = data(t, rec)
	require.Len(t, out["cards"].([]any), 1, "a malformed price does not drop the card")
	assert.Equal(t, float64(4), out["missing"])
	assert.Equal(t, []any{"record 2: record has no card name"}, out["skipped"])

	for _, count := range []string{"0", "-3"} {
		rec = env.do(t, http.MethodPost, "/api/v1/prices/resolve",
			`{"cards":[{"name":"Lightning Bolt","count":`+count+`,"prices":{"usd":"1.00"}}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "count %s", count)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, zaptest.NewLogger(t))

	rec := env.do(t, http.MethodPost, "/api/v1/decks/", `{"name":"Locked"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := data(t, rec)["id"].(string)
	base := "/api/v1/decks/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing deck", http.MethodGet, "/api/v1/decks/nope", "", http.StatusNotFound},
		{"unknown zone", http.MethodPost, base + "/cards", `{"zone":"graveyard","card":{"name":"Opt"}}`, http.StatusBadRequest},
		{"bad card record", http.MethodPost, base + "/cards", `{"zone":"main","card":{"qty":2}}`, http.StatusBadRequest},
		{"bad preview record", http.MethodPost, "/api/v1/printings/resolve", `{"cards":[{"name":"Opt"},{"qty":2}]}`, http.StatusBadRequest},
		{"bad finish", http.MethodPost, base + "/finish", `{"zone":"main","key":"opt|unknown|normal","finish":"gilded"}`, http.StatusBadRequest},
		{"missing card", http.MethodPost, base + "/finish", `{"zone":"main","key":"opt|unknown|normal","finish":"foil"}`, http.StatusNotFound},
		{"bad export format", http.MethodGet, base + "/export?format=pdf", "", http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/decks/", `{"name":`, http.StatusBadRequest},
		{"empty name", http.MethodPost, "/api/v1/decks/", `{"name":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/decks/", strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("session locked", func(t *testing.T) {
		session, err := editor.OpenSession(env.lockDir, id)
		require.NoError(t, err)
		defer session.Close()

		rec := env.do(t, http.MethodPost, base+"/consolidate", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestServer_StartPushesEvents(t *testing.T) {
	env := newTestEnv(t, zap.NewNop())
	env.server.addr = "127.0.0.1:0"
	require.NoError(t, env.server.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.server.Shutdown(ctx)
	})

	env.editor.Events().Register(env.server.NewWebSocketObserver())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+env.server.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.server.WebSocketHub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Post("http://"+env.server.Addr()+"/api/v1/decks/", "application/json", strings.NewReader(`{"name":"Pushed"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type   string         `json:"type"`
		DeckID string         `json:"deckId"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "deck:saved", msg.Type)
	assert.NotEmpty(t, msg.DeckID)
	assert.Equal(t, "Pushed", msg.Data["name"])
}
