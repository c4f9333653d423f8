// Package testserver runs the JSON-RPC transport over an in-memory SQLite
// database with a controllable clock.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/rpggio/vestline/internal/events"
	"github.com/rpggio/vestline/internal/mcp"
	"github.com/rpggio/vestline/internal/sqlite"
	"github.com/rpggio/vestline/internal/transport"
	"github.com/stretchr/testify/require"
)

// Clock is a manually advanced vesting.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Clock  *Clock
	Bus    *events.Bus

	keys *sqlite.APIKeyRepository
}

// New starts a server with authentication and the asset faucet enabled. The
// clock starts at start.
func New(t *testing.T, start time.Time) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	clock := &Clock{now: start}
	bus := events.NewBus(64, nil)
	vestingSvc := vesting.NewService(sqlite.NewVestingRepository(db), bus, clock, nil, vesting.Defaults{}, nil)
	assetSvc := asset.NewService(sqlite.NewBankStore(db), true, nil)
	keys := sqlite.NewAPIKeyRepository(db)

	handler := mcp.NewHandler(vestingSvc, assetSvc)
	server := httptest.NewServer(transport.NewServer(handler, transport.AuthMiddleware(keys), nil))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Clock:  clock,
		Bus:    bus,
		keys:   keys,
	}
}

// AddAPIKey registers token as identity.
func (ts *TestServer) AddAPIKey(token string, identity role.Address) error {
	return ts.keys.Add(context.Background(), token, identity, "test")
}

// Login registers a token for identity and returns it.
func (ts *TestServer) Login(t *testing.T, identity role.Address) string {
	t.Helper()
	token := "token-" + identity.String()
	require.NoError(t, ts.AddAPIKey(token, identity))
	return token
}

// Call posts a JSON-RPC request with token as bearer and decodes the response.
func (ts *TestServer) Call(t *testing.T, token, method string, params any) transport.Response {
	t.Helper()

	payload := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out transport.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Result calls method, requires success and decodes the result into out.
func (ts *TestServer) Result(t *testing.T, token, method string, params, out any) {
	t.Helper()
	resp := ts.Call(t, token, method, params)
	require.Nil(t, resp.Error, "%s failed: %+v", method, resp.Error)
	if out == nil {
		return
	}
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

// ErrorCode calls method, requires an application error and returns its code.
func (ts *TestServer) ErrorCode(t *testing.T, token, method string, params any) string {
	t.Helper()
	resp := ts.Call(t, token, method, params)
	require.NotNil(t, resp.Error, "%s unexpectedly succeeded", method)
	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok, "%s: error without data: %+v", method, resp.Error)
	code, _ := data["code"].(string)
	return code
}
