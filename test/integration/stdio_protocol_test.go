package integration_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// TestStdioProtocolCompliance runs the built binary over stdio with the
// official MCP SDK client.
func TestStdioProtocolCompliance(t *testing.T) {
	binaryPath := "./bin/vestline"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/vestline"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'make build' first.")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = append(os.Environ(),
		"VESTLINE_TRANSPORT=stdio",
		"VESTLINE_DB_PATH=:memory:",
		"VESTLINE_DEFAULT_IDENTITY=founder",
		"VESTLINE_ASSETS_FAUCET=true",
	)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "vestline", initResult.ServerInfo.Name)
		require.Equal(t, "0.1.0", initResult.ServerInfo.Version)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")

		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}
		for _, name := range []string{
			"create_schedule", "get_schedule", "list_schedules", "set_allocation",
			"add_funds", "activate", "claim", "toggle_decision",
			"emergency_release", "emergency_claim", "recover_token", "recover_native",
			"transfer_project_role", "transfer_ownership", "renounce_ownership",
		} {
			require.True(t, toolNames[name], "missing tool %s", name)
		}
	})

	t.Run("ScheduleUntilStart", func(t *testing.T) {
		call := func(name string, args map[string]any) (*sdkmcp.CallToolResult, string) {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
			require.NoError(t, err, name)
			require.NotEmpty(t, res.Content)
			text, ok := res.Content[0].(*sdkmcp.TextContent)
			require.True(t, ok)
			return res, text.Text
		}

		res, text := call("create_schedule", map[string]any{"project": "founder", "distributed_asset": "VST"})
		require.False(t, res.IsError, text)
		var created struct {
			ID      string `json:"id"`
			Owner   string `json:"owner"`
			Custody string `json:"custody"`
		}
		require.NoError(t, json.Unmarshal([]byte(text), &created))
		require.Equal(t, "founder", created.Owner)

		res, text = call("set_allocation", map[string]any{"schedule_id": created.ID, "beneficiary": "founder", "amount": "100"})
		require.False(t, res.IsError, text)
		res, text = call("asset_deposit", map[string]any{"asset": "VST", "amount": "100"})
		require.False(t, res.IsError, text)
		res, text = call("asset_approve", map[string]any{"asset": "VST", "spender": created.Custody, "amount": "100"})
		require.False(t, res.IsError, text)

		start := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		res, text = call("activate", map[string]any{"schedule_id": created.ID, "start_time": start})
		require.False(t, res.IsError, text)

		res, text = call("claim", map[string]any{"schedule_id": created.ID})
		require.True(t, res.IsError)
		require.Contains(t, text, "VESTING_NOT_STARTED")
	})

	t.Run("ReadDocs", func(t *testing.T) {
		res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "vestline://docs/index"})
		require.NoError(t, err)
		require.NotEmpty(t, res.Contents)
		require.Contains(t, res.Contents[0].Text, "vestline")
	})
}
