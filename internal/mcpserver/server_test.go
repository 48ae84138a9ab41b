package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/query"
	"github.com/dgallion1/insurtree/internal/stats"
	"github.com/dgallion1/insurtree/internal/store/memory"
	"github.com/dgallion1/insurtree/internal/testfixture"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	svc := query.NewService(memory.New(testfixture.Insurances()...), engine.New(),
		stats.NewQueryStats(10, time.Hour), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ct, st := mcp.NewInMemoryTransports()
	ss, err := New(svc, "test").Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestTopTool(t *testing.T) {
	cs := connect(t)

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, ToolTop, tools.Tools[0].Name)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolTop,
		Arguments: map[string]any{"maxCount": 3, "maxDepth": 2},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out TopOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []engine.Result{{ID: 4, Value: 140000}, {ID: 7, Value: 110000}, {ID: 8, Value: 100100}}, out.Results)
}

func TestTopTool_InvalidArguments(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolTop,
		Arguments: map[string]any{"maxCount": 0, "maxDepth": 2},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "maxCount must be at least 1")
}
