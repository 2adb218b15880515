package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAsync_ServesVars(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := StartAsync(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	ReconcileRuns.Add(1)
	resp, err := http.Get("http://" + addr + "/debug/vars")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"console_reconcile_runs"`)
	assert.Contains(t, string(body), `"console_channels_opened"`)
}

func TestStartAsync_BadAddr(t *testing.T) {
	_, err := StartAsync(context.Background(), "not-an-addr")
	assert.Error(t, err)
}
