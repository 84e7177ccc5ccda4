package common

import (
	"fmt"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RealZimboGuy/graphflow/internal/workflows"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
)

const APIKey = "b5f0e8c4-daa6-465c-bded-50ca22b798b2"

// StartApp boots the full engine on port with the store already selected
// through GFLOW_* variables, and waits until it answers. The server stops
// when the test ends.
func StartApp(t *testing.T, port int) *Client {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(APIKey), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("GFLOW_API_KEY_HASH", string(hash))
	t.Setenv("GFLOW_ENGINE_EXECUTOR_SIZE", "2")

	reg := core.NewRegistry()
	require.NoError(t, workflows.Register(reg))

	go func() {
		if err := graphflow.Start(t.Context(), http.NewServeMux(), reg); err != nil {
			slog.Error("Engine exited with error", "error", err)
		}
	}()

	c := &Client{
		BaseURL: fmt.Sprintf("http://localhost:%d", port),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	require.Eventually(t, func() bool {
		resp, err := c.HTTP.Get(c.BaseURL + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 60*time.Second, 100*time.Millisecond, "engine did not start")
	return c
}
