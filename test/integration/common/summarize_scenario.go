package common

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealZimboGuy/graphflow/internal/workflows"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

func longText(words int) string {
	return strings.TrimSpace(strings.Repeat("lorem ipsum ", words/2))
}

// RunSummarizeScenario drives the summarization graph through the HTTP API:
// create, sync and async runs, the loop limit and run lookups.
func RunSummarizeScenario(t *testing.T, c *Client) {
	created := DoJSON[models.CreateGraphResponse](t, c, http.MethodPost, "/graph/create", workflows.SummarizeGraph(), http.StatusOK)
	require.NotEmpty(t, created.GraphID)

	invalid := DoJSON[models.ValidationErrorResponse](t, c, http.MethodPost, "/graph/create", models.CreateGraphRequest{
		EntryNode: "missing_step",
		Nodes:     []string{"missing_step"},
	}, http.StatusBadRequest)
	assert.NotEmpty(t, invalid.Kind)
	assert.Equal(t, "missing_step", invalid.Node)

	// sync run over the long pipeline
	run := DoJSON[models.RunGraphResponse](t, c, http.MethodPost, "/graph/run", models.RunGraphRequest{
		GraphID: created.GraphID,
		InitialState: core.State{
			workflows.KeyOriginalText: core.StringValue(longText(250)),
			workflows.KeyMaxLength:    core.IntValue(20),
		},
	}, http.StatusOK)
	require.Equal(t, domain.RunStatusCompleted, run.Status, run.Error)
	assert.Len(t, strings.Fields(run.FinalState.GetString(workflows.KeyFinalSummary, "")), 20)
	assert.Equal(t, workflows.StepDecidePipeline, run.ExecutionLog[0].Node)

	stored := DoJSON[models.RunStateResponse](t, c, http.MethodGet, "/graph/state/"+run.RunID, nil, http.StatusOK)
	assert.Equal(t, created.GraphID, stored.GraphID)
	assert.Equal(t, domain.RunStatusCompleted, stored.Status)
	assert.True(t, run.FinalState.Equal(stored.State))
	assert.Len(t, stored.ExecutionLog, len(run.ExecutionLog))

	// async run is accepted and finished by a worker
	accepted := DoJSON[models.RunGraphResponse](t, c, http.MethodPost, "/graph/run", models.RunGraphRequest{
		GraphID:      created.GraphID,
		InitialState: core.State{workflows.KeyOriginalText: core.StringValue("a short text")},
		Async:        true,
	}, http.StatusAccepted)
	assert.Equal(t, domain.RunStatusRunning, accepted.Status)
	require.Eventually(t, func() bool {
		state := DoJSON[models.RunStateResponse](t, c, http.MethodGet, "/graph/state/"+accepted.RunID, nil, http.StatusOK)
		return state.Status == domain.RunStatusCompleted
	}, 10*time.Second, 50*time.Millisecond)

	// loop limit
	aborted := DoJSON[models.RunGraphResponse](t, c, http.MethodPost, "/graph/run", models.RunGraphRequest{
		GraphID:       created.GraphID,
		InitialState:  core.State{workflows.KeyOriginalText: core.StringValue(longText(250)), workflows.KeyMaxLength: core.IntValue(1)},
		MaxIterations: 3,
	}, http.StatusOK)
	assert.Equal(t, domain.RunStatusAbortedLoopLimit, aborted.Status)
	assert.Len(t, aborted.ExecutionLog, 3)

	runs := DoJSON[models.ListRunsResponse](t, c, http.MethodGet, "/graph/runs/"+created.GraphID, nil, http.StatusOK)
	assert.Equal(t, 3, runs.Results)

	resp := c.Do(t, http.MethodGet, "/graph/state/run_missing", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
