package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

var testStart = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestExecutor() *Executor {
	return NewExecutor(core.NewStepClock(testStart, time.Millisecond), 0)
}

func mustValidate(t *testing.T, def *domain.GraphDefinition, reg StepRegistry) *ValidatedGraph {
	t.Helper()
	g, err := Validate(def, reg)
	require.NoError(t, err)
	return g
}

// loopRegistry has "increment" adding one to n and "check" writing n >= limit.
func loopRegistry(t *testing.T, limit int) *core.Registry {
	t.Helper()
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("increment", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("n", core.IntValue(s.GetInt("n", 0)+1))
		return s, nil
	}))
	require.NoError(t, reg.RegisterFunc("check", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("check", core.BoolValue(s.GetInt("n", 0) >= limit))
		return s, nil
	}))
	return reg
}

func loopDefinition() *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:        "graph_loop",
		EntryNode: "increment",
		Nodes:     []string{"increment", "check"},
		Edges:     map[string]domain.Target{"increment": "check"},
		ConditionalEdges: map[string]map[string]domain.Target{
			"check": {"true": domain.Terminal, "false": "increment"},
		},
	}
}

func TestExecutor_LinearGraph(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("a", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("trail", core.StringValue(s.GetString("trail", "")+"a"))
		return s, nil
	}))
	require.NoError(t, reg.RegisterFunc("b", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("trail", core.StringValue(s.GetString("trail", "")+"b"))
		return nil, nil
	}))
	def := &domain.GraphDefinition{
		ID:        "graph_linear",
		EntryNode: "a",
		Nodes:     []string{"a", "b"},
		Edges:     map[string]domain.Target{"a": "b", "b": domain.Terminal},
	}

	run := newTestExecutor().Run(context.Background(), mustValidate(t, def, reg), reg, core.State{"trail": core.StringValue(">")}, 10)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"a", "b"}, run.Path())
	assert.Equal(t, ">ab", run.State.GetString("trail", ""))
	assert.Equal(t, 2, run.Iterations)
	assert.Equal(t, "graph_linear", run.GraphID)
	assert.True(t, strings.HasPrefix(run.ID, "run_"))
	require.NotNil(t, run.Finished)
	assert.Empty(t, run.Error)

	assert.Equal(t, domain.Target("b"), run.ExecutionLog[0].Next)
	assert.True(t, run.ExecutionLog[1].Next.IsTerminal())
	assert.Equal(t, ">a", run.ExecutionLog[0].State.GetString("trail", ""))
	assert.Equal(t, 1, run.ExecutionLog[0].Sequence)
	assert.Equal(t, 2, run.ExecutionLog[1].Sequence)
}

func TestExecutor_DoesNotMutateInitialState(t *testing.T) {
	reg := loopRegistry(t, 1)
	initial := core.State{"n": core.IntValue(0)}
	run := newTestExecutor().Run(context.Background(), mustValidate(t, loopDefinition(), reg), reg, initial, 10)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 0, initial.GetInt("n", -1))
	assert.Equal(t, 1, run.State.GetInt("n", -1))
}

func TestExecutor_UnconditionalTerminal(t *testing.T) {
	reg := registryWith(t, "only")
	def := &domain.GraphDefinition{
		EntryNode: "only",
		Nodes:     []string{"only"},
		Edges:     map[string]domain.Target{"only": domain.Terminal},
	}
	run := newTestExecutor().Run(context.Background(), mustValidate(t, def, reg), reg, core.State{}, 10)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"only"}, run.Path())
}

func TestExecutor_EmptyInitialState(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("seed", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("seeded", core.BoolValue(true))
		return s, nil
	}))
	def := &domain.GraphDefinition{EntryNode: "seed", Nodes: []string{"seed"}}

	run := newTestExecutor().Run(context.Background(), mustValidate(t, def, reg), reg, nil, 10)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	seeded, ok := run.State["seeded"].AsBool()
	assert.True(t, ok)
	assert.True(t, seeded)
}

func branchSetup(t *testing.T, decision core.Value) (*ValidatedGraph, *core.Registry) {
	t.Helper()
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("decide", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("decide", decision)
		return s, nil
	}))
	require.NoError(t, reg.RegisterFunc("short", noopStep))
	require.NoError(t, reg.RegisterFunc("long", noopStep))
	def := &domain.GraphDefinition{
		EntryNode: "decide",
		Nodes:     []string{"decide", "short", "long"},
		Edges:     map[string]domain.Target{"short": domain.Terminal, "long": domain.Terminal},
		ConditionalEdges: map[string]map[string]domain.Target{
			"decide": {"x": "short", "y": "long"},
		},
	}
	return mustValidate(t, def, reg), reg
}

func TestExecutor_BranchCorrectness(t *testing.T) {
	g, reg := branchSetup(t, core.StringValue("x"))
	run := newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"decide", "short"}, run.Path())

	g, reg = branchSetup(t, core.StringValue("y"))
	run = newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)
	assert.Equal(t, []string{"decide", "long"}, run.Path())
}

func TestExecutor_UnresolvedBranch(t *testing.T) {
	g, reg := branchSetup(t, core.StringValue("z"))
	run := newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, []string{"decide"}, run.Path())
	assert.Contains(t, run.Error, ErrUnresolvedBranch.Error())
	assert.Contains(t, run.Error, "decide")
	last := run.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "decide", last.Node)
	assert.Equal(t, run.Error, last.Error)
	assert.Equal(t, "z", last.State.GetString("decide", ""))
}

func TestExecutor_LoopConverges(t *testing.T) {
	reg := loopRegistry(t, 3)
	run := newTestExecutor().Run(context.Background(), mustValidate(t, loopDefinition(), reg), reg, core.State{}, 100)

	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"increment", "check", "increment", "check", "increment", "check"}, run.Path())
	assert.Equal(t, 3, run.State.GetInt("n", 0))
	assert.Equal(t, 6, run.Iterations)
}

func TestExecutor_LoopLimitStopsAtExactlyN(t *testing.T) {
	reg := loopRegistry(t, 1000)
	for _, limit := range []int{1, 2, 5, 7} {
		run := newTestExecutor().Run(context.Background(), mustValidate(t, loopDefinition(), reg), reg, core.State{}, limit)

		assert.Equal(t, domain.RunStatusAbortedLoopLimit, run.Status, "limit %d", limit)
		assert.Len(t, run.ExecutionLog, limit)
		assert.Equal(t, limit, run.Iterations)
		assert.Contains(t, run.Error, ErrLoopLimitExceeded.Error())
		assert.Equal(t, (limit+1)/2, run.State.GetInt("n", 0))
	}
}

func TestExecutor_TerminalReachedOnLastAllowedIteration(t *testing.T) {
	reg := loopRegistry(t, 1)
	run := newTestExecutor().Run(context.Background(), mustValidate(t, loopDefinition(), reg), reg, core.State{}, 2)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Len(t, run.ExecutionLog, 2)
}

func TestExecutor_NonPositiveLimitUsesDefault(t *testing.T) {
	reg := loopRegistry(t, 1000)
	exec := NewExecutor(core.NewStepClock(testStart, time.Millisecond), 4)
	run := exec.Run(context.Background(), mustValidate(t, loopDefinition(), reg), reg, core.State{}, 0)
	assert.Equal(t, domain.RunStatusAbortedLoopLimit, run.Status)
	assert.Len(t, run.ExecutionLog, 4)

	run = newTestExecutor().Run(context.Background(), mustValidate(t, loopDefinition(), reg), reg, core.State{}, -1)
	assert.Len(t, run.ExecutionLog, DefaultMaxIterations)
}

func TestExecutor_Determinism(t *testing.T) {
	reg := loopRegistry(t, 4)
	g := mustValidate(t, loopDefinition(), reg)
	initial := core.State{"label": core.StringValue("same")}

	first := newTestExecutor().Run(context.Background(), g, reg, initial, 50)
	second := newTestExecutor().Run(context.Background(), g, reg, initial, 50)

	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, first.State.Equal(second.State))
	assert.Equal(t, first.Path(), second.Path())
	assert.Equal(t, first.ExecutionLog, second.ExecutionLog)
}

func TestExecutor_BooleanAndNumericRouteKeys(t *testing.T) {
	g, reg := branchSetupKeys(t, core.BoolValue(true), map[string]domain.Target{"true": "short", "false": "long"})
	run := newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)
	assert.Equal(t, []string{"decide", "short"}, run.Path())

	g, reg = branchSetupKeys(t, core.NumberValue(2), map[string]domain.Target{"1": "short", "2": "long"})
	run = newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)
	assert.Equal(t, []string{"decide", "long"}, run.Path())

	g, reg = branchSetupKeys(t, core.NumberValue(0.5), map[string]domain.Target{"0.5": "short"})
	run = newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)
	assert.Equal(t, []string{"decide", "short"}, run.Path())
}

func TestExecutor_DefaultBranch(t *testing.T) {
	g, reg := branchSetupKeys(t, core.StringValue("unknown"), map[string]domain.Target{"x": "short", DefaultBranch: "long"})
	run := newTestExecutor().Run(context.Background(), g, reg, core.State{}, 10)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"decide", "long"}, run.Path())
}

func branchSetupKeys(t *testing.T, decision core.Value, branches map[string]domain.Target) (*ValidatedGraph, *core.Registry) {
	t.Helper()
	g, reg := branchSetup(t, decision)
	def := g.Definition()
	def.ConditionalEdges["decide"] = branches
	return mustValidate(t, def, reg), reg
}

func TestExecutor_StepErrorFailsRun(t *testing.T) {
	boom := errors.New("boom")
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("first", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("first", core.BoolValue(true))
		return s, nil
	}))
	require.NoError(t, reg.RegisterFunc("broken", func(ctx context.Context, s core.State) (core.State, error) {
		s.Set("partial", core.BoolValue(true))
		return nil, boom
	}))
	def := &domain.GraphDefinition{
		EntryNode: "first",
		Nodes:     []string{"first", "broken"},
		Edges:     map[string]domain.Target{"first": "broken"},
	}

	run := newTestExecutor().Run(context.Background(), mustValidate(t, def, reg), reg, core.State{}, 10)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, []string{"first", "broken"}, run.Path())
	assert.Contains(t, run.Error, "boom")
	assert.Contains(t, run.Error, ErrStepExecution.Error())
	assert.Equal(t, run.Error, run.LastEntry().Error)
	assert.True(t, run.State.Has("first"))
}

func TestExecutor_StepPanicIsCaptured(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("explode", func(ctx context.Context, s core.State) (core.State, error) {
		panic("kaboom")
	}))
	def := &domain.GraphDefinition{EntryNode: "explode", Nodes: []string{"explode"}}

	run := newTestExecutor().Run(context.Background(), mustValidate(t, def, reg), reg, core.State{}, 10)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "kaboom")
	assert.Len(t, run.ExecutionLog, 1)
}

func TestExecutor_InvokeWrapsCause(t *testing.T) {
	boom := errors.New("boom")
	reg := core.NewRegistry()
	require.NoError(t, reg.RegisterFunc("broken", func(ctx context.Context, s core.State) (core.State, error) {
		return nil, boom
	}))
	_, err := newTestExecutor().invoke(context.Background(), reg, "broken", core.State{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepExecution))
	assert.True(t, errors.Is(err, boom))

	_, err = newTestExecutor().invoke(context.Background(), reg, "missing", core.State{})
	assert.True(t, errors.Is(err, core.ErrStepNotFound))
}

func TestExecutor_ContextCancelledBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := loopRegistry(t, 1000)
	require.NoError(t, reg.RegisterFunc("stop", func(c context.Context, s core.State) (core.State, error) {
		cancel()
		return s, nil
	}))
	def := loopDefinition()
	def.Nodes = append(def.Nodes, "stop")
	def.EntryNode = "stop"
	def.Edges["stop"] = "increment"

	run := newTestExecutor().Run(ctx, mustValidate(t, def, reg), reg, core.State{}, 10)

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, []string{"stop"}, run.Path())
	assert.Contains(t, run.Error, context.Canceled.Error())
}

func TestExecutor_ObserverSeesEveryStep(t *testing.T) {
	reg := loopRegistry(t, 2)
	g := mustValidate(t, loopDefinition(), reg)
	exec := newTestExecutor()

	var started, finished int
	var nodes []string
	obs := NewCompositeObserver(nil, ObserverFuncs{
		RunStart:      func(ctx context.Context, run *domain.Run) { started++ },
		StepCompleted: func(ctx context.Context, run *domain.Run, entry domain.LogEntry) { nodes = append(nodes, entry.Node) },
		RunFinished:   func(ctx context.Context, run *domain.Run) { finished++ },
	}, NoopObserver{})

	run := exec.NewRun("run_observed", g, core.State{})
	exec.Execute(context.Background(), g, reg, run, 10, obs)

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, finished)
	assert.Equal(t, run.Path(), nodes)
	assert.Equal(t, "run_observed", run.ID)
}

func TestExecutor_RecordsTimestampsFromClock(t *testing.T) {
	reg := registryWith(t, "only")
	def := &domain.GraphDefinition{EntryNode: "only", Nodes: []string{"only"}}
	run := newTestExecutor().Run(context.Background(), mustValidate(t, def, reg), reg, core.State{}, 10)

	assert.Equal(t, testStart, run.Created)
	assert.Equal(t, testStart.Add(time.Millisecond), run.ExecutionLog[0].Timestamp)
	assert.Equal(t, int64(1), run.ExecutionLog[0].DurationMs)
	require.NotNil(t, run.Finished)
	assert.Equal(t, testStart.Add(3*time.Millisecond), *run.Finished)
}
