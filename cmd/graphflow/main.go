package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RealZimboGuy/graphflow/internal/config"
	"github.com/RealZimboGuy/graphflow/internal/controllers"
	"github.com/RealZimboGuy/graphflow/internal/engine"
	"github.com/RealZimboGuy/graphflow/internal/loader"
	"github.com/RealZimboGuy/graphflow/internal/mcptools"
	"github.com/RealZimboGuy/graphflow/internal/workflows"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

const version = "0.1.0"

var (
	graphFile     string
	stateFile     string
	inputText     string
	maxIterations int
)

var rootCmd = &cobra.Command{
	Use:           "graphflow",
	Short:         "Graph-based step execution engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		graphflow.SetupLogger(config.GetSystemSettingString(config.LOG_LEVEL))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return graphflow.Start(ctx, nil, newRegistry())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a graph file in memory and print the run record",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := newRegistry()
		graph, err := loadValidated(reg)
		if err != nil {
			return err
		}
		initial := core.State{}
		if stateFile != "" {
			if initial, err = loader.LoadState(stateFile); err != nil {
				return err
			}
		}
		if inputText != "" {
			initial.Set(workflows.KeyOriginalText, core.StringValue(inputText))
		}

		run := engine.NewExecutor(core.NewRealClock(), config.GetSystemSettingInteger(config.ENGINE_MAX_ITERATIONS)).
			Run(cmd.Context(), graph, reg, initial, maxIterations)
		if err := printJSON(cmd, run); err != nil {
			return err
		}
		if run.Status != domain.RunStatusCompleted {
			return fmt.Errorf("run %s: %s", run.Status, run.Error)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a graph file against the built-in steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := loadValidated(newRegistry())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "graph %q is valid: entry %s, %d nodes\n", graph.Name(), graph.EntryNode(), len(graph.Definition().Nodes))
		return nil
	},
}

var flowchartCmd = &cobra.Command{
	Use:   "flowchart",
	Short: "Print a mermaid flowchart of a graph file",
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := loadValidated(newRegistry())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), engine.BuildFlowChart(graph.Definition()))
		return nil
	},
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key KEY",
	Short: "Print the bcrypt hash to use as GFLOW_API_KEY_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := controllers.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the step names graphs can reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range newRegistry().Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the graph tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := graphflow.New(cmd.Context(), newRegistry())
		if err != nil {
			return err
		}
		defer eng.Close()
		return mcptools.NewServer(eng.Manager, version).Serve()
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd, flowchartCmd} {
		c.Flags().StringVarP(&graphFile, "file", "f", "", "Graph file (.hcl, .yaml, .yml or .json)")
		_ = c.MarkFlagRequired("file")
	}
	runCmd.Flags().StringVarP(&stateFile, "state", "s", "", "Initial state file (.json or .yaml)")
	runCmd.Flags().StringVar(&inputText, "text", "", "Shortcut setting original_text in the initial state")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Loop limit; GFLOW_ENGINE_MAX_ITERATIONS when 0")

	rootCmd.AddCommand(serveCmd, runCmd, validateCmd, flowchartCmd, stepsCmd, hashKeyCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("graphflow exited with error", "error", err)
		os.Exit(1)
	}
}

// newRegistry returns the steps every command can reference.
func newRegistry() *core.Registry {
	reg := core.NewRegistry()
	if err := workflows.Register(reg); err != nil {
		panic(err)
	}
	return reg
}

func loadValidated(reg *core.Registry) (*engine.ValidatedGraph, error) {
	req, err := loader.LoadFile(graphFile)
	if err != nil {
		return nil, err
	}
	def := req.Definition()
	def.ID = engine.NewGraphID()
	if def.Name == "" {
		def.Name = def.ID
	}
	return engine.Validate(def, reg)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
