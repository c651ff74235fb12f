// Command bombbuster is a thin driver over pkg/engine: it loads a
// Config, replays a recorded event log against a fresh Orchestrator,
// and prints the resulting domains. It carries no inference logic of
// its own (spec §1: the engine's exported API is the contract; this
// binary only exercises it).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bombbuster/engine/pkg/engine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, eventLogPath string
	var globalSolver bool

	root := &cobra.Command{
		Use:           "bombbuster",
		Short:         "Replay a BombBuster event log through the inference engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), configPath, eventLogPath, globalSolver)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML Config (defaults to engine.DefaultConfig())")
	root.PersistentFlags().StringVar(&eventLogPath, "events", "", "path to a JSON snapshot whose event_log should be replayed")
	root.PersistentFlags().BoolVar(&globalSolver, "global-solver", true, "enable the global resource-feasibility solver")

	return root
}

func runReplay(ctx context.Context, configPath, eventLogPath string, globalSolver bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.GlobalSolverEnabled = globalSolver

	var o *engine.Orchestrator
	if eventLogPath != "" {
		snap, err := engine.LoadSnapshot(eventLogPath)
		if err != nil {
			return fmt.Errorf("bombbuster: load event log: %w", err)
		}
		snap.Config = cfg
		o, err = engine.RestoreOrchestrator(ctx, snap)
		if err != nil {
			return fmt.Errorf("bombbuster: replay event log: %w", err)
		}
	} else {
		o = engine.NewOrchestrator(cfg, nil)
	}

	return printDomains(o, cfg)
}

func loadConfig(path string) (*engine.Config, error) {
	if path == "" {
		return engine.DefaultConfig(), nil
	}
	cfg, err := engine.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("bombbuster: load config: %w", err)
	}
	return cfg, nil
}

// printDomains prints the current candidate sets for every (player,
// position) slot as JSON, keyed "p<i>j<j>".
func printDomains(o *engine.Orchestrator, cfg *engine.Config) error {
	out := make(map[string][]engine.Value, cfg.N*cfg.L)
	bs := o.Beliefs()
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			out[fmt.Sprintf("p%dj%d", p, j)] = bs.GetDomain(p, j).ToSlice()
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
