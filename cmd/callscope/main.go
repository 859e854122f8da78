// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command callscope serves interactive views over a laid-out call graph.
//
// Usage:
//
//	callscope serve --graph callgraph.json
//	callscope select a.go:main --json
//	callscope search Handle --kind function
//	callscope config init
//
// Example requests against a running server:
//
//	# Open a session
//	curl -X POST http://127.0.0.1:8765/v1/scope/sessions \
//	  -H "Content-Type: application/json" \
//	  -d '{"viewport": {"width": 1280, "height": 800}}'
//
//	# Click a cell
//	curl -X POST http://127.0.0.1:8765/v1/scope/sessions/$ID/events \
//	  -d '{"type": "click", "chain": ["a.go:main"]}'
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callscope/pkg/logging"
	"github.com/AleutianAI/callscope/services/scope/config"
	"github.com/AleutianAI/callscope/services/scope/scene"
)

// app carries global flags and the state built from them.
type app struct {
	configPath string
	graphPath  string
	logLevel   string

	cfg    config.Config
	logger *logging.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "callscope",
		Short: "Explore a laid-out call graph by selection",
		Long: `callscope loads a call graph whose geometry was produced by a layout
engine and answers "what does this touch?" for any node, symbol, edge or
cluster. Serve it for an editor view, or query it from the shell.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "callscope.yaml",
		"Config file (missing file uses defaults)")
	root.PersistentFlags().StringVarP(&a.graphPath, "graph", "g", "",
		"Graph document, overrides graph.path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newSelectCmd(a),
		newSearchCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the config, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.graphPath != "" {
		cfg.Graph.Path = a.graphPath
	}
	if a.logLevel != "" {
		level, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}
	a.cfg = cfg

	cfg.Logging.Output = cmd.ErrOrStderr()
	a.logger = logging.New(cfg.Logging)
	slog.SetDefault(a.logger.Slog())
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

// loadScene reads and builds the configured graph document.
func (a *app) loadScene() (*scene.Scene, error) {
	return loadGraph(a.cfg.Graph.Path)
}

func loadGraph(path string) (*scene.Scene, error) {
	doc, err := scene.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return doc.Build(scene.WithLogger(slog.Default()))
}
