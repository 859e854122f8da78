// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callscope/pkg/validation"
	"github.com/AleutianAI/callscope/services/scope/render"
	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/search"
	"github.com/AleutianAI/callscope/services/scope/selection"
	"github.com/AleutianAI/callscope/services/scope/session"
)

// errNotFound is returned by --fail-if-empty when nothing matched.
var errNotFound = errors.New("no match")

// outputFlags are shared by the offline query commands.
type outputFlags struct {
	json     bool
	color    string
	viewport string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Output as JSON for scripting")
	cmd.Flags().StringVar(&o.color, "color", "auto", "Color output: auto, always, never")
	cmd.Flags().StringVar(&o.viewport, "viewport", "1280x800", "Viewport size WIDTHxHEIGHT for camera output")
}

func (o *outputFlags) printer(cmd *cobra.Command) (*render.Printer, error) {
	opts := []render.Option{}
	if o.json {
		opts = append(opts, render.WithFormat(render.FormatJSON))
	}
	switch o.color {
	case "auto":
	case "always":
		opts = append(opts, render.WithColor(true))
	case "never":
		opts = append(opts, render.WithColor(false))
	default:
		return nil, fmt.Errorf("invalid --color %q: want auto, always or never", o.color)
	}
	return render.NewPrinter(cmd.OutOrStdout(), opts...), nil
}

// newSession opens an offline session over the configured graph.
func (o *outputFlags) newSession(a *app) (*session.Session, error) {
	size, err := parseViewport(o.viewport)
	if err != nil {
		return nil, err
	}
	sc, err := a.loadScene()
	if err != nil {
		return nil, err
	}
	return session.New(sc,
		session.WithCamera(a.cfg.Camera),
		session.WithViewport(size),
		session.WithWorkspaceRoot(a.cfg.Graph.WorkspaceRoot),
		session.WithAutoCenter(a.cfg.Session.AutoCenter),
	), nil
}

func newSelectCmd(a *app) *cobra.Command {
	var out outputFlags
	var failIfIdle bool

	cmd := &cobra.Command{
		Use:   "select [KIND] ID",
		Short: "Show what a selection keeps and fades",
		Long: `Select one element and print the resulting partition.

KIND is node, cell, edge or cluster. Without it the kind is inferred
from the id. An id that is not in the graph selects nothing. Clusters
derived from directories are named "cluster:<dir>".

Examples:
  callscope select server.go:Handle
  callscope select edge "a.go:main -> b.go:run" --json
  callscope select cluster cluster:pkg/api`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[len(args)-1]
			if err := validation.ValidateElementID(id); err != nil {
				return err
			}
			p, err := out.printer(cmd)
			if err != nil {
				return err
			}
			sess, err := out.newSession(a)
			if err != nil {
				return err
			}

			kind := sess.Scene().Kind(id)
			if len(args) == 2 {
				k, ok := scene.ParseElementKind(args[0])
				if !ok || k == scene.ElementNone {
					return fmt.Errorf("invalid kind %q: want node, cell, edge or cluster", args[0])
				}
				kind = k
			}

			f := sess.Select(cmd.Context(), selection.Target{Kind: kind, ID: id})
			if err := p.Frame(f); err != nil {
				return err
			}
			if failIfIdle && f.State.Phase == selection.PhaseIdle {
				return fmt.Errorf("%s: %w", id, errNotFound)
			}
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&failIfIdle, "fail-if-empty", false, "Exit with error if nothing was selected")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var out outputFlags
	var kinds []string
	var limit int
	var caseSensitive, selectFirst, failIfEmpty bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find nodes and symbols by name",
		Long: `List nodes and symbols whose label contains QUERY.

Nodes are listed before symbols. With --select the first match is
selected and the full frame is printed instead.

Examples:
  callscope search Handle
  callscope search parse --kind function --kind method
  callscope search Config --select --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := validation.SanitizeQuery(args[0])
			if err != nil {
				return err
			}
			p, err := out.printer(cmd)
			if err != nil {
				return err
			}
			parsed := make([]scene.CellKind, 0, len(kinds))
			for _, name := range kinds {
				k, err := scene.ParseCellKind(name)
				if err != nil {
					return err
				}
				parsed = append(parsed, k)
			}
			sess, err := out.newSession(a)
			if err != nil {
				return err
			}

			var matches []search.Match
			if selectFirst {
				f := sess.Search(cmd.Context(), query, parsed...)
				matches = f.Matches
				err = p.Frame(f)
			} else {
				opts := []search.QueryOption{search.WithKinds(parsed...), search.WithLimit(limit)}
				if caseSensitive {
					opts = append(opts, search.WithCaseSensitive())
				}
				matches = sess.Query(query, opts...)
				err = p.Matches(matches)
			}
			if err != nil {
				return err
			}
			if failIfEmpty && len(matches) == 0 {
				return fmt.Errorf("%q: %w", query, errNotFound)
			}
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().StringArrayVar(&kinds, "kind", nil, "Restrict to a symbol kind, repeatable")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum matches (0 = all)")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match case exactly")
	cmd.Flags().BoolVar(&selectFirst, "select", false, "Select the first match and print the frame")
	cmd.Flags().BoolVar(&failIfEmpty, "fail-if-empty", false, "Exit with error if nothing matched")
	return cmd
}

// parseViewport parses "WIDTHxHEIGHT".
func parseViewport(s string) (scene.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return scene.Size{}, fmt.Errorf("invalid viewport %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil || width <= 0 {
		return scene.Size{}, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil || height <= 0 {
		return scene.Size{}, fmt.Errorf("invalid viewport height %q", h)
	}
	return scene.Size{Width: width, Height: height}, nil
}
