// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render prints session frames and search results for the CLI.
//
// Text output is styled with lipgloss when the destination is a terminal
// and NO_COLOR is unset, and plain otherwise. JSON output is the frame as
// served over HTTP.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/AleutianAI/callscope/services/scope/search"
	"github.com/AleutianAI/callscope/services/scope/selection"
	"github.com/AleutianAI/callscope/services/scope/session"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Palette.
var (
	colorKept     = lipgloss.Color("#2CD7C7")
	colorIncoming = lipgloss.Color("#20B9B4")
	colorOutgoing = lipgloss.Color("#F4D03F")
	colorSelected = lipgloss.Color("#E74C3C")
	colorMuted    = lipgloss.Color("#2C4A54")
)

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	kept     lipgloss.Style
	faded    lipgloss.Style
	incoming lipgloss.Style
	outgoing lipgloss.Style
	selected lipgloss.Style
}

// Printer writes frames to one destination.
type Printer struct {
	w      io.Writer
	format Format
	color  bool
	s      styles
}

// Option configures a Printer.
type Option func(*Printer)

// WithFormat sets the output format. Default: FormatText.
func WithFormat(f Format) Option {
	return func(p *Printer) { p.format = f }
}

// WithColor forces color on or off, overriding terminal detection.
func WithColor(enabled bool) Option {
	return func(p *Printer) { p.color = enabled }
}

// NewPrinter creates a printer for w.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, format: FormatText, color: IsTerminal(w)}
	for _, opt := range opts {
		opt(p)
	}

	r := lipgloss.NewRenderer(w)
	if p.color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	p.s = styles{
		title:    r.NewStyle().Bold(true).Foreground(colorKept),
		label:    r.NewStyle().Foreground(colorMuted),
		kept:     r.NewStyle().Bold(true),
		faded:    r.NewStyle().Foreground(colorMuted),
		incoming: r.NewStyle().Foreground(colorIncoming),
		outgoing: r.NewStyle().Foreground(colorOutgoing),
		selected: r.NewStyle().Bold(true).Foreground(colorSelected),
	}
	return p
}

// IsTerminal reports whether w is a terminal and NO_COLOR is unset.
func IsTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Frame writes one frame.
func (p *Printer) Frame(f session.Frame) error {
	if p.format == FormatJSON {
		return p.json(f)
	}
	_, err := io.WriteString(p.w, p.FrameText(f))
	return err
}

// Matches writes search results.
func (p *Printer) Matches(matches []search.Match) error {
	if p.format == FormatJSON {
		if matches == nil {
			matches = []search.Match{}
		}
		return p.json(matches)
	}
	_, err := io.WriteString(p.w, p.MatchesText(matches))
	return err
}

// FrameText renders a frame as text.
//
// The header names the session and camera, then the selection, then the
// kept and faded groups with per-element markers. Faded ids are counted,
// not listed.
func (p *Printer) FrameText(f session.Frame) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s  %s %d  %s %s\n",
		p.s.title.Render("session"), f.SessionID,
		p.s.label.Render("generation"), f.Generation,
		p.s.label.Render("camera"), f.Transform,
	)

	if f.State.Phase == selection.PhaseIdle {
		b.WriteString(p.s.label.Render("selection") + " none\n")
	} else {
		fmt.Fprintf(&b, "%s %s %s\n",
			p.s.label.Render("selection"), f.State.Target.Kind, p.s.selected.Render(f.State.Target.ID))
	}
	if f.State.Focus != "" {
		fmt.Fprintf(&b, "%s %s\n", p.s.label.Render("focus"), f.State.Focus)
	}

	part := f.Partition
	if !part.IsIdle() {
		p.layer(&b, "clusters", part.Kept.Clusters, part)
		p.layer(&b, "nodes", part.Kept.Nodes, part)
		p.layer(&b, "edges", part.Kept.Edges, part)
		fmt.Fprintf(&b, "%s %d clusters, %d nodes, %d edges\n",
			p.s.faded.Render("faded"),
			len(part.Faded.Clusters), len(part.Faded.Nodes), len(part.Faded.Edges))
	}

	if f.Navigation != nil {
		fmt.Fprintf(&b, "%s %s:%d:%d\n", p.s.label.Render("open"),
			f.Navigation.Path, f.Navigation.Line+1, f.Navigation.Character+1)
	}
	if len(f.Matches) > 0 {
		b.WriteString(p.MatchesText(f.Matches))
	}
	return b.String()
}

// MatchesText renders search results, one per line.
func (p *Printer) MatchesText(matches []search.Match) string {
	if len(matches) == 0 {
		return p.s.label.Render("no matches") + "\n"
	}
	var b strings.Builder
	for _, m := range matches {
		label := m.Label
		if m.Exact {
			label = p.s.kept.Render(label)
		}
		fmt.Fprintf(&b, "  %-5s %s %s", m.ElementName, label, p.s.label.Render(m.ID))
		if m.Path != "" {
			fmt.Fprintf(&b, " %s", p.s.faded.Render(m.Path))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (p *Printer) layer(b *strings.Builder, name string, ids []string, part selection.Partition) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d)\n", p.s.title.Render(name), len(ids))
	for _, id := range ids {
		m := part.Marker(id)
		fmt.Fprintf(b, "  %s", p.markerStyle(m).Render(id))
		if m != 0 {
			fmt.Fprintf(b, " [%s]", m)
		}
		b.WriteByte('\n')
	}
}

func (p *Printer) markerStyle(m selection.Marker) lipgloss.Style {
	switch {
	case m.Has(selection.MarkerSelected):
		return p.s.selected
	case m.Has(selection.MarkerIncoming):
		return p.s.incoming
	case m.Has(selection.MarkerOutgoing):
		return p.s.outgoing
	default:
		return p.s.kept
	}
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
