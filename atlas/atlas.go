// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package atlas groups enrichment records by place and director, and turns
// the grouping into the document the map consumes.
package atlas

import (
	"html"
	"strings"

	"github.com/jcodagnone/cinemap/enrich"
	"github.com/jcodagnone/cinemap/spatial"
)

// Place accumulates the directors born at one canonical address.
type Place struct {
	Address   string
	Point     spatial.Point
	Directors Directors
}

// Atlas is the aggregation state of a run. Places keep the order in which
// they were first folded. It is not safe for concurrent use.
type Atlas struct {
	order  []*Place
	byAddr map[string]*Place
}

// New creates an empty Atlas.
func New() *Atlas {
	return &Atlas{byAddr: make(map[string]*Place)}
}

// Fold adds r to the aggregation. The coordinates of a place are those of
// the first record that created it. Titles are appended even if already
// present.
func (a *Atlas) Fold(r enrich.Record) *Atlas {
	p, ok := a.byAddr[r.Address]
	if !ok {
		p = &Place{Address: r.Address, Point: r.Point}
		a.byAddr[r.Address] = p
		a.order = append(a.order, p)
	}

	p.Directors.Add(r.DirectorName, r.FilmTitle)

	return a
}

// Len returns the number of places.
func (a *Atlas) Len() int {
	return len(a.order)
}

// Place returns the aggregate for address.
func (a *Atlas) Place(address string) (*Place, bool) {
	p, ok := a.byAddr[address]

	return p, ok
}

// PlaceOutput is one entry of the map document.
type PlaceOutput struct {
	PlaceName string    `json:"place_name"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	PopupHTML string    `json:"popup_html"`
	Directors Directors `json:"directors"`
}

// Assemble flattens the aggregation into place records, in first-seen order.
func (a *Atlas) Assemble() []PlaceOutput {
	ret := make([]PlaceOutput, 0, len(a.order))

	for _, p := range a.order {
		ret = append(ret, PlaceOutput{
			PlaceName: p.Address,
			Lat:       p.Point.Lat,
			Lon:       p.Point.Lng,
			PopupHTML: Popup(p.Address, p.Directors),
			Directors: p.Directors.clone(),
		})
	}

	return ret
}

// Popup renders the display fragment of a place: a heading and one list
// item per director with their films comma-joined.
func Popup(place string, directors Directors) string {
	var sb strings.Builder

	sb.WriteString("<h3>")
	sb.WriteString(html.EscapeString(place))
	sb.WriteString("</h3><ul>")

	for _, d := range directors.list {
		sb.WriteString("<li><b>")
		sb.WriteString(html.EscapeString(d.Name))
		sb.WriteString("</b>: ")

		for i, f := range d.Films {
			if i > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(html.EscapeString(f))
		}

		sb.WriteString("</li>")
	}

	sb.WriteString("</ul>")

	return sb.String()
}
