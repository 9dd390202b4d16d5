// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/cinemap/enrich"
	"github.com/jcodagnone/cinemap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seoulPt = spatial.Point{Lat: 37.57, Lng: 126.98}
	daeguPt = spatial.Point{Lat: 35.87, Lng: 128.60}
	records = []enrich.Record{
		{FilmTitle: "Parasite", DirectorName: "Bong Joon Ho", Address: "Seoul, South Korea", Point: seoulPt},
		{FilmTitle: "Oldboy", DirectorName: "Park Chan-wook", Address: "Seoul, South Korea", Point: seoulPt},
		{FilmTitle: "Burning", DirectorName: "Lee Chang-dong", Address: "Daegu, South Korea", Point: daeguPt},
		{FilmTitle: "Mother", DirectorName: "Bong Joon Ho", Address: "Seoul, South Korea", Point: seoulPt},
	}
)

func fold(rs []enrich.Record) *Atlas {
	a := New()
	for _, r := range rs {
		a.Fold(r)
	}

	return a
}

func TestFold_SameDirectorSamePlace(t *testing.T) {
	a := New()

	for _, title := range []string{"Parasite", "Mother", "Parasite"} {
		a.Fold(enrich.Record{FilmTitle: title, DirectorName: "Bong Joon Ho", Address: "Seoul, South Korea", Point: seoulPt})
	}

	require.Equal(t, 1, a.Len())

	p, ok := a.Place("Seoul, South Korea")
	require.True(t, ok)
	assert.Equal(t, []string{"Parasite", "Mother", "Parasite"}, p.Directors.Films("Bong Joon Ho"))
}

func TestFold_KeepsFirstCoordinates(t *testing.T) {
	a := New()
	a.Fold(enrich.Record{FilmTitle: "A", DirectorName: "X", Address: "Here", Point: seoulPt})
	a.Fold(enrich.Record{FilmTitle: "B", DirectorName: "Y", Address: "Here", Point: daeguPt})

	p, _ := a.Place("Here")
	assert.Equal(t, seoulPt, p.Point)
	assert.Equal(t, []string{"X", "Y"}, p.Directors.Names())
}

func TestAssemble(t *testing.T) {
	out := fold(records).Assemble()
	require.Len(t, out, 2)

	assert.Equal(t, "Seoul, South Korea", out[0].PlaceName)
	assert.InDelta(t, 37.57, out[0].Lat, 1e-9)
	assert.InDelta(t, 126.98, out[0].Lon, 1e-9)
	assert.Equal(t,
		"<h3>Seoul, South Korea</h3><ul><li><b>Bong Joon Ho</b>: Parasite, Mother</li><li><b>Park Chan-wook</b>: Oldboy</li></ul>",
		out[0].PopupHTML)
	assert.Equal(t, []DirectorFilms{
		{Name: "Bong Joon Ho", Films: []string{"Parasite", "Mother"}},
		{Name: "Park Chan-wook", Films: []string{"Oldboy"}},
	}, out[0].Directors.All())

	assert.Equal(t, "Daegu, South Korea", out[1].PlaceName)
}

func TestAssemble_Idempotent(t *testing.T) {
	first := fold(records).Assemble()
	second := fold(records).Assemble()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("assemble mismatch (-first +second):\n%s", diff)
	}
}

func TestAssemble_DetachedFromState(t *testing.T) {
	a := fold(records)
	out := a.Assemble()

	a.Fold(enrich.Record{FilmTitle: "Okja", DirectorName: "Bong Joon Ho", Address: "Seoul, South Korea", Point: seoulPt})

	assert.Equal(t, []string{"Parasite", "Mother"}, out[0].Directors.Films("Bong Joon Ho"))
}

func TestPopup_Escapes(t *testing.T) {
	var d Directors
	d.Add("Jean-Luc <Godard>", "Bande à part")
	d.Add("Jean-Luc <Godard>", "Pierrot & Marianne")

	assert.Equal(t,
		"<h3>Paris &amp; Co</h3><ul><li><b>Jean-Luc &lt;Godard&gt;</b>: Bande à part, Pierrot &amp; Marianne</li></ul>",
		Popup("Paris & Co", d))
}

func TestDocument_JSON(t *testing.T) {
	out := fold(records).Assemble()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, out))

	// directors keep insertion order, not alphabetical order
	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 2)
	assert.JSONEq(t, `{"Bong Joon Ho":["Parasite","Mother"],"Park Chan-wook":["Oldboy"]}`, string(raw[0]["directors"]))
	assert.Contains(t, buf.String(), `"directors": {
      "Bong Joon Ho": [`)
	assert.Contains(t, buf.String(), `"popup_html": "<h3>Seoul`)

	path := filepath.Join(t.TempDir(), "places.json")
	require.NoError(t, WriteFile(path, out))

	back, err := ReadFile(path)
	require.NoError(t, err)

	if diff := cmp.Diff(out, back); diff != "" {
		t.Errorf("document mismatch (-written +read):\n%s", diff)
	}
}

func TestDocument_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New().Assemble()))
	assert.Equal(t, "[]\n", buf.String())
}

func TestDirectors_UnmarshalOrder(t *testing.T) {
	var d Directors
	require.NoError(t, json.Unmarshal([]byte(`{"Z":["1"],"A":["2","3"],"M":[]}`), &d))

	assert.Equal(t, []string{"Z", "A", "M"}, d.Names())
	assert.Equal(t, []string{"2", "3"}, d.Films("A"))
	assert.Empty(t, d.Films("M"))
	assert.Nil(t, d.Films("nobody"))

	require.Error(t, json.Unmarshal([]byte(`["Z"]`), &d))
}
