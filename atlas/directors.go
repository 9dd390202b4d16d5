// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// DirectorFilms is a director and the films attributed to them at a place.
type DirectorFilms struct {
	Name  string
	Films []string
}

// Directors maps director names to film titles, remembering the order in
// which directors were first added. It marshals as a JSON object whose keys
// follow that order.
type Directors struct {
	list  []DirectorFilms
	index map[string]int
}

// Add appends film to the list of director, creating it if needed.
func (d *Directors) Add(director, film string) {
	i := d.ensure(director)
	d.list[i].Films = append(d.list[i].Films, film)
}

// Films returns the films of director, in the order they were added.
func (d Directors) Films(director string) []string {
	i, ok := d.index[director]
	if !ok {
		return nil
	}

	return slices.Clone(d.list[i].Films)
}

// Names returns the directors in insertion order.
func (d Directors) Names() []string {
	ret := make([]string, len(d.list))
	for i, e := range d.list {
		ret[i] = e.Name
	}

	return ret
}

// All returns a copy of every director with their films.
func (d Directors) All() []DirectorFilms {
	ret := make([]DirectorFilms, len(d.list))
	for i, e := range d.list {
		ret[i] = DirectorFilms{Name: e.Name, Films: slices.Clone(e.Films)}
	}

	return ret
}

// Len returns the number of directors.
func (d Directors) Len() int {
	return len(d.list)
}

// Equal reports whether both mappings hold the same directors and films in
// the same order.
func (d Directors) Equal(o Directors) bool {
	return slices.EqualFunc(d.list, o.list, func(a, b DirectorFilms) bool {
		return a.Name == b.Name && slices.Equal(a.Films, b.Films)
	})
}

// MarshalJSON implements json.Marshaler.
func (d Directors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, e := range d.list {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := marshalNoEscape(e.Name)
		if err != nil {
			return nil, err
		}

		films := e.Films
		if films == nil {
			films = []string{}
		}

		value, err := marshalNoEscape(films)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the key order.
func (d *Directors) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*d = Directors{}

		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("directors: expected object, got %v", tok)
	}

	var ret Directors

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		name, ok := tok.(string)
		if !ok {
			return errors.New("directors: expected string key")
		}

		var films []string
		if err := dec.Decode(&films); err != nil {
			return fmt.Errorf("directors: films of %q: %w", name, err)
		}

		ret.ensure(name)

		for _, f := range films {
			ret.Add(name, f)
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = ret

	return nil
}

// ensure registers director, returning its position.
func (d *Directors) ensure(director string) int {
	if d.index == nil {
		d.index = make(map[string]int)
	}

	i, ok := d.index[director]
	if !ok {
		i = len(d.list)
		d.index[director] = i
		d.list = append(d.list, DirectorFilms{Name: director})
	}

	return i
}

// clone returns a deep copy that shares nothing with d.
func (d Directors) clone() Directors {
	var ret Directors

	for _, e := range d.list {
		i := ret.ensure(e.Name)
		ret.list[i].Films = slices.Clone(e.Films)
	}

	return ret
}
