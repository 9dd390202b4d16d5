// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write encodes places as an indented JSON array.
func Write(w io.Writer, places []PlaceOutput) error {
	if places == nil {
		places = []PlaceOutput{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(places); err != nil {
		return fmt.Errorf("encoding places: %w", err)
	}

	return nil
}

// WriteFile stores places at path.
func WriteFile(path string, places []PlaceOutput) (err error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return Write(f, places)
}

// ReadFile loads a document written by WriteFile.
func ReadFile(path string) ([]PlaceOutput, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading places: %w", err)
	}

	var places []PlaceOutput
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("unmarshaling places: %w", err)
	}

	return places, nil
}
