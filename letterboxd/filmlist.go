// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package letterboxd

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var titleYearRegex = regexp.MustCompile(`^(.*\S)\s+\((\d{4})\)$`)

// splitTitleYear splits "Title (YYYY)" into its parts.
func splitTitleYear(s string) (string, string) {
	s = strings.TrimSpace(s)

	if m := titleYearRegex.FindStringSubmatch(s); m != nil {
		return m[1], m[2]
	}

	return s, ""
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// ReadFilmList loads a film list. Files ending in .csv hold a title,year
// table (header optional); any other file holds one "Title" or
// "Title (YYYY)" per line.
func ReadFilmList(path string) (_ []Film, err error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening film list: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing film list: %w", cerr))
		}
	}()

	if isCSV(path) {
		return ParseCSV(f)
	}

	return ParseText(f)
}

// ParseText parses a newline-delimited film list. Blank lines are skipped.
func ParseText(r io.Reader) ([]Film, error) {
	var films []Film

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		title, year := splitTitleYear(line)
		films = append(films, Film{Title: title, Year: year})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading film list: %w", err)
	}

	return films, nil
}

// ParseCSV parses a title,year table.
func ParseCSV(r io.Reader) ([]Film, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var films []Film

	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading film list: %w", err)
		}

		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "title") {
			continue
		}

		title := strings.TrimSpace(record[0])
		if title == "" {
			continue
		}

		var year string
		if len(record) > 1 {
			year = strings.TrimSpace(record[1])
		}

		films = append(films, Film{Title: title, Year: year})
	}

	return films, nil
}

// WriteFilmList stores films in the format implied by the path extension.
func WriteFilmList(path string, films []Film) error {
	var sb strings.Builder

	if isCSV(path) {
		w := csv.NewWriter(&sb)

		if err := w.Write([]string{"title", "year"}); err != nil {
			return fmt.Errorf("writing film list: %w", err)
		}

		for _, f := range films {
			if err := w.Write([]string{f.Title, f.Year}); err != nil {
				return fmt.Errorf("writing film list: %w", err)
			}
		}

		w.Flush()

		if err := w.Error(); err != nil {
			return fmt.Errorf("writing film list: %w", err)
		}
	} else {
		for _, f := range films {
			sb.WriteString(f.String())
			sb.WriteByte('\n')
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("writing film list: %w", err)
	}

	return nil
}
