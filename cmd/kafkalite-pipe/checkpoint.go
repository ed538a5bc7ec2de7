// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// checkpointStore persists the last confirmed line number and the total
// number of failed deliveries. The file holds "<line> <failures>\n".
type checkpointStore struct {
	path     string
	line     int64
	failures int64
}

// openCheckpoint reads an existing checkpoint. A missing file starts at
// line 0; an empty path disables persistence.
func openCheckpoint(path string) (*checkpointStore, error) {
	s := &checkpointStore{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return nil, fmt.Errorf("checkpoint %s: malformed content %q", path, data)
	}
	if s.line, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	if s.failures, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return s, nil
}

// save records a poll result. It is used as the producer's Checkpoint.
func (s *checkpointStore) save(line int64, failures int) error {
	s.line = line
	s.failures += int64(failures)
	if s.path == "" {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "%d %d\n", s.line, s.failures); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
