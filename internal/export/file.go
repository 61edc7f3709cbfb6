/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultPrefix names exported files when no prefix is configured.
const DefaultPrefix = "text-behind-image"

// FileName returns "<prefix>-<yyyymmdd-hhmmss.mmm>.<ext>".
func FileName(prefix string, f Format, now time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "-" + now.Format("20060102-150405.000") + "." + f.Ext()
}

// UniquePath joins dir and name, appending -1, -2, ... before the extension
// until the path does not exist.
func UniquePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 10000; i++ {
		cand := name
		if i > 0 {
			cand = stem + "-" + strconv.Itoa(i) + ext
		}
		p := filepath.Join(dir, cand)
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			return p, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// WriteFile encodes img and stores it in dir under a fresh name derived from
// prefix and the current time. The file appears atomically: the encoding goes
// to a temp file that is synced and renamed into place.
func WriteFile(dir, prefix string, img image.Image, f Format, opt Options) (string, error) {
	return WriteFileCommit(dir, prefix, img, f, opt, nil)
}

// Commit decides whether a fully written export is published. It must call
// publish to move the file into place, or return an error to discard it.
type Commit func(publish func() error) error

// WriteFileCommit is WriteFile with a last check before the rename. A nil
// commit always publishes. An error returned by commit is passed through
// unwrapped and leaves no file behind.
func WriteFileCommit(dir, prefix string, img image.Image, f Format, opt Options, commit Commit) (string, error) {
	b, err := encodeBytes(img, f, opt)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	dst, err := UniquePath(dir, FileName(prefix, f, time.Now()))
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", f, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync %s: %w", f, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close %s: %w", f, err)
	}
	publish := func() error {
		if err := os.Rename(tmpName, dst); err != nil {
			return fmt.Errorf("rename into place: %w", err)
		}
		return nil
	}
	if commit == nil {
		commit = func(p func() error) error { return p() }
	}
	if err := commit(publish); err != nil {
		cleanup()
		return "", err
	}
	return dst, nil
}
