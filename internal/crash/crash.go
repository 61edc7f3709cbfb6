/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a logged error, a report file
// and exit status 2.
package crash

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "textbehind/internal/log"
	"textbehind/internal/version"
)

var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

// Context describes what was running when the panic happened. The fields
// are filled in as the command progresses; all are optional.
type Context struct {
	Dir     string // where to write the report; the temp dir when empty
	Command string
	Scene   string
}

// Recover must be deferred directly:
//
//	cc := &crash.Context{Command: "compose"}
//	defer crash.Recover(cc)
func Recover(cc *Context) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	path, err := writeReport(cc, r, stack)
	if err != nil {
		l.Error("write crash report", slog.Any("err", err), slog.String("path", path))
		_, _ = fmt.Fprintf(stderr, "A fatal error occurred: %v\n", r)
	} else {
		_, _ = fmt.Fprintf(stderr, "A fatal error occurred. A crash report was saved to: %s\n", path)
	}
	_, _ = fmt.Fprintf(stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(cc *Context, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if cc != nil && cc.Dir != "" {
		dir = cc.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, err
	}
	now := time.Now()
	path := filepath.Join(dir, "crash-"+now.Format("20060102-150405")+".log")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "textbehind crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if cc != nil {
		if cc.Command != "" {
			fmt.Fprintf(&buf, "Command: %s\n", cc.Command)
		}
		if cc.Scene != "" {
			fmt.Fprintf(&buf, "Scene: %s\n", cc.Scene)
		}
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	return path, nil
}
