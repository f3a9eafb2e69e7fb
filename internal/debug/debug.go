// Package debug implements an opt-in, environment-variable gated debug
// logger for the kvfs engine. When none of KVFS_DEBUG_LOG, KVFS_DEBUG_FUNCS
// or KVFS_DEBUG_FILES is set, Log costs a single boolean check.
package debug

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// state is built once from the environment at package init.
type state struct {
	enabled  bool
	file     *log.Logger
	funcTags map[string]bool
	fileTags map[string]bool
}

var current = build()

func build() state {
	var s state

	if name := os.Getenv("KVFS_DEBUG_LOG"); name != "" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvfs: cannot open debug log %q: %v\n", name, err)
			os.Exit(2)
		}
		s.file = log.New(f, "", log.LstdFlags)
		fmt.Fprintf(os.Stderr, "kvfs debug log: %s\n", name)
	}

	s.funcTags = tagSet("KVFS_DEBUG_FUNCS", false)
	s.fileTags = tagSet("KVFS_DEBUG_FILES", true)

	s.enabled = s.file != nil || len(s.funcTags) > 0 || len(s.fileTags) > 0
	if s.enabled {
		fmt.Fprintln(os.Stderr, "kvfs debug enabled")
	}
	return s
}

// tagSet parses a comma-separated KVFS_DEBUG_* value into a glob->bool
// filter table. A leading "-" negates a tag, "+" is the (default) positive
// form. When qualifyFile is set, a bare filename like "engine_save.go" is
// padded to "*/engine_save.go:*" so it matches regardless of directory or
// line number, the shape Log's own position string takes.
func tagSet(envVar string, qualifyFile bool) map[string]bool {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil
	}

	tags := make(map[string]bool)
	for _, entry := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(entry)
		want := true
		switch {
		case strings.HasPrefix(tag, "-"):
			want, tag = false, tag[1:]
		case strings.HasPrefix(tag, "+"):
			tag = tag[1:]
		}

		if qualifyFile && tag != "all" {
			if !strings.Contains(tag, "/") {
				tag = "*/" + tag
			}
			if !strings.Contains(tag, ":") {
				tag += ":*"
			}
		}

		if _, err := path.Match(tag, ""); err != nil {
			fmt.Fprintf(os.Stderr, "kvfs: invalid debug pattern %q: %v\n", tag, err)
			os.Exit(5)
		}
		tags[tag] = want
	}
	return tags
}

// matches reports whether key is selected by tags: an exact hit wins over a
// glob match, and the catch-all "all" tag is the final fallback.
func matches(tags map[string]bool, key string) bool {
	if want, ok := tags[key]; ok {
		return want
	}
	for pattern, want := range tags {
		if ok, _ := path.Match(pattern, key); ok {
			return want
		}
	}
	return tags["all"]
}

// Log writes a message tagged with the caller's position and goroutine
// number, if debug logging is enabled for that position, function, or the
// log file sink.
func Log(format string, args ...interface{}) {
	if !current.enabled {
		return
	}

	fn, pos := caller()
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	line := fmt.Sprintf("%s\t%s\t%d\t%s", pos, fn, goroutineID(), format)

	if current.file != nil {
		current.file.Printf(line, args...)
	}
	if matches(current.fileTags, pos) || matches(current.funcTags, fn) {
		fmt.Fprintf(os.Stderr, line, args...)
	}
}

// caller identifies the function and source position of Log's caller
// (two frames up: caller -> Log -> the package function that called Log),
// formatted as "dir/file.go:line".
func caller() (fn, pos string) {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", ""
	}
	dir, base := filepath.Base(filepath.Dir(file)), filepath.Base(file)
	if f := runtime.FuncForPC(pc); f != nil {
		fn = path.Base(f.Name())
	}
	return fn, fmt.Sprintf("%s/%s:%d", dir, base, line)
}

// goroutineID recovers the current goroutine's number from the
// "goroutine N " prefix runtime.Stack always writes.
func goroutineID() int {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	var id int
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}
