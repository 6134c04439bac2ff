// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package sshconfig

import (
	"strings"
)

// line is one physical line of the config file.
type line struct {
	raw     string
	keyword string // lower-case; empty for blank and comment lines
	value   string // unquoted argument
}

func (l line) blank() bool { return strings.TrimSpace(l.raw) == "" }

// block is a Host or Match section: its header line and every line up to
// the next header. The preamble before the first header is not a block.
type block struct {
	start, end int // [start, end) into File.lines; start is the header
	keyword    string
	pattern    string
}

// File is a parsed config file that can be rendered back losslessly.
type File struct {
	lines           []line
	trailingNewline bool
}

// Parse splits data into lines and classifies each one.
func Parse(data []byte) *File {
	text := string(data)
	f := &File{trailingNewline: strings.HasSuffix(text, "\n")}
	text = strings.TrimSuffix(text, "\n")
	if text == "" && !f.trailingNewline {
		return f
	}
	for _, raw := range strings.Split(text, "\n") {
		f.lines = append(f.lines, parseLine(raw))
	}
	return f
}

func parseLine(raw string) line {
	l := line{raw: raw}
	s := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
	if s == "" || strings.HasPrefix(s, "#") {
		return l
	}
	i := strings.IndexAny(s, " \t=")
	if i < 0 {
		l.keyword = strings.ToLower(s)
		return l
	}
	l.keyword = strings.ToLower(s[:i])
	rest := strings.TrimSpace(s[i:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))
	l.value = unquote(rest)
	return l
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// quote renders a value, quoting it when it contains whitespace.
func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

func isHeader(keyword string) bool { return keyword == "host" || keyword == "match" }

func (f *File) blocks() []block {
	var out []block
	for i, l := range f.lines {
		if !isHeader(l.keyword) {
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].end = i
		}
		out = append(out, block{start: i, end: len(f.lines), keyword: l.keyword, pattern: l.value})
	}
	return out
}

// managed reports whether b is a "Host *" block.
func (b block) managed() bool { return b.keyword == "host" && b.pattern == "*" }

// Bytes renders the file.
func (f *File) Bytes() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	raws := make([]string, len(f.lines))
	for i, l := range f.lines {
		raws[i] = l.raw
	}
	out := strings.Join(raws, "\n")
	if f.trailingNewline {
		out += "\n"
	}
	return []byte(out)
}

// HasEntry reports whether a "Host *" block carries IdentityFile path.
func (f *File) HasEntry(path string) bool {
	for _, b := range f.blocks() {
		if !b.managed() {
			continue
		}
		for _, l := range f.lines[b.start+1 : b.end] {
			if l.keyword == "identityfile" && l.value == path {
				return true
			}
		}
	}
	return false
}

// IdentityFiles returns the IdentityFile values of every "Host *" block.
func (f *File) IdentityFiles() []string {
	var out []string
	for _, b := range f.blocks() {
		if !b.managed() {
			continue
		}
		for _, l := range f.lines[b.start+1 : b.end] {
			if l.keyword == "identityfile" {
				out = append(out, l.value)
			}
		}
	}
	return out
}

// RemoveEntry drops every IdentityFile line whose value equals path. A
// "Host *" block left without directives is dropped as a whole along with
// one blank separator line. It reports whether anything changed.
func (f *File) RemoveEntry(path string) bool {
	drop := make([]bool, len(f.lines))
	changed := false
	for i, l := range f.lines {
		if l.keyword == "identityfile" && l.value == path {
			drop[i] = true
			changed = true
		}
	}
	if !changed {
		return false
	}

	for _, b := range f.blocks() {
		if !b.managed() || !touched(drop, b) {
			continue
		}
		empty := true
		for i := b.start + 1; i < b.end; i++ {
			if !drop[i] && !f.lines[i].blank() {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		trailingBlank := false
		for i := b.start; i < b.end; i++ {
			if i > b.start && f.lines[i].blank() {
				trailingBlank = true
			}
			drop[i] = true
		}
		// The separator blank line belongs to whichever side still has one.
		if !trailingBlank && b.start > 0 && f.lines[b.start-1].blank() && !drop[b.start-1] {
			drop[b.start-1] = true
		}
	}

	kept := f.lines[:0:0]
	for i, l := range f.lines {
		if !drop[i] {
			kept = append(kept, l)
		}
	}
	f.lines = kept
	return true
}

func touched(drop []bool, b block) bool {
	for i := b.start + 1; i < b.end; i++ {
		if drop[i] {
			return true
		}
	}
	return false
}

// entryBlock renders the block appended for a new entry, including the
// leading blank line.
func entryBlock(path string) string {
	return "\nHost *\n  IdentityFile " + quote(path) + "\n"
}
