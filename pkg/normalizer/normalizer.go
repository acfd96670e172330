// Package normalizer rebuilds discrete records from the bullet text produced
// by table extraction and flattens them into "key: value" lines with a blank
// line between records.
package normalizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	recordStart = regexp.MustCompile(`^- \d+:$`)
	pageHeader  = regexp.MustCompile(`^Page \d+:$`)
	bulletPair  = regexp.MustCompile(`^[•\-*]\s*(.*?):\s*(.*)$`)
	barePair    = regexp.MustCompile(`^([^•\-*\s][^•]*?):\s*(.*)$`)
	bulletKey   = regexp.MustCompile(`^- (.*)$`)
	nestedPair  = regexp.MustCompile(`•\s*(.*?):\s*(.*)`)
)

// Record is an ordered key/value mapping. Setting an existing key replaces
// its value without moving it.
type Record struct {
	keys   []string
	values map[string]string
}

func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

func (r *Record) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *Record) Len() int {
	return len(r.keys)
}

// Lines returns the record as "key: value" lines in insertion order.
func (r *Record) Lines() []string {
	lines := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, r.values[k]))
	}
	return lines
}

type normalizer struct {
	out     []string
	current *Record
}

func (n *normalizer) flush() {
	if n.current.Len() == 0 {
		return
	}
	n.out = append(n.out, n.current.Lines()...)
	n.out = append(n.out, "")
	n.current = NewRecord()
}

func (n *normalizer) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || pageHeader.MatchString(line) {
		return
	}

	if recordStart.MatchString(line) {
		n.flush()
		return
	}

	if m := bulletPair.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) != "" {
		n.current.Set(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
		return
	}

	if m := barePair.FindStringSubmatch(line); m != nil {
		n.current.Set(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
		return
	}

	if m := bulletKey.FindStringSubmatch(line); m != nil {
		n.current.Set(strings.TrimSpace(m[1]), "")
		return
	}

	// "label • key: value" fragments continue the open record
	if n.current.Len() > 0 && strings.Contains(line, "•") {
		if m := nestedPair.FindStringSubmatch(line); m != nil {
			n.current.Set(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
		}
	}
}

// Normalize runs the record state machine over raw lines and returns the
// flattened text. Each record ends with a blank line.
func Normalize(lines []string) string {
	n := &normalizer{current: NewRecord()}
	for _, l := range lines {
		n.line(l)
	}
	n.flush()
	return strings.Join(n.out, "\n")
}

// NormalizeFile reads inPath, normalizes it and writes the result to outPath.
func NormalizeFile(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}

	text := Normalize(strings.Split(string(data), "\n"))
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}
