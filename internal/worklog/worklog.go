// Package worklog holds the per-run progress and thinking buffers shown
// while a run streams.
package worklog

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLogSize caps a run's worklog length in characters. Overflow is trimmed
// from the front: a human operator cares about recent context, not the
// opening lines of a long tool loop.
const MaxLogSize = 16000

var trailingSpace = regexp.MustCompile(`[ \t]+\n`)

// Normalize collapses whitespace runs before newlines and trims the ends.
func Normalize(text string) string {
	return strings.TrimSpace(trailingSpace.ReplaceAllString(text, "\n"))
}

// Store keeps one worklog and one thinking transcript per live run.
type Store struct {
	logs     map[string]string
	lastLine map[string]string
	thinking map[string]string
}

func NewStore() *Store {
	return &Store{
		logs:     make(map[string]string),
		lastLine: make(map[string]string),
		thinking: make(map[string]string),
	}
}

// Append normalizes text and appends it to the run's worklog. Empty lines
// and lines identical to the immediately preceding entry are dropped;
// upstream lifecycle events love to repeat themselves. It returns the
// updated log and whether anything changed.
func (s *Store) Append(runID, text string) (string, bool) {
	line := Normalize(text)
	if line == "" || line == s.lastLine[runID] {
		return s.logs[runID], false
	}

	log := s.logs[runID]
	if log != "" {
		log += "\n"
	}
	log += line

	if utf8.RuneCountInString(log) > MaxLogSize {
		r := []rune(log)
		log = string(r[len(r)-MaxLogSize:])
	}

	s.logs[runID] = log
	s.lastLine[runID] = line
	return log, true
}

// Log returns the current worklog for a run.
func (s *Store) Log(runID string) string {
	return s.logs[runID]
}

// AppendThinking accumulates a reasoning fragment for a run. No dedup, no
// cap beyond natural message size.
func (s *Store) AppendThinking(runID, fragment string) {
	if fragment == "" {
		return
	}
	s.thinking[runID] += fragment
}

// Thinking returns the accumulated reasoning transcript for a run.
func (s *Store) Thinking(runID string) string {
	return s.thinking[runID]
}

// ResetThinking clears the thinking transcript, keeping the worklog. Called
// on a fresh run start and on completion.
func (s *Store) ResetThinking(runID string) {
	delete(s.thinking, runID)
}

// Drop removes all buffer state for a run.
func (s *Store) Drop(runID string) {
	delete(s.logs, runID)
	delete(s.lastLine, runID)
	delete(s.thinking, runID)
}
