package boinc

import (
	"strings"
	"sync"

	"boincstats/lib/textutil"
)

// Canonical task states, in their default ordinal order.
const (
	StateInProgress        = "in progress"
	StatePendingValidation = "pending validation"
	StateValid             = "valid"
	StateInvalid           = "invalid"
	StateError             = "error"
	StateAborted           = "aborted"
)

var knownStates = []string{
	StateInProgress,
	StatePendingValidation,
	StateValid,
	StateInvalid,
	StateError,
	StateAborted,
}

// stateAliases maps the lower cased wording of the sites onto the canonical
// labels.
var stateAliases = map[string]string{
	"in progress":                       StateInProgress,
	"in progress (server)":              StateInProgress,
	"pending":                           StatePendingValidation,
	"pending validation":                StatePendingValidation,
	"pending verification":              StatePendingValidation,
	"completed, waiting for validation": StatePendingValidation,
	"validation pending":                StatePendingValidation,
	"valid":                             StateValid,
	"completed and validated":           StateValid,
	"success":                           StateValid,
	"invalid":                           StateInvalid,
	"completed, marked as invalid":      StateInvalid,
	"error":                             StateError,
	"error while computing":             StateError,
	"error while downloading":           StateError,
	"computation error":                 StateError,
	"timed out - no response":           StateError,
	"no reply":                          StateError,
	"client error":                      StateError,
	"validate error":                    StateInvalid,
	"didn't need":                       StateAborted,
	"too late":                          StateError,
	"aborted":                           StateAborted,
	"aborted by user":                   StateAborted,
	"cancelled by server":               StateAborted,
	"user aborted":                      StateAborted,
}

// NormalizeState maps a state as shown by a site to its canonical label.
// Unknown states are cleaned and lower cased but otherwise kept.
func NormalizeState(raw string) string {
	label := strings.ToLower(textutil.CleanText(raw))
	if canonical, ok := stateAliases[label]; ok {
		return canonical
	}
	return label
}

// StateSet is an open enumeration of task states. Labels get a stable
// ordinal in the order they were first seen, states a site reports that
// are not known yet are added on first use. It is safe for concurrent use.
type StateSet struct {
	lock     sync.Mutex
	labels   []string
	ordinals map[string]int
}

func NewStateSet(labels ...string) *StateSet {
	s := &StateSet{ordinals: map[string]int{}}
	for _, l := range labels {
		s.Index(l)
	}
	return s
}

// DefaultStates is a StateSet seeded with the canonical states.
func DefaultStates() *StateSet {
	return NewStateSet(knownStates...)
}

// Index returns the ordinal of a label, inserting it if absent.
func (s *StateSet) Index(label string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ordinals == nil {
		s.ordinals = map[string]int{}
	}
	if idx, ok := s.ordinals[label]; ok {
		return idx
	}
	idx := len(s.labels)
	s.labels = append(s.labels, label)
	s.ordinals[label] = idx
	return idx
}

// Lookup returns the ordinal of a label without inserting it.
func (s *StateSet) Lookup(label string) (int, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	idx, ok := s.ordinals[label]
	return idx, ok
}

func (s *StateSet) Labels() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Normalize maps a raw state to its canonical label and registers it.
func (s *StateSet) Normalize(raw string) string {
	label := NormalizeState(raw)
	if label == "" {
		return ""
	}
	s.Index(label)
	return label
}
