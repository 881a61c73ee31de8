package observer

import (
	"fmt"
	"strings"
)

// Reception decides whether an observer is notified when no instance of its
// declaring bean exists yet.
type Reception int

const (
	// ReceptionAlways notifies the observer unconditionally.
	ReceptionAlways Reception = iota
	// ReceptionIfExists notifies the observer only if an instance of its bean
	// class already exists in the container.
	ReceptionIfExists
)

var receptionNames = map[Reception]string{
	ReceptionAlways:   "always",
	ReceptionIfExists: "if_exists",
}

func (r Reception) IsValid() bool {
	_, ok := receptionNames[r]
	return ok
}

func (r Reception) String() string {
	if name, ok := receptionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reception(%d)", int(r))
}

func (r Reception) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid reception %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Reception) UnmarshalText(b []byte) error {
	parsed, err := ParseReception(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseReception accepts the names produced by String, case-insensitively.
func ParseReception(s string) (Reception, error) {
	key := normalizeEnum(s)
	for r, name := range receptionNames {
		if normalizeEnum(name) == key {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown reception %q", s)
}

// TransactionPhase is the point relative to a transaction boundary at which a
// transactional observer is notified.
type TransactionPhase int

const (
	// InProgress observers are notified immediately.
	InProgress TransactionPhase = iota
	BeforeCompletion
	AfterCompletion
	AfterFailure
	AfterSuccess
)

var phaseNames = map[TransactionPhase]string{
	InProgress:       "in_progress",
	BeforeCompletion: "before_completion",
	AfterCompletion:  "after_completion",
	AfterFailure:     "after_failure",
	AfterSuccess:     "after_success",
}

func (p TransactionPhase) IsValid() bool {
	_, ok := phaseNames[p]
	return ok
}

// IsTransactional reports whether the phase defers notification to a
// transaction boundary.
func (p TransactionPhase) IsTransactional() bool {
	return p != InProgress
}

func (p TransactionPhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("TransactionPhase(%d)", int(p))
}

func (p TransactionPhase) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid transaction phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *TransactionPhase) UnmarshalText(b []byte) error {
	parsed, err := ParseTransactionPhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseTransactionPhase accepts the names produced by String as well as the
// upper-case constant style (AFTER_SUCCESS) and hyphenated forms.
func ParseTransactionPhase(s string) (TransactionPhase, error) {
	key := normalizeEnum(s)
	for p, name := range phaseNames {
		if normalizeEnum(name) == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction phase %q", s)
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
