package dedup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// Predicate reports whether an alert is subject to build-system
// deduplication.
type Predicate struct {
	receiverContains []string
	alertnamePattern *regexp.Regexp
}

// NewPredicate compiles the configured build-system matcher. An empty
// receiverContains and empty alertnamePattern fall back to the
// documented default (`_receiver` contains "jenkins", case-insensitive,
// or alertname matches `.*[Jj]enkins.*`).
func NewPredicate(receiverContains []string, alertnamePattern string) (*Predicate, error) {
	if len(receiverContains) == 0 {
		receiverContains = []string{"jenkins"}
	}
	if alertnamePattern == "" {
		alertnamePattern = `.*[Jj]enkins.*`
	}

	re, err := regexp.Compile(alertnamePattern)
	if err != nil {
		return nil, fmt.Errorf("compile alertname_pattern: %w", err)
	}

	lowered := make([]string, len(receiverContains))
	for i, s := range receiverContains {
		lowered[i] = strings.ToLower(s)
	}

	return &Predicate{receiverContains: lowered, alertnamePattern: re}, nil
}

// Matches reports whether a qualifies for dedup handling.
func (p *Predicate) Matches(a *alert.Alert) bool {
	receiver := strings.ToLower(a.Receiver())
	for _, substr := range p.receiverContains {
		if substr != "" && strings.Contains(receiver, substr) {
			return true
		}
	}
	return p.alertnamePattern.MatchString(a.Name())
}
