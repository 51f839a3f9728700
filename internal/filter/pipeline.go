package filter

import (
	"regexp"

	"github.com/dpetran/evtap/internal/domain"
	"github.com/dpetran/evtap/internal/trace"
)

// Pipeline applies optional include and exclude patterns to decoded events
// before they reach the sink. A nil pattern matches everything.
type Pipeline struct {
	Include *regexp.Regexp
	Exclude *regexp.Regexp
}

// New compiles the given patterns. Empty strings disable the corresponding
// check.
func New(include, exclude string) (*Pipeline, error) {
	p := &Pipeline{}
	if include != "" {
		re, err := regexp.Compile(include)
		if err != nil {
			return nil, domain.Configf("invalid --pattern regex: %v", err)
		}
		p.Include = re
	}
	if exclude != "" {
		re, err := regexp.Compile(exclude)
		if err != nil {
			return nil, domain.Configf("invalid --exclude regex: %v", err)
		}
		p.Exclude = re
	}
	return p, nil
}

// Match reports whether the event should be kept. Patterns are tested
// against the event name and message.
func (p *Pipeline) Match(ev domain.Event) bool {
	if p.Include != nil && !p.Include.MatchString(ev.Name) && !p.Include.MatchString(ev.Message) {
		return false
	}
	if p.Exclude != nil && (p.Exclude.MatchString(ev.Name) || p.Exclude.MatchString(ev.Message)) {
		return false
	}
	return true
}

// sink drops filtered events before the wrapped sink sees them.
type sink struct {
	pipeline *Pipeline
	next     trace.EventSink
}

// Wrap returns next unchanged when the pipeline has no patterns, otherwise a
// sink that forwards only matching events.
func (p *Pipeline) Wrap(next trace.EventSink) trace.EventSink {
	if p.Include == nil && p.Exclude == nil {
		return next
	}
	return &sink{pipeline: p, next: next}
}

func (s *sink) Dispatch(ev domain.Event) error {
	if !s.pipeline.Match(ev) {
		return nil
	}
	return s.next.Dispatch(ev)
}

// Stats forwards to the wrapped sink so run outcomes keep their counters.
func (s *sink) Stats() (dispatched, suppressed int) {
	if st, ok := s.next.(interface{ Stats() (int, int) }); ok {
		return st.Stats()
	}
	return 0, 0
}
