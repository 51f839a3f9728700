package provider

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/dpetran/evtap/internal/domain"
)

// Default enablement for providers given without keywords or level.
const (
	DefaultKeywords = uint64(0xFFFFFFFFFFFFFFFF)
	LevelVerbose    = uint8(5)
)

// Provider identifies an event source to enable in a trace session.
// Two providers are considered the same when their names match
// case-insensitively; keywords, level, and args never participate in
// identity.
type Provider struct {
	Name     string
	Keywords uint64
	Level    uint8
	Args     map[string]string
}

// Is reports whether p and other name the same provider.
func (p Provider) Is(other Provider) bool {
	return strings.EqualFold(p.Name, other.Name)
}

// Set is an ordered sequence of providers with unique names. Built once per
// run by Merge and immutable afterward.
type Set []Provider

// Names returns the provider names in set order.
func (s Set) Names() []string {
	return lo.Map(s, func(p Provider, _ int) string { return p.Name })
}

// Parse parses a comma-separated provider specification string of the form
//
//	Name[:Keywords[:Level[:key=value;key=value]]]
//
// Keywords accept decimal or 0x-prefixed hex. An empty keywords or level
// field falls back to the defaults.
func Parse(spec string) (Set, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var set Set
	for _, entry := range strings.Split(spec, ",") {
		p, err := parseOne(strings.TrimSpace(entry))
		if err != nil {
			return nil, err
		}
		if lo.ContainsBy(set, p.Is) {
			return nil, domain.Configf("provider %q specified more than once", p.Name)
		}
		set = append(set, p)
	}
	return set, nil
}

func parseOne(entry string) (Provider, error) {
	parts := strings.SplitN(entry, ":", 4)
	if parts[0] == "" {
		return Provider{}, domain.Configf("provider entry %q has no name", entry)
	}

	p := Provider{
		Name:     parts[0],
		Keywords: DefaultKeywords,
		Level:    LevelVerbose,
	}

	if len(parts) > 1 && parts[1] != "" {
		kw, err := strconv.ParseUint(parts[1], 0, 64)
		if err != nil {
			return Provider{}, domain.Configf("provider %s: invalid keywords %q", p.Name, parts[1])
		}
		p.Keywords = kw
	}
	if len(parts) > 2 && parts[2] != "" {
		lvl, err := strconv.ParseUint(parts[2], 10, 8)
		if err != nil || lvl > 5 {
			return Provider{}, domain.Configf("provider %s: invalid level %q (expected 0-5)", p.Name, parts[2])
		}
		p.Level = uint8(lvl)
	}
	if len(parts) > 3 && parts[3] != "" {
		args, err := parseArgs(parts[3])
		if err != nil {
			return Provider{}, domain.Configf("provider %s: %v", p.Name, err)
		}
		p.Args = args
	}
	return p, nil
}

func parseArgs(raw string) (map[string]string, error) {
	args := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, domain.Configf("invalid key=value argument %q", pair)
		}
		args[key] = value
	}
	return args, nil
}

// Merge combines an explicitly requested provider list with a profile's
// providers. Every explicit provider is kept as given. A profile provider is
// appended only when no explicit provider shares its name, so explicit
// entries win outright; profile entries only fill gaps. Ordering is explicit
// providers first (input order), then surviving profile providers (profile
// order).
func Merge(explicit Set, prof *Profile) (Set, error) {
	merged := make(Set, 0, len(explicit))
	merged = append(merged, explicit...)

	if prof != nil {
		for _, p := range prof.Providers {
			if !lo.ContainsBy(explicit, p.Is) {
				merged = append(merged, p)
			}
		}
	}

	if len(merged) == 0 {
		return nil, domain.Configf("no providers to enable: specify --providers or a non-empty profile")
	}
	return merged, nil
}
