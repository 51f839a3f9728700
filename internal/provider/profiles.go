package provider

import (
	"strings"

	"github.com/samber/lo"

	"github.com/dpetran/evtap/internal/domain"
)

// DefaultProfileName is the profile used when the caller names none.
// Policy, not contract: overridable through configuration.
const DefaultProfileName = "runtime-basic"

// Profile is a curated, named provider set for a common tracing scenario.
type Profile struct {
	Name        string
	Description string
	Providers   Set
}

// catalog is the fixed set of known profiles. Lookup is by exact
// case-insensitive name match.
var catalog = []Profile{
	{
		Name:        "runtime-basic",
		Description: "Lightweight runtime diagnostics: GC, loader, and exception events",
		Providers: Set{
			{Name: "Runtime", Keywords: 0x4c14fccbd, Level: LevelVerbose},
			{Name: "RuntimePrivate", Keywords: 0x4002000b, Level: LevelVerbose},
		},
	},
	{
		Name:        "cpu-sampling",
		Description: "Managed stack sampling for CPU profiling",
		Providers: Set{
			{Name: "SampleProfiler", Keywords: 0x0, Level: 4},
			{Name: "Runtime", Keywords: 0x14c14fccbd, Level: 4},
		},
	},
	{
		Name:        "gc-verbose",
		Description: "Verbose garbage collector events including allocation ticks",
		Providers: Set{
			{Name: "Runtime", Keywords: 0x8000C14FCCBD, Level: LevelVerbose},
		},
	},
}

// Profiles returns the catalog in its fixed order.
func Profiles() []Profile {
	out := make([]Profile, len(catalog))
	copy(out, catalog)
	return out
}

// LookupProfile resolves a profile by case-insensitive name. Fails with a
// ConfigError naming the unknown profile.
func LookupProfile(name string) (*Profile, error) {
	prof, ok := lo.Find(catalog, func(p Profile) bool {
		return strings.EqualFold(p.Name, name)
	})
	if !ok {
		return nil, domain.Configf("unknown profile %q (run 'evtap profiles' to list available profiles)", name)
	}
	return &prof, nil
}
