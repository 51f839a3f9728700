package cli

import (
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/dpetran/evtap/internal/provider"
)

// ProfilesCmd lists the predefined provider profiles.
type ProfilesCmd struct{}

// Run executes the profiles command.
func (c *ProfilesCmd) Run(globals *Globals) error {
	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Profile", "Providers", "Description")
	for _, prof := range provider.Profiles() {
		name := prof.Name
		if strings.EqualFold(name, globals.Config.Defaults.Profile) {
			name += " (default)"
		}
		if err := table.Append([]string{name, strings.Join(prof.Providers.Names(), ", "), prof.Description}); err != nil {
			return err
		}
	}
	return table.Render()
}
