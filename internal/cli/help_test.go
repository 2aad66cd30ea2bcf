package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

//nolint:paralleltest // reads the shared command tree
func TestCommandsAreDocumented(t *testing.T) {
	walkCommands(rootCmd, func(c *cobra.Command) {
		if c.Hidden || c.Name() == "help" {
			return
		}
		assert.NotEmpty(t, c.Short, "%s has no short description", c.CommandPath())
		assert.NotEmpty(t, c.Long, "%s has no long description", c.CommandPath())
		if !c.HasSubCommands() {
			assert.Contains(t, c.Long, "Example:", "%s has no example", c.CommandPath())
		}
	})
}

func TestEnrichParentLongListsSubcommands(t *testing.T) {
	t.Parallel()

	parent := &cobra.Command{Use: "parent", Long: "Parent command."}
	parent.AddCommand(
		&cobra.Command{Use: "alpha", Short: "First child", Run: func(*cobra.Command, []string) {}},
		&cobra.Command{Use: "beta", Short: "Second child", Run: func(*cobra.Command, []string) {}},
	)

	enrichParentLong(parent)

	assert.True(t, strings.HasPrefix(parent.Long, "Parent command.\n\nSubcommands:\n"))
	assert.Contains(t, parent.Long, "alpha")
	assert.Contains(t, parent.Long, "Second child")

	leaf := &cobra.Command{Use: "leaf", Long: "Leaf."}
	enrichParentLong(leaf)
	assert.Equal(t, "Leaf.", leaf.Long)
}
