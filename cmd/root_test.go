package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{
		"serve", "migrate", "load-areas", "load-resources", "load-facilities",
		"assign", "verify", "summary", "analyze",
	}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "citystrata", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCommands_RequiredFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]bool // flag name -> required
	}{
		{"load-areas", map[string]bool{"file": true, "city-field": false, "area-field": false, "source": false}},
		{"load-resources", map[string]bool{"kind": true, "file": true, "sheet": false, "source": false, "reassign": false}},
		{"load-facilities", map[string]bool{"types": false}},
		{"assign", map[string]bool{"dry-run": false}},
		{"verify", map[string]bool{"fail-on-inconsistency": false, "json": false}},
		{"summary", map[string]bool{"area": false, "json": false}},
		{"analyze", map[string]bool{"evacuate": false, "resources": false, "scenario": false, "file": false, "xlsx": false, "json": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{tt.name})
			require.NoError(t, err)
			require.Equal(t, tt.name, cmd.Name())

			for name, required := range tt.flags {
				f := cmd.Flags().Lookup(name)
				require.NotNil(t, f, "missing --%s", name)
				_, marked := f.Annotations["cobra_annotation_bash_completion_one_required_flag"]
				assert.Equal(t, required, marked, "--%s required", name)
			}
		})
	}
}

func TestLoadFacilities_TypesFlag(t *testing.T) {
	f := loadFacilitiesCmd.Flags().Lookup("types")
	require.NotNil(t, f)
	assert.Equal(t, "stringSlice", f.Value.Type())
}
