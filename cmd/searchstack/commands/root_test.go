package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "searchstack", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}
	for _, expected := range []string{"init", "preview", "apply", "destroy", "outputs", "version", "completion"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), 7)
}

func TestRoot_PersistentFlags(t *testing.T) {
	cmd := Root()

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "info", level.DefValue)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("json-logs"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("metrics-file"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("plain"))
}

func TestStackOptions_Interactive(t *testing.T) {
	origGlobal, origPlain, origTerminal := global, plain, isTerminal
	t.Cleanup(func() { global, plain, isTerminal = origGlobal, origPlain, origTerminal })

	tests := []struct {
		name     string
		terminal bool
		plain    bool
		json     bool
		want     bool
	}{
		{name: "terminal", terminal: true, want: true},
		{name: "pipe", terminal: false, want: false},
		{name: "plain flag", terminal: true, plain: true, want: false},
		{name: "json logs", terminal: true, json: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isTerminal = func() bool { return tt.terminal }
			plain = tt.plain
			global.JSONLogs = tt.json
			assert.Equal(t, tt.want, stackOptions("", false, false).Interactive)
		})
	}
}

func TestStackOptions_MergesPersistentFlags(t *testing.T) {
	orig, origPlain := global, plain
	t.Cleanup(func() { global, plain = orig, origPlain })

	cmd := Root()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--log-level", "debug", "--json-logs", "--metrics-file", "/tmp/m.prom"}))

	opts := stackOptions("prod.yaml", true, false)
	assert.Equal(t, "prod.yaml", opts.ConfigPath)
	assert.True(t, opts.Refresh)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.True(t, opts.JSONLogs)
	assert.Equal(t, "/tmp/m.prom", opts.MetricsFile)
}

func TestStackCommands_ConfigFlag(t *testing.T) {
	for _, cmd := range []*cobra.Command{Apply(), Preview(), Destroy(), Outputs()} {
		t.Run(cmd.Name(), func(t *testing.T) {
			flag := cmd.Flags().Lookup("config")
			require.NotNil(t, flag, "config flag should exist")
			assert.Equal(t, "c", flag.Shorthand)
			assert.NotNil(t, cmd.RunE)
		})
	}
}

func TestApplyAndPreview_RefreshFlag(t *testing.T) {
	for _, cmd := range []*cobra.Command{Apply(), Preview()} {
		flag := cmd.Flags().Lookup("refresh")
		require.NotNil(t, flag)
		assert.Equal(t, "false", flag.DefValue)
	}
}

func TestDestroy_ConfigFlagRequired(t *testing.T) {
	cmd := Destroy()

	flag := cmd.Flags().Lookup("config")
	require.NotNil(t, flag)
	_, required := flag.Annotations[cobra.BashCompOneRequiredFlag]
	assert.True(t, required)
	assert.Contains(t, cmd.Long, "WARNING")
}

func TestInit_OutputFlag(t *testing.T) {
	cmd := Init()

	flag := cmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "searchstack.yaml", flag.DefValue)
}

func TestOutputs_JSONFlag(t *testing.T) {
	flag := Outputs().Flags().Lookup("json")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestCompletion_Bash(t *testing.T) {
	root := Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "searchstack")
}

func TestCompletion_RejectsUnknownShell(t *testing.T) {
	root := Root()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})

	assert.Error(t, root.Execute())
}
