package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docqa", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, name := range []string{
		"ask", "chat", "conversation", "document", "embed", "feedback", "ingest",
		"mcp", "process", "search", "settings", "stats", "tasks", "version", "watch",
	} {
		assert.Contains(t, commandNames, name)
	}
}

func TestRootCmd_UserFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("user")
	require.NotNil(t, flag, "user flag should exist")
	assert.Equal(t, "u", flag.Shorthand)
}

func TestCommands_RequireServices(t *testing.T) {
	SetServices(Services{})

	tests := []struct {
		args    []string
		message string
	}{
		{[]string{"ask", "why?"}, "qa service not configured"},
		{[]string{"search", "refunds"}, "retriever not configured"},
		{[]string{"document", "list"}, "document service not configured"},
		{[]string{"ingest", "notes.txt"}, "file loader not configured"},
		{[]string{"stats"}, "qa service not configured"},
		{[]string{"tasks", "list"}, "scheduler not configured"},
		{[]string{"settings", "show"}, "settings service not configured"},
		{[]string{"chat"}, "qa service not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			_, err := execute(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("  a\n\tb   c "))

	long := ""
	for range 50 {
		long += "word "
	}
	got := snippet(long)
	assert.Len(t, []rune(got), snippetLength)
	assert.True(t, len(got) > 3 && got[len(got)-3:] == "...")
}
