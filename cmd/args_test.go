package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{name: "empty", tokens: nil, want: "(no arguments)\n"},
		{name: "quoted", tokens: []string{"say", "hello world"}, want: "0: \"say\"\n1: \"hello world\"\n"},
		{name: "explicit empty", tokens: []string{""}, want: "0: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTokens(tt.tokens); got != tt.want {
				t.Fatalf("formatTokens(%#v) = %q, want %q", tt.tokens, got, tt.want)
			}
		})
	}
}

func TestArgsCommandPrintsTokens(t *testing.T) {
	var out bytes.Buffer
	argsCmd.SetOut(&out)
	t.Cleanup(func() { argsCmd.SetOut(nil) })

	argsCmd.Run(argsCmd, []string{`add "buy milk"`, "today"})

	require.Equal(t, "0: \"add\"\n1: \"buy milk\"\n2: \"today\"\n", out.String())
}
