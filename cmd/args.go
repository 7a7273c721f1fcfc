package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"boardbot/pkg/tokenize"

	"github.com/spf13/cobra"
)

var argsRaw bool

var argsCmd = &cobra.Command{
	Use:   "args <text>",
	Short: "Show how a chat line splits into arguments",
	Long:  "Prints the argument list the bot would see for a line of chat text, one quoted argument per line.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.Join(args, " ")

		var tokens []string
		if argsRaw {
			tokens = tokenize.TokenizeRaw(text)
		} else {
			tokens = tokenize.Tokenize(text)
		}

		fmt.Fprint(cmd.OutOrStdout(), formatTokens(tokens))
	},
}

func init() {
	argsCmd.Flags().BoolVar(&argsRaw, "raw", false, "Skip trimming and keep tabs inside degraded quotes")
	rootCmd.AddCommand(argsCmd)
}

func formatTokens(tokens []string) string {
	if len(tokens) == 0 {
		return "(no arguments)\n"
	}

	var out strings.Builder
	for i, token := range tokens {
		fmt.Fprintf(&out, "%d: %s\n", i, strconv.Quote(token))
	}
	return out.String()
}
