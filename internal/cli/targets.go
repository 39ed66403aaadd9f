package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radnlp/tbiextract/internal/lexicon"
)

// targetsCmd lists the target groups available in the lexicon, for use with
// --include-targets and --exclude-targets.
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List available target groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadTargetItems()
		if err != nil {
			return err
		}
		for _, group := range lexicon.Groups(items) {
			fmt.Println(group)
		}
		return nil
	},
}

func loadTargetItems() ([]lexicon.Item, error) {
	if targetsFile != "" {
		return lexicon.LoadFile(targetsFile)
	}
	return lexicon.DefaultTargets()
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.Flags().StringVar(&targetsFile, "targets-file", "", "lexical targets TSV (default: embedded lexicon)")
}
