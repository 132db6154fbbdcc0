package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show key manager status",
	Long:  "Display the journalist key, cache connectivity and configuration in use.",
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	fmt.Println("Key Manager Status")
	fmt.Println("==================")

	// Construction already verified the journalist key exists.
	fmt.Printf("Journalist Key: %s (%s)\n", keyManager.JournalistKeyFingerprint(), ok("imported"))

	if err := keyManager.CachePing(); err != nil {
		fmt.Printf("Cache: %s - %v\n", fail("UNREACHABLE"), err)
	} else {
		fmt.Printf("Cache: %s\n", ok("reachable"))
	}

	return nil
}
