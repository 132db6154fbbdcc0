package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <ciphertext-file>",
	Short: "Decrypt a reply with a source passphrase",
	Long:  `Decrypt a reply ciphertext using the source's passphrase and print the plaintext to stdout. The passphrase is read from the terminal and never stored.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDecrypt,
}

func init() {
	rootCmd.AddCommand(decryptCmd)
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	ciphertext, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	passphrase, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return err
	}

	plaintext, err := keyManager.DecryptReply(ciphertext, passphrase)
	if err != nil {
		return err
	}
	fmt.Print(plaintext)
	return nil
}
