package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var encryptOut string

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt submissions, files and replies",
}

var encryptSubmissionCmd = &cobra.Command{
	Use:   "submission [message]",
	Short: "Encrypt a source message for the journalist key",
	Long:  `Encrypt a source's message for the journalist key only. The message is taken from the argument, or from stdin when omitted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEncryptSubmission,
}

var encryptFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Encrypt a file for the journalist key",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncryptFile,
}

var encryptReplyCmd = &cobra.Command{
	Use:   "reply <identity> [message]",
	Short: "Encrypt a journalist reply for a source",
	Long:  `Encrypt a reply for both the source's key and the journalist key, so either side can decrypt it. The message is taken from the argument, or from stdin when omitted.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runEncryptReply,
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.AddCommand(encryptSubmissionCmd)
	encryptCmd.AddCommand(encryptFileCmd)
	encryptCmd.AddCommand(encryptReplyCmd)

	encryptCmd.PersistentFlags().StringVarP(&encryptOut, "out", "o", "", "ciphertext output path (required)")
	_ = encryptCmd.MarkPersistentFlagRequired("out")
}

func messageFromArgsOrStdin(args []string, index int) (string, error) {
	if len(args) > index {
		return args[index], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message from stdin: %w", err)
	}
	return string(data), nil
}

func runEncryptSubmission(cmd *cobra.Command, args []string) error {
	message, err := messageFromArgsOrStdin(args, 0)
	if err != nil {
		return err
	}
	if err := keyManager.EncryptSubmission(message, encryptOut); err != nil {
		return err
	}
	fmt.Printf("Ciphertext written to %s\n", encryptOut)
	return nil
}

func runEncryptFile(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer file.Close()

	if err := keyManager.EncryptFile(file, encryptOut); err != nil {
		return err
	}
	fmt.Printf("Ciphertext written to %s\n", encryptOut)
	return nil
}

func runEncryptReply(cmd *cobra.Command, args []string) error {
	message, err := messageFromArgsOrStdin(args, 1)
	if err != nil {
		return err
	}
	if err := keyManager.EncryptReply(args[0], message, encryptOut); err != nil {
		return err
	}
	fmt.Printf("Ciphertext written to %s\n", encryptOut)
	return nil
}
