package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage source key pairs",
	Long:  `Manage per-source key pairs: generation, deletion, fingerprint lookup, public key export and cache repair.`,
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate <identity>",
	Short: "Generate a key pair for a source identity",
	Long: `Generate an RSA-4096 key pair for the given source identity. The
passphrase is read from the terminal and handed to the engine; it is
never stored. Generation can take several seconds.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeyGenerate,
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <identity>",
	Short: "Delete a source's key pair",
	Long:  `Delete the secret key, public key and all subkeys for the given source identity, and invalidate its cache entries. This operation is irreversible.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyDelete,
}

var keyFingerprintCmd = &cobra.Command{
	Use:   "fingerprint <identity>",
	Short: "Show a source's key fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyFingerprint,
}

var keyExportCmd = &cobra.Command{
	Use:   "export [identity]",
	Short: "Export a public key",
	Long:  `Export the armored public key for a source identity, or the journalist public key when no identity is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeyExport,
}

var keyRepairCmd = &cobra.Command{
	Use:   "repair <identity>",
	Short: "Repair the cache entries for a source identity",
	Long: `Drop both cache entries for the given identity and re-resolve its
fingerprint from the engine. Use after a cache loss or an out-of-band
engine-side key deletion.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeyRepair,
}

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keyGenerateCmd)
	keysCmd.AddCommand(keyDeleteCmd)
	keysCmd.AddCommand(keyFingerprintCmd)
	keysCmd.AddCommand(keyExportCmd)
	keysCmd.AddCommand(keyRepairCmd)
}

func runKeyGenerate(cmd *cobra.Command, args []string) error {
	identity := args[0]

	passphrase, err := promptPassphrase("Passphrase for new key: ")
	if err != nil {
		return err
	}

	if err := keyManager.GenerateSourceKeyPair(identity, passphrase); err != nil {
		return err
	}

	fingerprint, err := keyManager.GetSourceKeyFingerprint(identity)
	if err != nil {
		return err
	}
	fmt.Printf("Generated key pair for %s: %s\n", identity, fingerprint)
	return nil
}

func runKeyDelete(cmd *cobra.Command, args []string) error {
	identity := args[0]
	if err := keyManager.DeleteSourceKeyPair(identity); err != nil {
		return err
	}
	fmt.Printf("Deleted key pair for %s\n", identity)
	return nil
}

func runKeyFingerprint(cmd *cobra.Command, args []string) error {
	fingerprint, err := keyManager.GetSourceKeyFingerprint(args[0])
	if err != nil {
		return err
	}
	fmt.Println(fingerprint)
	return nil
}

func runKeyExport(cmd *cobra.Command, args []string) error {
	var publicKey string
	var err error
	if len(args) == 0 {
		publicKey, err = keyManager.GetJournalistPublicKey()
	} else {
		publicKey, err = keyManager.GetSourcePublicKey(args[0])
	}
	if err != nil {
		return err
	}
	fmt.Print(publicKey)
	return nil
}

func runKeyRepair(cmd *cobra.Command, args []string) error {
	identity := args[0]
	if err := keyManager.RepairCache(identity); err != nil {
		return fmt.Errorf("repair finished with: %w", err)
	}
	fmt.Printf("Cache entries for %s repaired\n", identity)
	return nil
}
