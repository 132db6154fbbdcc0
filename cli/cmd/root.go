package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	securedrop "github.com/usedetail/securedrop-detail"
	"github.com/usedetail/securedrop-detail/audit"
	"github.com/usedetail/securedrop-detail/cache"
)

var (
	cfgFile    string
	keyManager *securedrop.KeyManager
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sdkeys",
	Short: "Key lifecycle and encryption orchestration for source identities",
	Long: `Manages per-source OpenPGP key pairs and mediates encryption between
source identities and the fixed journalist key. Key material lives in an
external GnuPG keyring; fingerprint lookups are cached in Redis or in
process memory.`,
	PersistentPreRunE: initializeManager,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if keyManager != nil {
			return keyManager.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sdkeys.yaml)")
	rootCmd.PersistentFlags().String("gpg-home", "", "engine key storage directory")
	rootCmd.PersistentFlags().String("gpg-binary", "", "engine binary (default gpg2)")
	rootCmd.PersistentFlags().String("journalist-key", "", "journalist key fingerprint")

	bindFlagOrPanic("gpg.home", "gpg-home")
	bindFlagOrPanic("gpg.binary", "gpg-binary")
	bindFlagOrPanic("gpg.journalist_key", "journalist-key")

	// Cache flags
	rootCmd.PersistentFlags().String("cache-type", "", "cache backend (redis, memory)")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis server address")
	rootCmd.PersistentFlags().String("redis-password", "", "Redis password")
	rootCmd.PersistentFlags().Int("redis-db", 0, "Redis logical database")

	bindFlagOrPanic("cache.type", "cache-type")
	bindFlagOrPanic("cache.redis.addr", "redis-addr")
	bindFlagOrPanic("cache.redis.password", "redis-password")
	bindFlagOrPanic("cache.redis.db", "redis-db")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/sdkeys")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".sdkeys")
	}

	viper.SetEnvPrefix("SDKEYS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found is OK - defaults and env vars apply
	}
}

func setDefaults() {
	viper.SetDefault("gpg.binary", "")
	viper.SetDefault("cache.type", "redis")
	viper.SetDefault("cache.redis.addr", cache.DefaultRedisAddr)
	viper.SetDefault("cache.redis.db", 0)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.options.file_path", "sdkeys-audit.log")
}

func initializeManager(cmd *cobra.Command, args []string) error {
	switch cmd.Name() {
	case "help", "completion", "__complete", "config":
		return nil
	}

	manager, err := securedrop.NewKeyManager(managerOptions())
	if err != nil {
		return err
	}
	keyManager = manager

	// Audit failures never block the command itself.
	_ = keyManager.Audit().Log(audit.ActionCommand, true, map[string]interface{}{
		"command": cmd.CommandPath(),
		"flags":   sanitizeFlags(cmd),
	})
	return nil
}

// sanitizeFlags collects the flags set on the invocation for audit
// metadata, redacting values whose flag name suggests a secret.
func sanitizeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			if isSensitiveFlag(flag.Name) {
				flags[flag.Name] = "[REDACTED]"
			} else {
				flags[flag.Name] = flag.Value.String()
			}
		}
	})
	return flags
}

func isSensitiveFlag(name string) bool {
	sensitive := []string{"passphrase", "password", "secret", "token"}
	lower := strings.ToLower(name)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func managerOptions() securedrop.Options {
	options := securedrop.Options{
		GPGKeyDir:                viper.GetString("gpg.home"),
		GPGBinary:                viper.GetString("gpg.binary"),
		JournalistKeyFingerprint: viper.GetString("gpg.journalist_key"),
		Cache: cache.StoreConfig{
			Type: cache.StoreType(viper.GetString("cache.type")),
			Config: map[string]interface{}{
				"addr":     viper.GetString("cache.redis.addr"),
				"password": viper.GetString("cache.redis.password"),
				"db":       viper.GetInt("cache.redis.db"),
			},
		},
	}

	if viper.GetBool("audit.enabled") {
		options.Audit = &audit.Config{
			Enabled: true,
			Type:    audit.ConfigType(viper.GetString("audit.type")),
			Options: map[string]interface{}{
				"file_path": viper.GetString("audit.options.file_path"),
			},
		}
	}

	return options
}
