package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Render the effective configuration (flags, environment and config file merged) as YAML. Secrets are redacted.`,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := viper.AllSettings()
	redact(settings, "password")

	rendered, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(rendered))
	return nil
}

// redact masks every occurrence of key in a nested settings map.
func redact(settings map[string]interface{}, key string) {
	for k, v := range settings {
		if nested, ok := v.(map[string]interface{}); ok {
			redact(nested, key)
			continue
		}
		if k == key {
			if s, ok := v.(string); ok && s != "" {
				settings[k] = "********"
			}
		}
	}
}
