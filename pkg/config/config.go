// Package config loads validator options from the usual layered
// sources — built-in defaults, an optional config file, environment
// variables, and finally CLI flags — with each layer overriding the one
// before it, the same precedence Viper gives every caller of
// AutomaticEnv alongside SetDefault.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Options mirrors internal/validate.Options plus the process-level
// concerns only the CLI layer needs.
type Options struct {
	SchemaVersion string   `mapstructure:"schema_version"`
	IgnoreExtras  []string `mapstructure:"ignore_extras"`
	LogLevel      string   `mapstructure:"log_level"`
	LogJSON       bool     `mapstructure:"log_json"`
	NoColor       bool     `mapstructure:"no_color"`
	ShowWarnings  bool     `mapstructure:"show_warnings"`
	UseEvents     bool     `mapstructure:"use_events"`
}

var defaults = Options{
	SchemaVersion: "latest",
	LogLevel:      "info",
	LogJSON:       false,
	NoColor:       false,
	ShowWarnings:  true,
	UseEvents:     false,
}

// Load builds an Options value from defaults, an optional config file
// (searched at configFile if non-empty, else "./.psychds-validator.*"
// and "$HOME/.psychds-validator.*"), and PSYCHDS_*-prefixed environment
// variables. It does not read flags; the CLI layer overlays those after
// Load returns, using pflag.Changed to only override fields the user
// actually set.
func Load(configFile string) (*Options, error) {
	v := viper.New()

	v.SetDefault("schema_version", defaults.SchemaVersion)
	v.SetDefault("ignore_extras", []string{})
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_json", defaults.LogJSON)
	v.SetDefault("no_color", defaults.NoColor)
	v.SetDefault("show_warnings", defaults.ShowWarnings)
	v.SetDefault("use_events", defaults.UseEvents)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".psychds-validator")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("PSYCHDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &opts, nil
}
