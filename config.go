package restql

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultQueryParamName = "query"
	DefaultMaxAliasLen    = 50
)

// Config holds the settings a Parser and its consumers read.
// A zero Config is not valid; start from DefaultConfig.
type Config struct {
	// QueryParamName is the request parameter carrying the fields query.
	QueryParamName string `yaml:"query_param_name" json:"queryParamName"`

	// AutoApplyEagerLoading tells eager-loading consumers to plan relations
	// without being asked explicitly.
	AutoApplyEagerLoading bool `yaml:"auto_apply_eager_loading" json:"autoApplyEagerLoading"`

	// MaxAliasLen bounds the length of a requested alias. Zero disables the check.
	MaxAliasLen int `yaml:"max_alias_len" json:"maxAliasLen"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		QueryParamName:        DefaultQueryParamName,
		AutoApplyEagerLoading: true,
		MaxAliasLen:           DefaultMaxAliasLen,
	}
}

// LoadConfig reads a YAML settings file. Keys missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.QueryParamName == "" {
		return errors.New("query_param_name must not be empty")
	}
	if c.MaxAliasLen < 0 {
		return errors.Errorf("max_alias_len must be >= 0, got %d", c.MaxAliasLen)
	}
	return nil
}
