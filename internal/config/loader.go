package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/zero-day-ai/graphask/internal/types"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. GRAPHASK_ENGINE_MAX_ATTEMPTS.
const EnvPrefix = "GRAPHASK"

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper over an afero filesystem.
type viperConfigLoader struct {
	fs        afero.Fs
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance reading from fs.
func NewConfigLoader(fs afero.Fs, validator ConfigValidator) ConfigLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &viperConfigLoader{
		fs:        fs,
		validator: validator,
	}
}

// Load reads path, layers it over the defaults and GRAPHASK_* environment
// overrides, expands ${VAR} references and validates the result.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := l.newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if exists, _ := afero.Exists(l.fs, path); !exists {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND, "config file not found: "+path, err)
		}
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to read config file", err)
	}
	return l.decode(v)
}

// LoadWithDefaults loads configuration from path, or returns the defaults
// (with environment overrides) when the file does not exist.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	exists, err := afero.Exists(l.fs, path)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to stat config file", err)
	}
	if !exists {
		return l.decode(l.newViper())
	}
	return l.Load(path)
}

func (l *viperConfigLoader) newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(l.fs)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, "", DefaultConfig())
	return v
}

func (l *viperConfigLoader) decode(v *viper.Viper) (*Config, error) {
	settings := interpolateEnvVars(v.AllSettings())

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to create decoder", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every leaf of cfg with viper so that AutomaticEnv can
// override it. Maps and slices are registered whole.
func setDefaults(v *viper.Viper, prefix string, cfg any) {
	val := reflect.ValueOf(cfg)
	if val.Kind() == reflect.Pointer {
		val = val.Elem()
	}
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			setDefaults(v, key, fv.Interface())
			continue
		}
		v.SetDefault(key, structToSettings(fv.Interface()))
	}
}

// structToSettings converts maps of structs into the map form viper merges.
func structToSettings(value any) any {
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Map || val.Type().Elem().Kind() != reflect.Struct {
		return value
	}
	out := make(map[string]any, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		m := make(map[string]any)
		_ = mapstructure.Decode(iter.Value().Interface(), &m)
		out[iter.Key().String()] = m
	}
	return out
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// interpolateEnvVars recursively interpolates environment variables in the config map.
func interpolateEnvVars(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

// interpolateString replaces ${VAR} and ${VAR:-default}. An unset variable
// without a default expands to the empty string.
func interpolateString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok && value != "" {
			return value
		}
		return groups[3]
	})
}

// WriteConfig writes cfg as YAML to path, creating parent directories.
// Existing files are left untouched unless overwrite is set.
func WriteConfig(fs afero.Fs, path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if exists, _ := afero.Exists(fs, path); exists {
			return types.NewError(types.CONFIG_LOAD_FAILED, "config file already exists: "+path)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return types.WrapError(types.CONFIG_PARSE_FAILED, "failed to encode config", err)
	}
	if err := enc.Close(); err != nil {
		return types.WrapError(types.CONFIG_PARSE_FAILED, "failed to encode config", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to create config directory", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o600); err != nil {
		return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to write config file", err)
	}
	return nil
}

// IsNotFound reports whether err means the config file was missing.
func IsNotFound(err error) bool {
	var e *types.Error
	return errors.As(err, &e) && e.Code == types.CONFIG_NOT_FOUND
}
