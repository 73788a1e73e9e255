package config

import (
	_ "embed"
	"reflect"
	"strings"

	"github.com/foxxorcat/wazero-wasip1/wasip1"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/wasip1.yaml
var defaultConfigData []byte

const ConfigurationName = "wasip1.yaml"

type Configuration struct {
	Args           []string `json:"args"`
	Env            []string `json:"env" validate:"dive,envvar"`
	Dirs           []string `json:"dirs" validate:"unique,dive,dirbind"`
	LogLevel       string   `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	PollerPoolSize int      `json:"poller_pool_size" validate:"gte=0,lte=1024"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	validate.RegisterValidation("dirbind", func(fl validator.FieldLevel) bool {
		_, err := wasip1.ParseDirBind(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("envvar", func(fl validator.FieldLevel) bool {
		key, _, ok := strings.Cut(fl.Field().String(), "=")
		return ok && key != ""
	})

	return validate.Struct(c)
}

// Binds parses Dirs.
func (c *Configuration) Binds() ([]wasip1.DirBind, error) {
	out := make([]wasip1.DirBind, 0, len(c.Dirs))
	for _, d := range c.Dirs {
		b, err := wasip1.ParseDirBind(d)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// EnvironOptions returns the Environ options the configuration selects.
func (c *Configuration) EnvironOptions() []wasip1.Option {
	var opts []wasip1.Option
	if c.PollerPoolSize > 0 {
		opts = append(opts, wasip1.WithPollerPoolSize(c.PollerPoolSize))
	}
	return opts
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Initialize writes the built-in configuration to path unless a file is
// already there.
func Initialize(fs afero.Fs, path string) error {
	exists, err := afero.Exists(fs, path)
	if err != nil || exists {
		return err
	}
	return afero.WriteFile(fs, path, defaultConfigData, 0o644)
}
