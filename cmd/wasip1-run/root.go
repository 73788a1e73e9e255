package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/foxxorcat/wazero-wasip1/config"
	"github.com/foxxorcat/wazero-wasip1/internal/poller"
	"github.com/foxxorcat/wazero-wasip1/wasip1"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath  string
	dirs     []string
	envs     []string
	logLevel string

	osFs = afero.NewOsFs()
)

// exitCodeError carries a non-zero guest exit code to main.
type exitCodeError struct {
	code uint32
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("guest exited with code %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "wasip1-run [flags] module.wasm [args...]",
	Short: "Run a WASI preview1 module",
	Long: `Runs a core WebAssembly module with WASI preview1 imports. The guest
only sees the directories bound with --dir, each limited to the rights of
its bind mode.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()
		wasip1.SetLogger(logger.Named("wasip1"))
		poller.SetLogger(logger.Named("poller"))

		return run(cmd, cfg, args[0], args[1:])
	},
}

func init() {
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.Flags().StringVar(&cfgPath, "config", "", "configuration file or directory")
	rootCmd.Flags().StringArrayVar(&dirs, "dir", nil, "bind a host directory as GUEST_PATH:HOST_PATH[:readonly]")
	rootCmd.Flags().StringArrayVar(&envs, "env", nil, "set a guest environment variable as KEY=VALUE")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

// loadConfig reads --config, if any, and applies the command line on top.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(osFs, cfgPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				cmd.PrintErrln("Couldn't load config: did you run init?")
			}
			return nil, err
		}
	}
	cfg.Dirs = append(cfg.Dirs, dirs...)
	cfg.Env = append(cfg.Env, envs...)
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(cmd *cobra.Command, cfg *config.Configuration, module string, args []string) error {
	ctx := cmd.Context()
	bin, err := afero.ReadFile(osFs, module)
	if err != nil {
		return err
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	env := wasip1.NewEnviron(cfg.EnvironOptions()...)
	defer env.Close()
	guestArgs := append([]string{filepath.Base(module)}, cfg.Args...)
	guestArgs = append(guestArgs, args...)
	if err := env.Init(cfg.Dirs, guestArgs, cfg.Env); err != nil {
		return err
	}
	if err := logPreopens(env, cfg); err != nil {
		return err
	}
	if _, err := wasip1.NewHost(env).Instantiate(ctx, r); err != nil {
		return err
	}

	_, err = r.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithStartFunctions("_start"))
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() != 0 {
			return &exitCodeError{code: exitErr.ExitCode()}
		}
		return nil
	}
	return err
}

func logPreopens(env *wasip1.Environ, cfg *config.Configuration) error {
	binds, err := cfg.Binds()
	if err != nil {
		return err
	}
	for _, b := range binds {
		fd, _, err := env.FindPreopen(b.Guest)
		if err != nil {
			wasip1.Logger().Warn("preopen not found", zap.Stringer("bind", b), zap.Error(err))
			continue
		}
		wasip1.Logger().Debug("preopen",
			zap.Uint32("fd", uint32(fd)),
			zap.String("guest", b.Guest),
			zap.String("host", b.Host),
			zap.Bool("readonly", b.ReadOnly),
		)
	}
	return nil
}
