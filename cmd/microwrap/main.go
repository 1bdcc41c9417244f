// Command microwrap exposes an arbitrary executable as an HTTP service:
// each request becomes one command-line invocation and the captured output
// becomes the response.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/microwrap/microwrap/internal/dispatch"
	"github.com/microwrap/microwrap/internal/log"
	"github.com/microwrap/microwrap/internal/model"
	"github.com/microwrap/microwrap/internal/server"
)

const configName = "microwrap.json"

var (
	userConfigPath string // default config directory for microwrap on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "microwrap")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is "+configName+" in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initMicrowrap

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("microwrap failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "microwrap",
	Short:        "Wraps an executable behind an HTTP server",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve [host [port]]",
	Short: "serve accepts HTTP requests and answers each with one invocation of the wrapped executable",
	Args:  cobra.MaximumNArgs(2),
	RunE:  doServe,
}

var translateCmd = &cobra.Command{
	Use:    "_translate <query-string>",
	Short:  "internal command",
	RunE:   doTranslate,
	Args:   cobra.ExactArgs(1),
	Hidden: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of microwrap",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("microwrap: version info not available")
		}

		if configPath != "" {
			fmt.Printf("config:    %s\n", configPath)
		}
		fmt.Printf("microwrap: %s\n", info.Main.Version)
		fmt.Printf("go:        %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:    %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:      %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:     %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doServe(cmd *cobra.Command, args []string) error {
	// positional host and port override the configuration
	if len(args) >= 1 {
		config.Host = args[0]
	}
	if len(args) == 2 {
		port, err := strconv.Atoi(args[1])
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("port %q is not a valid TCP port", args[1])
		}
		config.Port = port
	}

	if err := config.VerifyExecutable(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.ContextAttrs(ctx, slog.Attr{
		Key: "microwrap",
		Value: slog.GroupValue(
			slog.String("cmd", "serve"),
			slog.Int("pid", os.Getpid()),
		),
	})
	slog.InfoContext(ctx, "wrapping executable",
		"path", config.ExecutablePath,
		"concurrency_limit", config.ConcurrencyLimit(),
	)

	return server.New(config).Run(ctx)
}

// doTranslate prints the argument vector a given query string would
// produce, one token per line. For poking at allow-list and default rules
// without starting the server.
func doTranslate(cmd *cobra.Command, args []string) error {
	params := server.ParseQuery(args[0])
	argv := dispatch.Translate(params, config.AllowedParameters, config.DefaultParameters)
	for _, token := range argv {
		fmt.Println(token)
	}
	return nil
}

func initMicrowrap(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("MICROWRAP_CONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{".", userConfigPath} {
			path := filepath.Join(d, configName)
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, configName)
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		if err := model.WriteConfig(f, config); err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.ConfigErrDetails(err) {
				slog.Error(d.String())
			}
			return fmt.Errorf("parsing config %s: %w", configPath, err)
		}
	}

	// initialize logging
	slog.SetDefault(log.New(flagVerbose))
	slog.Debug("configuration loaded", "path", configPath)

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
