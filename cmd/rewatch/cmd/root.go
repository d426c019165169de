package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corey/rewatch/internal/app"
	"github.com/corey/rewatch/internal/config"
	"github.com/corey/rewatch/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "rewatch [flags] [-- command [args...]]",
	Short: "Rerun a command when watched files change",
	Long: `rewatch watches a directory tree and reruns a command whenever
matching files change. Editor save bursts are debounced into a single
restart, and the running process is stopped cooperatively before the
next one starts.

The command to run goes after "--":

  rewatch -- go run ./cmd/server
  rewatch --ext go,tmpl --ignore testdata -- make serve`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runRoot,
}

// cfgFileErr holds a config file read failure until a command can
// report it. initConfig can't return one.
var cfgFileErr error

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("root", "", "directory tree to watch (default: current directory)")
	pf.StringSlice("ignore", nil, "directory names whose subtrees are skipped, added to the configured set")
	pf.StringSlice("ext", nil, "file extensions that count as changes (empty: all files)")
	pf.Duration("debounce", 0, "quiet period a change must survive before a restart")
	pf.Duration("grace", 0, "how long a stopping process gets before it is killed")
	pf.Bool("poll", false, "scan the tree periodically instead of using OS notification")
	pf.Duration("poll-interval", 0, "time between tree scans in poll mode")
	pf.Bool("no-run", false, "watch and report changes without running a command")
	pf.Bool("debug", false, "log at debug level")
	pf.String("log-format", "", "log output format: text, json, or logfmt")
	pf.StringP("config", "c", "", "config file (default: .rewatch.yaml in the watch root)")

	_ = viper.BindPFlag("root", pf.Lookup("root"))
	_ = viper.BindPFlag("extensions", pf.Lookup("ext"))
	_ = viper.BindPFlag("debounce", pf.Lookup("debounce"))
	_ = viper.BindPFlag("grace", pf.Lookup("grace"))
	_ = viper.BindPFlag("poll", pf.Lookup("poll"))
	_ = viper.BindPFlag("poll_interval", pf.Lookup("poll-interval"))
	_ = viper.BindPFlag("no_run", pf.Lookup("no-run"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("config", pf.Lookup("config"))
}

func initConfig() {
	// Defaults first so every key resolves even without a config file.
	config.SetDefaults()

	// Env binding must precede file discovery: REWATCH_ROOT and
	// REWATCH_CONFIG take part in locating the config file itself.
	viper.AutomaticEnv()
	viper.SetEnvPrefix("REWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(strings.TrimSuffix(config.FileName, ".yaml"))
		viper.SetConfigType("yaml")
		if root := viper.GetString("root"); root != "" {
			viper.AddConfigPath(root)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath(config.ConfigDir())
	}

	// A missing implicit config file is fine. An unreadable or malformed
	// one, or a missing explicit --config file, is reported by the command.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cfgFileErr = fmt.Errorf("read config: %w", err)
		}
	}
}

// applyCLIOverrides maps CLI-only switches onto config keys. viper.Set
// outranks every other source.
func applyCLIOverrides(cmd *cobra.Command) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		viper.Set("log.level", "debug")
	}
	// --ignore is additive: the flag is not bound to ignore_dirs because
	// a bound flag would replace the configured set instead of extending it.
	if cmd.Flags().Changed("ignore") {
		extra, _ := cmd.Flags().GetStringSlice("ignore")
		viper.Set("ignore_dirs", mergeIgnores(viper.GetStringSlice("ignore_dirs"), extra))
	}
}

// mergeIgnores appends flag-given names to the configured ignore set,
// dropping empties and duplicates.
func mergeIgnores(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, d := range base {
		if d != "" && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	for _, d := range extra {
		if d != "" && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func runRoot(cmd *cobra.Command, args []string) error {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		if tail := args[dash:]; len(tail) > 0 {
			viper.Set("command", tail)
		}
	} else if len(args) > 0 {
		return fmt.Errorf("the command to run must follow \"--\": rewatch -- %s", strings.Join(args, " "))
	}
	applyCLIOverrides(cmd)

	if cfgFileErr != nil {
		return cfgFileErr
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Log)
	printBanner(cfg)

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("signal received, stopping", "signal", sig.String())
		cancel()
	}()

	return a.Run(ctx)
}
