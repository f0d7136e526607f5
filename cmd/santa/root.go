package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/config"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/handoff"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/metrics"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/santa"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/team"
)

// flagBindings 命令行参数 -> 配置路径
var flagBindings = map[string]string{
	"duration":        "run.duration",
	"grace":           "run.grace",
	"seed":            "run.seed",
	"elves":           "elves.population",
	"elf-quorum":      "elves.quorum",
	"reindeer":        "reindeer.population",
	"reindeer-quorum": "reindeer.quorum",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics":         "metrics.print",
}

// newRootCmd 创建根命令，v 保存合并后的配置
func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "santa",
		Short: "Santa Claus concurrency simulation",
		Long: `santa runs the Santa Claus problem: reindeer and elves form fixed-size
teams, a single coordinator serves one team at a time, reindeer teams
before elf teams. The simulation runs for a fixed duration, then every
actor is cancelled and given a grace period to exit.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, v)
		},
	}

	defaults := config.Default()

	// Global flags
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./santa.yaml or "+config.ConfigFile()+")")

	// Simulation flags
	flags := cmd.Flags()
	flags.DurationP("duration", "d", defaults.Run.Duration, "how long the workshop runs")
	flags.Duration("grace", defaults.Run.Grace, "how long to wait for actors after cancellation")
	flags.Uint64("seed", defaults.Run.Seed, "random seed for task durations (0 = random)")
	flags.Int("elves", defaults.Elves.Population, "number of elves")
	flags.Int("elf-quorum", defaults.Elves.Quorum, "elves needed to wake Santa")
	flags.Int("reindeer", defaults.Reindeer.Population, "number of reindeer")
	flags.Int("reindeer-quorum", defaults.Reindeer.Quorum, "reindeer needed to wake Santa")
	flags.String("log-level", defaults.Log.Level, "log level: "+strings.Join(config.ValidLogLevels(), ", "))
	flags.String("log-format", defaults.Log.Format, "log format: "+strings.Join(config.ValidLogFormats(), ", "))
	flags.Bool("metrics", defaults.Metrics.Print, "print Prometheus metrics after the run")

	for name, key := range flagBindings {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	cmd.AddCommand(newConfigCmd(v))
	return cmd
}

// initConfig 按优先级合并配置：默认值、配置文件、环境变量、命令行参数
func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("santa")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(config.ConfigDir())
	}

	v.SetEnvPrefix(config.EnvPrefix)
	// e.g., SANTA_ELVES_QUORUM for elves.quorum
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// 显式指定的配置文件必须存在
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// runSimulation 运行一次完整模拟并输出汇总
func runSimulation(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(out, cfg.Log)
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}

	collector := metrics.New(cfg.Metrics.Namespace)
	observer := team.Observers{team.NewLogObserver(logger), collector}

	w, err := santa.NewWorkshop(groupSpecs(cfg),
		santa.WithLogger(logger),
		santa.WithObserver(observer),
		santa.WithSeed(cfg.Run.Seed),
		santa.WithShutdownTimeout(cfg.Run.Grace),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := w.Run(ctx, cfg.Run.Duration, cfg.Run.Grace)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderSummary(report))

	if cfg.Metrics.Print {
		if err := collector.WriteText(out); err != nil {
			return err
		}
	}
	return nil
}

// groupSpecs 把配置转换为 Workshop 的 GroupSpec，驯鹿在前
func groupSpecs(cfg *config.Config) []santa.GroupSpec {
	return []santa.GroupSpec{
		groupSpec(team.RoleReindeer, cfg.Reindeer),
		groupSpec(team.RoleElf, cfg.Elves),
	}
}

func groupSpec(role team.Role, g config.GroupConfig) santa.GroupSpec {
	priority := handoff.PriorityLow
	if g.HighPriority {
		priority = handoff.PriorityHigh
	}
	return santa.GroupSpec{
		Role:        role,
		Topic:       g.Topic,
		Quorum:      g.Quorum,
		Population:  g.Population,
		Priority:    priority,
		ActionLabel: g.ActionLabel,
		ActionMax:   g.ActionMax,
		ChoreLabel:  g.ChoreLabel,
		ChoreMax:    g.ChoreMax,
	}
}
