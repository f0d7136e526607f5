// Package config 提供基于 viper 的模拟配置
//
// 配置来源优先级（低 -> 高）：默认值、YAML 文件、SANTA_* 环境变量、命令行参数。
// [SetDefaults] 把 [Default] 写入 viper，[Load] 解码并校验。
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "SANTA"

// Config 完整配置
type Config struct {
	Reindeer GroupConfig   `mapstructure:"reindeer" yaml:"reindeer"`
	Elves    GroupConfig   `mapstructure:"elves" yaml:"elves"`
	Run      RunConfig     `mapstructure:"run" yaml:"run"`
	Log      LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// GroupConfig 一类工人的配置
type GroupConfig struct {
	// Topic 叙述中的 Group 名称
	Topic string `mapstructure:"topic" yaml:"topic"`
	// Quorum 每队人数
	Quorum int `mapstructure:"quorum" yaml:"quorum"`
	// Population 工人总数，0 表示不雇佣
	Population int `mapstructure:"population" yaml:"population"`
	// HighPriority 组队完成后排在普通 Group 之前
	HighPriority bool `mapstructure:"high_priority" yaml:"high_priority"`
	// ActionLabel / ActionMax 集体任务叙述与耗时上限
	ActionLabel string        `mapstructure:"action_label" yaml:"action_label"`
	ActionMax   time.Duration `mapstructure:"action_max" yaml:"action_max"`
	// ChoreLabel / ChoreMax 个人任务叙述与耗时上限
	ChoreLabel string        `mapstructure:"chore_label" yaml:"chore_label"`
	ChoreMax   time.Duration `mapstructure:"chore_max" yaml:"chore_max"`
}

// RunConfig 运行控制
type RunConfig struct {
	// Duration 模拟运行时长
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`
	// Grace 取消后等待 Actor 退出的最长时间
	Grace time.Duration `mapstructure:"grace" yaml:"grace"`
	// Seed 随机种子，0 表示每次不同
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Format: text, json
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Namespace 指标名前缀
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	// Print 运行结束后以 Prometheus 文本格式输出指标
	Print bool `mapstructure:"print" yaml:"print"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Reindeer: GroupConfig{
			Topic:        "Delivery.",
			Quorum:       9,
			Population:   9,
			HighPriority: true,
			ActionLabel:  "delivers toys.",
			ActionMax:    3000 * time.Millisecond,
			ChoreLabel:   "is on vacation.",
			ChoreMax:     2000 * time.Millisecond,
		},
		Elves: GroupConfig{
			Topic:        "Meeting.",
			Quorum:       3,
			Population:   10,
			HighPriority: false,
			ActionLabel:  "designs toys.",
			ActionMax:    1500 * time.Millisecond,
			ChoreLabel:   "builds toys.",
			ChoreMax:     2000 * time.Millisecond,
		},
		Run: RunConfig{
			Duration: 5 * time.Second,
			Grace:    2 * time.Second,
			Seed:     0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "santa",
			Print:     false,
		},
	}
}

// SetDefaults 把默认配置写入 viper
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	setGroupDefaults(v, "reindeer", defaults.Reindeer)
	setGroupDefaults(v, "elves", defaults.Elves)

	// Run defaults
	v.SetDefault("run.duration", defaults.Run.Duration)
	v.SetDefault("run.grace", defaults.Run.Grace)
	v.SetDefault("run.seed", defaults.Run.Seed)

	// Log defaults
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	// Metrics defaults
	v.SetDefault("metrics.namespace", defaults.Metrics.Namespace)
	v.SetDefault("metrics.print", defaults.Metrics.Print)
}

func setGroupDefaults(v *viper.Viper, prefix string, g GroupConfig) {
	v.SetDefault(prefix+".topic", g.Topic)
	v.SetDefault(prefix+".quorum", g.Quorum)
	v.SetDefault(prefix+".population", g.Population)
	v.SetDefault(prefix+".high_priority", g.HighPriority)
	v.SetDefault(prefix+".action_label", g.ActionLabel)
	v.SetDefault(prefix+".action_max", g.ActionMax)
	v.SetDefault(prefix+".chore_label", g.ChoreLabel)
	v.SetDefault(prefix+".chore_max", g.ChoreMax)
}

// Load 从 viper 解码配置并校验
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir 返回用户配置目录
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "santa")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".santa"
	}
	return filepath.Join(home, ".config", "santa")
}

// ConfigFile 返回用户配置文件路径
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
