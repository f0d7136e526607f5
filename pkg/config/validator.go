package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError 单个校验失败
type ValidationError struct {
	Field   string // 配置路径，例如 "elves.quorum"
	Value   any
	Message string
}

// Error 实现 error 接口
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors 校验失败集合
type ValidationErrors []ValidationError

// Error 实现 error 接口
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels 返回可用的日志级别
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats 返回可用的日志格式
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate 检查配置，返回全部校验失败
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.Reindeer.validate("reindeer")...)
	errs = append(errs, c.Elves.validate("elves")...)
	errs = append(errs, c.validateRun()...)
	errs = append(errs, c.validateLog()...)

	if c.Reindeer.Topic != "" && c.Reindeer.Topic == c.Elves.Topic {
		errs = append(errs, ValidationError{
			Field:   "elves.topic",
			Value:   c.Elves.Topic,
			Message: "must differ from reindeer.topic",
		})
	}

	return errs
}

func (g GroupConfig) validate(prefix string) []ValidationError {
	var errs []ValidationError

	if g.Quorum < 1 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".quorum",
			Value:   g.Quorum,
			Message: "must be at least 1",
		})
	}
	if g.Population < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".population",
			Value:   g.Population,
			Message: "must be non-negative",
		})
	}
	if g.ActionMax < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".action_max",
			Value:   g.ActionMax,
			Message: "must be non-negative",
		})
	}
	if g.ChoreMax < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".chore_max",
			Value:   g.ChoreMax,
			Message: "must be non-negative",
		})
	}

	return errs
}

func (c *Config) validateRun() []ValidationError {
	var errs []ValidationError

	if c.Run.Duration < 0 {
		errs = append(errs, ValidationError{
			Field:   "run.duration",
			Value:   c.Run.Duration,
			Message: "must be non-negative",
		})
	}
	if c.Run.Grace < 0 {
		errs = append(errs, ValidationError{
			Field:   "run.grace",
			Value:   c.Run.Grace,
			Message: "must be non-negative",
		})
	}

	return errs
}

func (c *Config) validateLog() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errs
}
