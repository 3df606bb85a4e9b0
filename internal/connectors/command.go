package connectors

/*
Файл command.go реализует SafeCommandRunner, единственный путь от агента к процессам ОС.

1. command разбирается в argv: готовый список строк или одна строка по правилам
   shell-word-splitting (с учетом кавычек). Ни один токен не отбрасывается.
2. argv сверяется с allowlist: базовое имя есть ключ таблицы (строгое совпадение, пути
   не допускаются), каждый следующий токен берется из разрешенного набора флагов;
   пустой набор означает "без аргументов".
3. Отказ -> {status: denied}, процесс не создается.
4. Допуск -> ровно этот argv исполняется без shell, с таймаутом.
*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// DefaultAllowlist: базовая команда -> разрешенные флаги
var DefaultAllowlist = map[string][]string{
	"date":   {},
	"whoami": {},
	"uptime": {},
	"pwd":    {},
	"ls":     {"-a", "-l", "-la", "-al"},
}

const DefaultCommandTimeout = 5 * time.Second

type CommandRunner struct {
	allow   map[string]map[string]struct{}
	exec    Executor
	timeout time.Duration
	logger  *zap.Logger
}

func NewCommandRunner(exec Executor, timeout time.Duration, logger *zap.Logger) *CommandRunner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	allow := make(map[string]map[string]struct{}, len(DefaultAllowlist))
	for base, flags := range DefaultAllowlist {
		set := make(map[string]struct{}, len(flags))
		for _, f := range flags {
			set[f] = struct{}{}
		}
		allow[base] = set
	}
	return &CommandRunner{
		allow:   allow,
		exec:    exec,
		timeout: timeout,
		logger:  logger.Named("command-runner"),
	}
}

// ParseCommand превращает аргумент command в argv. Строка с незакрытой кавычкой считается ошибкой.
func ParseCommand(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		argv := make([]string, 0, len(t))
		for _, part := range t {
			argv = append(argv, fmt.Sprint(part))
		}
		return argv, nil
	case string:
		// Без обработки комментариев: "#" остается токеном и режется allowlist
		return shellquote.Split(t)
	}
	return nil, nil
}

// Validate сверяет argv с allowlist. Пустая причина означает допуск.
func (r *CommandRunner) Validate(argv []string) (bool, string) {
	if len(argv) == 0 {
		return false, "No command provided."
	}
	base := argv[0]
	flags, ok := r.allow[base]
	if !ok {
		return false, fmt.Sprintf("Command '%s' is not in the allowlist.", base)
	}
	rest := argv[1:]
	if len(flags) == 0 {
		if len(rest) > 0 {
			return false, "Command does not accept arguments."
		}
		return true, ""
	}
	for _, tok := range rest {
		if _, ok := flags[tok]; !ok {
			return false, "Command arguments are not allowlisted."
		}
	}
	return true, ""
}

// Handle реализует domain.Handler для system_command.
func (r *CommandRunner) Handle(ctx context.Context, args domain.Arguments) domain.Result {
	argv, err := ParseCommand(args["command"])
	if err != nil {
		r.logger.Info("command rejected", zap.Error(err))
		return domain.Result{"status": domain.StatusDenied, "message": "Command could not be parsed."}
	}

	if ok, reason := r.Validate(argv); !ok {
		r.logger.Info("command rejected", zap.Strings("argv", argv), zap.String("reason", reason))
		return domain.Result{"status": domain.StatusDenied, "message": reason}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.exec.Run(runCtx, argv)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.Warn("command timed out", zap.Strings("argv", argv), zap.Duration("timeout", r.timeout))
			return domain.ErrorResult(fmt.Sprintf("Command timed out after %s.", r.timeout))
		}
		r.logger.Error("command failed to start", zap.Strings("argv", argv), zap.Error(err))
		return domain.ErrorResult(fmt.Sprintf("Command failed: %v", err))
	}

	return domain.Result{
		"status":     domain.StatusOK,
		"command":    argv,
		"stdout":     res.Stdout,
		"stderr":     res.Stderr,
		"returncode": res.ExitCode,
	}
}
