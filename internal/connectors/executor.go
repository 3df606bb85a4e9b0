package connectors

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// ExecResult: то, что вернул дочерний процесс.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor запускает уже провалидированный argv без участия shell.
type Executor interface {
	Run(ctx context.Context, argv []string) (ExecResult, error)
}

// OSExecutor запускает реальный процесс. При отмене ctx процесс убивается,
// а WaitDelay ограничивает ожидание его потоков вывода.
type OSExecutor struct {
	WaitDelay time.Duration
}

func (e OSExecutor) Run(ctx context.Context, argv []string) (ExecResult, error) {
	if len(argv) == 0 {
		return ExecResult{}, errors.New("executor: empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 500 * time.Millisecond
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Ненулевой код возврата это результат, а не ошибка запуска
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}
