package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"crashaudit/internal/log"
)

// RunContext executes a command in dir with context support and verbose
// logging. Stderr is folded into the returned error.
func RunContext(ctx context.Context, dir, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()

	c := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		c.Dir = dir
	}
	var stderr bytes.Buffer
	c.Stderr = &stderr

	err := c.Run()
	done(time.Since(start))
	if err != nil {
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return fmt.Errorf("%s", errMsg)
		}
		return err
	}
	return nil
}

// OutputContext executes a command in dir with context support and verbose
// logging, returning stdout. Stderr is folded into the returned error.
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()

	c := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		c.Dir = dir
	}
	var stderr bytes.Buffer
	c.Stderr = &stderr

	output, err := c.Output()
	done(time.Since(start))
	if err != nil {
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return nil, fmt.Errorf("%s", errMsg)
		}
		return nil, err
	}
	return output, nil
}
