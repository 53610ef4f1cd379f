/*
Copyright The Kubedeploy Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package executor runs external cluster commands, absorbing
// transient failures with a bounded fixed-delay retry budget. This is
// the only place where command failures are retried: callers see
// either success or an exhausted-retries error.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/shlex"

	"github.com/kubetools/kubedeploy/pkg/log"
)

const (
	// DefaultAttempts is the default retry budget of a command
	DefaultAttempts = 30

	// DefaultDelay is the default pause between two attempts
	DefaultDelay = 2 * time.Second
)

// Executor issues external commands with a fixed-delay retry policy
type Executor struct {
	// Attempts is the maximum attempt count per command
	Attempts uint

	// Delay is the fixed pause between attempts, without jitter
	Delay time.Duration
}

// New creates an Executor with the default retry policy
func New() *Executor {
	return &Executor{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
	}
}

// RunUnchecked executes a command once and returns its output without
// any retry. A failure is a non-zero exit status or any content on
// the error stream.
func (e *Executor) RunUnchecked(ctx context.Context, command, input string) (string, error) {
	tokens, err := shlex.Split(command)
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("parsing command %q: %w", command, err))
	}
	if len(tokens) == 0 {
		return "", retry.Unrecoverable(fmt.Errorf("empty command %q", command))
	}

	var outBuffer, errBuffer bytes.Buffer
	cmd := exec.CommandContext(ctx, tokens[0], tokens[1:]...) // #nosec G204
	cmd.Stdout, cmd.Stderr = &outBuffer, &errBuffer
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err = cmd.Run()
	stderr := strings.TrimSpace(errBuffer.String())
	switch {
	case err != nil:
		if stderr != "" {
			return outBuffer.String(), fmt.Errorf("%w: %v", err, stderr)
		}
		return outBuffer.String(), err
	case stderr != "":
		return outBuffer.String(), errors.New(stderr)
	}

	return outBuffer.String(), nil
}

// Run executes a command, retrying transient failures with the
// configured fixed delay until the attempt budget is exhausted. The
// label names the operation in logs and in the terminal error.
func (e *Executor) Run(ctx context.Context, label, command string) (string, error) {
	return e.RunInput(ctx, label, command, "")
}

// RunInput is Run with content fed to the command's standard input
func (e *Executor) RunInput(ctx context.Context, label, command, input string) (string, error) {
	var output string
	err := retry.Do(
		func() error {
			var runErr error
			output, runErr = e.RunUnchecked(ctx, command, input)
			return runErr
		},
		retry.Context(ctx),
		retry.Attempts(e.Attempts),
		retry.Delay(e.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			log.Log.Debugw("retrying command",
				"label", label,
				"attempt", attempt+1,
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		return output, fmt.Errorf("%v failed after %d attempts: %w", label, e.Attempts, err)
	}

	return output, nil
}
