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

// Package update issues the mutation moving a deployment to a new
// build
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/kubetools/kubedeploy/pkg/build"
	"github.com/kubetools/kubedeploy/pkg/executor"
	"github.com/kubetools/kubedeploy/pkg/log"
)

// Gateway is the slice of the cluster facade the driver needs: the
// single-attempt manifest primitives it composes into one retried
// unit
type Gateway interface {
	ManifestOnce(ctx context.Context, name string) (string, error)
	ReplaceOnce(ctx context.Context, manifest string) error
}

// Driver rewrites a deployment's declared build and re-applies it
type Driver struct {
	Gateway Gateway

	// Attempts and Delay bound the retry budget of one update
	Attempts uint
	Delay    time.Duration
}

// NewDriver creates a Driver with the default retry policy
func NewDriver(gateway Gateway) *Driver {
	return &Driver{
		Gateway:  gateway,
		Attempts: executor.DefaultAttempts,
		Delay:    executor.DefaultDelay,
	}
}

// Update fetches the deployment manifest, rewrites the first build
// tag occurrence to the new build, and re-applies it. The whole
// fetch-rewrite-replace sequence is retried as a single unit: a
// failing replace restarts from a fresh fetch, which is safe because
// the mutation is idempotent for a fixed target build. A manifest
// without any build tag aborts immediately.
func (d *Driver) Update(ctx context.Context, name, newBuild string) error {
	err := retry.Do(
		func() error {
			manifest, err := d.Gateway.ManifestOnce(ctx, name)
			if err != nil {
				return err
			}

			rewritten, err := build.Rewrite(manifest, newBuild)
			if err != nil {
				return retry.Unrecoverable(
					fmt.Errorf("deployment %v: %w", name, err))
			}

			return d.Gateway.ReplaceOnce(ctx, rewritten)
		},
		retry.Context(ctx),
		retry.Attempts(d.Attempts),
		retry.Delay(d.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			log.Log.Debugw("retrying deployment update",
				"deployment", name,
				"build", newBuild,
				"attempt", attempt+1,
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("updating deployment %v to build %v: %w", name, newBuild, err)
	}

	log.Log.Infow("deployment updated", "deployment", name, "build", newBuild)
	return nil
}

// CurrentBuild extracts the build identifier currently configured in
// a deployment manifest, reading the first container image of the
// instance template
func CurrentBuild(manifest string) (string, error) {
	image, err := firstContainerImage(manifest)
	if err != nil {
		return "", err
	}
	return build.Extract(image)
}
