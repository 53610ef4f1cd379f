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

// Package deploy implements the kubectl-deploy command
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thoas/go-funk"

	"github.com/kubetools/kubedeploy/pkg/build"
	"github.com/kubetools/kubedeploy/pkg/convergence"
	"github.com/kubetools/kubedeploy/pkg/inventory"
	"github.com/kubetools/kubedeploy/pkg/log"
	"github.com/kubetools/kubedeploy/pkg/update"
)

var (
	// ErrNoSuchTarget is returned when a requested name matches no
	// deployment of the namespace
	ErrNoSuchTarget = errors.New("no deployment matches")

	// ErrAmbiguousTarget is returned when a requested prefix matches
	// more than one deployment
	ErrAmbiguousTarget = errors.New("ambiguous deployment name")
)

// Cluster is the control-plane surface the command drives: the
// update gateway plus the read queries. *cluster.Client satisfies it.
type Cluster interface {
	update.Gateway

	Deployments(ctx context.Context) ([]inventory.Deployment, error)
	InstancesOf(ctx context.Context, owners []string) ([]inventory.Instance, error)
	Manifest(ctx context.Context, name string) (string, error)
}

// Options carries the polling configuration of one invocation
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// TargetSpec is one parsed positional argument: a deployment name or
// prefix, optionally with the build to roll it to. An empty build
// requests a read-only report.
type TargetSpec struct {
	Name  string
	Build string
}

// ParseTargetSpec splits a `name[=build]` argument
func ParseTargetSpec(arg string) TargetSpec {
	name, buildID, _ := strings.Cut(arg, "=")
	return TargetSpec{Name: name, Build: buildID}
}

// DeploymentReport is the read-only view of one deployment and its
// instances
type DeploymentReport struct {
	Deployment inventory.Deployment `json:"deployment"`

	// Build is the build currently configured in the deployment
	// manifest, empty when the image carries no build tag
	Build string `json:"build,omitempty"`

	Instances []inventory.Instance `json:"instances"`
}

// Result is the structured outcome of a whole invocation
type Result struct {
	Reports  []DeploymentReport    `json:"reports,omitempty"`
	Outcomes []convergence.Outcome `json:"outcomes,omitempty"`
	Elapsed  time.Duration         `json:"elapsed,omitempty"`
}

// Failed tells whether any requested target did not fully converge
func (r *Result) Failed() bool {
	failed := funk.Filter(r.Outcomes, func(outcome convergence.Outcome) bool {
		return !outcome.IsSuccess()
	}).([]convergence.Outcome)
	return len(failed) > 0
}

// Run resolves the requested targets, issues the updates, and drives
// the shared convergence poller. Unresolvable or failing targets are
// contained in the result; only unrecoverable initial queries return
// an error.
func Run(ctx context.Context, client Cluster, opts Options, args []string) (*Result, error) {
	deployments, err := client.Deployments(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	orchestrator := convergence.NewOrchestrator(client.InstancesOf, opts.Interval, opts.Timeout)
	driver := update.NewDriver(client)

	type pendingUpdate struct {
		deployment inventory.Deployment
		build      string
	}
	var updates []pendingUpdate

	for _, arg := range funk.UniqString(args) {
		spec := ParseTargetSpec(arg)

		deployment, err := resolveDeployment(deployments, spec.Name)
		if err != nil {
			log.Log.Errorw("skipping target", "input", spec.Name, "error", err.Error())
			result.Outcomes = append(result.Outcomes, convergence.Outcome{
				Deployment: spec.Name,
				Build:      spec.Build,
				Phase:      convergence.PhaseSkipped,
				Reason:     err.Error(),
			})
			continue
		}

		if spec.Build == "" {
			report, err := describeDeployment(ctx, client, deployment)
			if err != nil {
				return nil, err
			}
			result.Reports = append(result.Reports, report)
			continue
		}

		updates = append(updates, pendingUpdate{deployment, spec.Build})
	}

	// updates for distinct targets are independent and issued in
	// parallel; everything funnels into the one shared poller
	type updateResult struct {
		target  *convergence.Target
		outcome *convergence.Outcome
	}
	results := make(chan updateResult, len(updates))
	var wg sync.WaitGroup
	for _, pending := range updates {
		wg.Add(1)
		go func(pending pendingUpdate) {
			defer wg.Done()
			target, outcome := applyUpdate(ctx, client, driver, pending.deployment, pending.build)
			results <- updateResult{target, outcome}
		}(pending)
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.outcome != nil {
			result.Outcomes = append(result.Outcomes, *res.outcome)
			continue
		}
		orchestrator.Register(res.target)
	}

	if orchestrator.ActiveTargets() > 0 {
		report := orchestrator.Watch(ctx)
		result.Outcomes = append(result.Outcomes, report.Outcomes...)
		result.Elapsed = report.Elapsed
	}

	return result, nil
}

// applyUpdate moves one deployment to the requested build and returns
// either a health-check target or a terminal outcome. A deployment
// already configured at the requested build skips the mutation and
// goes straight to the health check of its existing instances.
func applyUpdate(
	ctx context.Context,
	client Cluster,
	driver *update.Driver,
	deployment inventory.Deployment,
	newBuild string,
) (*convergence.Target, *convergence.Outcome) {
	target := &convergence.Target{Deployment: deployment, Build: newBuild}

	manifest, err := client.Manifest(ctx, deployment.Name)
	if err != nil {
		return nil, erroredOutcome(target, err)
	}

	current, err := update.CurrentBuild(manifest)
	if err != nil {
		return nil, erroredOutcome(target,
			fmt.Errorf("deployment %v: %w", deployment.Name, err))
	}

	if current == newBuild {
		log.Log.Infow("deployment already at requested build, verifying instances",
			"deployment", deployment.Name, "build", newBuild)
		return target, nil
	}

	log.Log.Infow("rolling deployment",
		"deployment", deployment.Name, "from", current, "to", newBuild)
	if err := driver.Update(ctx, deployment.Name, newBuild); err != nil {
		return nil, erroredOutcome(target, err)
	}

	return target, nil
}

func erroredOutcome(target *convergence.Target, err error) *convergence.Outcome {
	log.Log.Errorw("rollout not started",
		"deployment", target.Deployment.Name,
		"build", target.Build,
		"error", err.Error(),
	)
	return &convergence.Outcome{
		Deployment: target.Deployment.Name,
		Build:      target.Build,
		Desired:    target.Deployment.Replicas,
		Phase:      convergence.PhaseErrored,
		Reason:     err.Error(),
	}
}

// resolveDeployment maps a user-supplied name to exactly one listed
// deployment: an exact match wins, otherwise the prefix must be
// unambiguous
func resolveDeployment(deployments []inventory.Deployment, input string) (inventory.Deployment, error) {
	var candidates []inventory.Deployment
	for _, deployment := range deployments {
		if deployment.Name == input {
			return deployment, nil
		}
		if strings.HasPrefix(deployment.Name, input) {
			candidates = append(candidates, deployment)
		}
	}

	switch len(candidates) {
	case 0:
		return inventory.Deployment{}, fmt.Errorf("%w %q", ErrNoSuchTarget, input)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, 0, len(candidates))
		for _, candidate := range candidates {
			names = append(names, candidate.Name)
		}
		return inventory.Deployment{}, fmt.Errorf("%w %q: matches %v",
			ErrAmbiguousTarget, input, strings.Join(names, ", "))
	}
}

// describeDeployment assembles the read-only report of one deployment
func describeDeployment(
	ctx context.Context,
	client Cluster,
	deployment inventory.Deployment,
) (DeploymentReport, error) {
	report := DeploymentReport{Deployment: deployment}

	manifest, err := client.Manifest(ctx, deployment.Name)
	if err != nil {
		return report, err
	}
	current, err := update.CurrentBuild(manifest)
	if err != nil && !errors.Is(err, build.ErrNotFound) {
		return report, err
	}
	report.Build = current

	report.Instances, err = client.InstancesOf(ctx, []string{deployment.Name})
	return report, err
}
