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

// Package convergence implements the shared polling loop deciding
// when a rollout has succeeded, partially failed, or timed out
package convergence

import (
	"context"
	"errors"
	"time"

	"github.com/kubetools/kubedeploy/pkg/inventory"
	"github.com/kubetools/kubedeploy/pkg/log"
	"github.com/kubetools/kubedeploy/pkg/stringset"
)

const (
	// DefaultInterval is the default pause between two poll ticks
	DefaultInterval = 5 * time.Second

	// DefaultTimeout is the default global deadline of a polling run
	DefaultTimeout = 600 * time.Second
)

// SnapshotFunc fetches a fresh instance snapshot for the given owner
// deployments, builds resolved. One batched query serves every active
// target, bounding query volume independent of target count.
type SnapshotFunc func(ctx context.Context, owners []string) ([]inventory.Instance, error)

// Orchestrator owns the active-target set, the per-target state and
// the global deadline of one polling run. All state is touched from
// the single goroutine running Watch; targets are registered up
// front and only ever removed, never re-added, so the loop is
// guaranteed to terminate by emptiness or by deadline.
type Orchestrator struct {
	snapshot SnapshotFunc
	interval time.Duration
	timeout  time.Duration

	targets map[string]*Target
	active  stringset.Set
}

// NewOrchestrator creates an Orchestrator polling with the given
// snapshot function, tick interval and global deadline
func NewOrchestrator(snapshot SnapshotFunc, interval, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		snapshot: snapshot,
		interval: interval,
		timeout:  timeout,
		targets:  make(map[string]*Target),
		active:   stringset.New(),
	}
}

// Register adds a rollout target to the active set. Registration must
// happen before Watch is started.
func (o *Orchestrator) Register(target *Target) {
	o.targets[target.Deployment.Name] = target
	o.active.Put(target.Deployment.Name)
}

// ActiveTargets returns the number of registered, unresolved targets
func (o *Orchestrator) ActiveTargets() int {
	return o.active.Len()
}

// Watch runs the polling loop until every target resolves or the
// global deadline fires, and returns the structured report. It never
// terminates the process: exit-code policy belongs to the caller.
func (o *Orchestrator) Watch(ctx context.Context) *RolloutReport {
	report := &RolloutReport{}
	if o.active.Len() == 0 {
		return report
	}

	started := time.Now()
	defer func() {
		report.Elapsed = time.Since(started)
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	log.Log.Infow("watching rollout",
		"targets", o.active.ToSortedList(),
		"interval", o.interval,
		"timeout", o.timeout,
	)

	for o.active.Len() > 0 {
		select {
		case <-ctx.Done():
			o.expire(report, ctx.Err())
			return report

		case <-ticker.C:
			owners := o.active.ToSortedList()
			instances, err := o.snapshot(ctx, owners)
			if err != nil {
				if ctx.Err() != nil {
					// the deadline fired or the caller interrupted
					// while the query was in flight: report that,
					// not a query error
					o.expire(report, ctx.Err())
					return report
				}
				o.abort(report, err)
				return report
			}

			for _, name := range owners {
				target, ok := o.targets[name]
				if !ok {
					continue
				}

				outcome, resolved := target.Observe(instances)
				if !resolved {
					log.Log.Debugw("target still converging",
						"deployment", name, "build", target.Build)
					continue
				}

				o.resolve(report, outcome)
			}
		}
	}

	return report
}

// resolve records a terminal outcome and deregisters its target
// within the same dispatch pass, so a resolved target is never
// dispatched to again
func (o *Orchestrator) resolve(report *RolloutReport, outcome Outcome) {
	delete(o.targets, outcome.Deployment)
	o.active.Delete(outcome.Deployment)
	report.Outcomes = append(report.Outcomes, outcome)

	if outcome.IsSuccess() {
		log.Log.Infow("rollout converged",
			"deployment", outcome.Deployment,
			"build", outcome.Build,
			"succeeded", outcome.Succeeded,
			"desired", outcome.Desired,
		)
		return
	}
	log.Log.Errorw("rollout failed",
		"deployment", outcome.Deployment,
		"build", outcome.Build,
		"succeeded", outcome.Succeeded,
		"failed", outcome.Failed,
		"desired", outcome.Desired,
	)
}

// expire resolves every still-active target once the run context is
// done, distinguishing an interrupt from the global deadline
func (o *Orchestrator) expire(report *RolloutReport, cause error) {
	phase := PhaseTimedOut
	reason := "global deadline exceeded"
	if errors.Is(cause, context.Canceled) {
		phase = PhaseErrored
		reason = "interrupted before resolution"
	}

	unresolved := o.active.ToSortedList()
	log.Log.Errorw(reason, "unresolved", unresolved)

	for _, name := range unresolved {
		target := o.targets[name]
		o.resolve(report, Outcome{
			Deployment: name,
			Build:      target.Build,
			Desired:    target.Deployment.Replicas,
			Phase:      phase,
			Reason:     reason,
		})
	}
}

// abort resolves every still-active target as errored after an
// unrecoverable snapshot failure. The gateway has already exhausted
// its retries at this point.
func (o *Orchestrator) abort(report *RolloutReport, err error) {
	for _, name := range o.active.ToSortedList() {
		target := o.targets[name]
		o.resolve(report, Outcome{
			Deployment: name,
			Build:      target.Build,
			Desired:    target.Deployment.Replicas,
			Phase:      PhaseErrored,
			Reason:     err.Error(),
		})
	}
}
