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

package convergence

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubetools/kubedeploy/pkg/inventory"
)

const (
	testInterval = 5 * time.Millisecond
	testTimeout  = 250 * time.Millisecond
)

func newTarget(name string, replicas int, build string) *Target {
	return &Target{
		Deployment: inventory.Deployment{Name: name, Replicas: replicas},
		Build:      build,
	}
}

func fixedSnapshot(instances []inventory.Instance) SnapshotFunc {
	return func(_ context.Context, _ []string) ([]inventory.Instance, error) {
		return instances, nil
	}
}

var _ = Describe("Convergence orchestrator", func() {
	It("returns immediately with no registered targets", func(ctx SpecContext) {
		orchestrator := NewOrchestrator(fixedSnapshot(nil), testInterval, testTimeout)
		var report *RolloutReport = orchestrator.Watch(ctx)
		Expect(report.Outcomes).To(BeEmpty())
		Expect(report.Succeeded()).To(BeTrue())
	})

	It("resolves every target and empties the active set", func(ctx SpecContext) {
		snapshot := fixedSnapshot([]inventory.Instance{
			instance("myapp", "42", inventory.StateRunning, true),
			instance("myapp", "42", inventory.StateRunning, true),
			instance("worker", "42", inventory.StateRunning, true),
		})

		orchestrator := NewOrchestrator(snapshot, testInterval, testTimeout)
		orchestrator.Register(newTarget("myapp", 2, "42"))
		orchestrator.Register(newTarget("worker", 1, "42"))
		Expect(orchestrator.ActiveTargets()).To(Equal(2))

		report := orchestrator.Watch(ctx)
		Expect(orchestrator.ActiveTargets()).To(BeZero())
		Expect(report.Outcomes).To(HaveLen(2))
		Expect(report.Succeeded()).To(BeTrue())
	})

	It("keeps other targets running when one resolves as errored", func(ctx SpecContext) {
		snapshot := fixedSnapshot([]inventory.Instance{
			instance("myapp", "42", inventory.StateRunning, true),
			instance("myapp", "42", inventory.StateError, false),
			instance("worker", "42", inventory.StateRunning, true),
		})

		orchestrator := NewOrchestrator(snapshot, testInterval, testTimeout)
		orchestrator.Register(newTarget("myapp", 2, "42"))
		orchestrator.Register(newTarget("worker", 1, "42"))

		report := orchestrator.Watch(ctx)
		Expect(report.Outcomes).To(HaveLen(2))
		Expect(report.Succeeded()).To(BeFalse())

		phases := map[string]Phase{}
		for _, outcome := range report.Outcomes {
			phases[outcome.Deployment] = outcome.Phase
		}
		Expect(phases["myapp"]).To(Equal(PhaseErrored))
		Expect(phases["worker"]).To(Equal(PhaseConverged))
	})

	It("reports every unresolved target when the deadline fires", func(ctx SpecContext) {
		// transient instances never resolve, only the deadline ends
		// this run
		snapshot := fixedSnapshot([]inventory.Instance{
			instance("myapp", "42", inventory.StateContainerCreating, false),
		})

		orchestrator := NewOrchestrator(snapshot, testInterval, 30*time.Millisecond)
		orchestrator.Register(newTarget("myapp", 1, "42"))
		orchestrator.Register(newTarget("worker", 2, "42"))

		report := orchestrator.Watch(ctx)
		Expect(report.Outcomes).To(HaveLen(2))
		for _, outcome := range report.Outcomes {
			Expect(outcome.Phase).To(Equal(PhaseTimedOut))
			Expect(outcome.Reason).To(ContainSubstring("deadline"))
		}
		Expect(orchestrator.ActiveTargets()).To(BeZero())
	})

	It("resolves a converged target before the deadline ends the rest", func(ctx SpecContext) {
		snapshot := fixedSnapshot([]inventory.Instance{
			instance("myapp", "42", inventory.StateRunning, true),
			instance("worker", "42", inventory.StateContainerCreating, false),
		})

		orchestrator := NewOrchestrator(snapshot, testInterval, 50*time.Millisecond)
		orchestrator.Register(newTarget("myapp", 1, "42"))
		orchestrator.Register(newTarget("worker", 1, "42"))

		report := orchestrator.Watch(ctx)
		phases := map[string]Phase{}
		for _, outcome := range report.Outcomes {
			phases[outcome.Deployment] = outcome.Phase
		}
		Expect(phases["myapp"]).To(Equal(PhaseConverged))
		Expect(phases["worker"]).To(Equal(PhaseTimedOut))
	})

	It("marks every remaining target errored when the snapshot query fails", func(ctx SpecContext) {
		failing := func(_ context.Context, _ []string) ([]inventory.Instance, error) {
			return nil, errors.New("list instances failed after 30 attempts")
		}

		orchestrator := NewOrchestrator(failing, testInterval, testTimeout)
		orchestrator.Register(newTarget("myapp", 1, "42"))

		report := orchestrator.Watch(ctx)
		Expect(report.Outcomes).To(HaveLen(1))
		Expect(report.Outcomes[0].Phase).To(Equal(PhaseErrored))
		Expect(report.Outcomes[0].Reason).To(ContainSubstring("list instances failed"))
	})

	It("reports an interrupt as errored, not as a timeout", func(ctx SpecContext) {
		snapshot := fixedSnapshot([]inventory.Instance{
			instance("myapp", "42", inventory.StateContainerCreating, false),
		})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		orchestrator := NewOrchestrator(snapshot, testInterval, testTimeout)
		orchestrator.Register(newTarget("myapp", 1, "42"))

		report := orchestrator.Watch(cancelled)
		Expect(report.Outcomes).To(HaveLen(1))
		Expect(report.Outcomes[0].Phase).To(Equal(PhaseErrored))
		Expect(report.Outcomes[0].Reason).To(ContainSubstring("interrupted"))
	})

	It("queries once per tick for all active targets", func(ctx SpecContext) {
		var queried [][]string
		snapshot := func(_ context.Context, owners []string) ([]inventory.Instance, error) {
			queried = append(queried, owners)
			return []inventory.Instance{
				instance("myapp", "42", inventory.StateRunning, true),
				instance("worker", "42", inventory.StateRunning, true),
			}, nil
		}

		orchestrator := NewOrchestrator(snapshot, testInterval, testTimeout)
		orchestrator.Register(newTarget("myapp", 1, "42"))
		orchestrator.Register(newTarget("worker", 1, "42"))

		orchestrator.Watch(ctx)
		Expect(queried).To(HaveLen(1))
		Expect(queried[0]).To(Equal([]string{"myapp", "worker"}))
	})
})
