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
	"fmt"

	"github.com/kubetools/kubedeploy/pkg/inventory"
)

// Target is one deployment being health-checked against an expected
// build. Its evaluation is level-triggered: every snapshot is
// classified from scratch, no partial state survives between ticks.
type Target struct {
	// Deployment carries the name and the desired replica count
	// observed at update start
	Deployment inventory.Deployment

	// Build is the expected build identifier
	Build string
}

// Observe evaluates one snapshot. Only instances owned by the target
// deployment and already carrying the expected build participate:
// instances still on an old build are about to be replaced, not
// evaluated. Succeeded instances are running and ready, failed ones
// are in the hard-failure set, everything else is transient and
// counts toward neither side. The target resolves when succeeded plus
// failed reaches the desired replica count.
func (t *Target) Observe(instances []inventory.Instance) (Outcome, bool) {
	var succeeded, failed int
	for _, instance := range instances {
		if instance.Name != t.Deployment.Name || instance.Build != t.Build {
			continue
		}

		switch {
		case instance.State.IsFailure():
			failed++
		case instance.State == inventory.StateRunning && instance.Ready:
			succeeded++
		}
	}

	if succeeded+failed != t.Deployment.Replicas {
		return Outcome{}, false
	}

	outcome := Outcome{
		Deployment: t.Deployment.Name,
		Build:      t.Build,
		Succeeded:  succeeded,
		Failed:     failed,
		Desired:    t.Deployment.Replicas,
		Phase:      PhaseConverged,
	}
	if failed > 0 {
		outcome.Phase = PhaseErrored
		outcome.Reason = fmt.Sprintf("%d of %d instances failed", failed, t.Deployment.Replicas)
	}
	return outcome, true
}
