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

import "time"

// Phase is the terminal phase of a rollout target
type Phase string

const (
	// PhaseConverged means every desired instance reached the new
	// build and became ready
	PhaseConverged Phase = "Converged"

	// PhaseErrored means the target resolved with at least one
	// failed instance, or its update was never accepted
	PhaseErrored Phase = "Errored"

	// PhaseTimedOut means the target was still unresolved when the
	// global deadline fired
	PhaseTimedOut Phase = "TimedOut"

	// PhaseSkipped means the requested input could not be mapped to
	// exactly one deployment and was never acted on
	PhaseSkipped Phase = "Skipped"
)

// Outcome is the terminal result of one rollout target
type Outcome struct {
	// Deployment is the target deployment name, or the raw user
	// input for skipped targets
	Deployment string `json:"deployment"`

	// Build is the expected build identifier
	Build string `json:"build,omitempty"`

	// Phase is the terminal phase
	Phase Phase `json:"phase"`

	// Succeeded and Failed count the matching-build instances at
	// resolution time; Desired is the declared replica count
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Desired   int `json:"desired"`

	// Reason carries the error detail for non-converged phases
	Reason string `json:"reason,omitempty"`
}

// IsSuccess tells whether the outcome is a full success
func (o Outcome) IsSuccess() bool {
	return o.Phase == PhaseConverged
}

// RolloutReport is the structured result of a whole polling run
type RolloutReport struct {
	// Outcomes holds one entry per resolved target, in resolution
	// order
	Outcomes []Outcome `json:"outcomes"`

	// Elapsed is the wall-clock duration of the polling loop
	Elapsed time.Duration `json:"elapsed"`
}

// Succeeded tells whether every target of the run converged
func (r *RolloutReport) Succeeded() bool {
	for _, outcome := range r.Outcomes {
		if !outcome.IsSuccess() {
			return false
		}
	}
	return true
}
