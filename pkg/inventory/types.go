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

// Package inventory contains the typed view of the cluster status
// snapshots used by the convergence engine
package inventory

// State is the lifecycle state of an instance, as reported by the
// cluster status listing
type State string

// The lifecycle states the health evaluation distinguishes. Anything
// else is kept verbatim and treated as transient.
const (
	StateRunning           State = "Running"
	StatePending           State = "Pending"
	StateContainerCreating State = "ContainerCreating"
	StateTerminating       State = "Terminating"
	StateCrashLoopBackOff  State = "CrashLoopBackOff"
	StateError             State = "Error"
)

// IsFailure tells whether this state belongs to the hard-failure set
func (state State) IsFailure() bool {
	return state == StateError || state == StateCrashLoopBackOff
}

// Instance is the snapshot of a single running replica of a
// deployment. Instances are value snapshots re-created on every poll
// tick; identity across ticks is by ID equality only.
type Instance struct {
	// ID is the instance name, unique within the namespace
	ID string `json:"id"`

	// Name is the owning deployment name, derived from ID
	Name string `json:"name"`

	// Ready is true when every declared container is ready
	Ready bool `json:"ready"`

	// State is the reported lifecycle state
	State State `json:"state"`

	// Restarts is the cumulative restart count
	Restarts int `json:"restarts"`

	// Build is the build identifier extracted from the instance
	// image, empty until resolved from a status snapshot
	Build string `json:"build,omitempty"`
}

// Deployment is a rollout target as listed by the cluster
type Deployment struct {
	// Name is the deployment name, unique within the namespace
	Name string `json:"name"`

	// Replicas is the desired replica count declared by the
	// deployment, read once at update start
	Replicas int `json:"replicas"`
}
