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

package inventory

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// instanceLineRe matches one line of the tabular instance
	// listing: name, ready/total, lifecycle state, restart count
	instanceLineRe = regexp.MustCompile(
		`^(\S+)\s+(\d+)/(\d+)\s+(\S+)\s+(\d+)`)

	// deploymentLineRe matches one line of the tabular deployment
	// listing: name, ready/desired
	deploymentLineRe = regexp.MustCompile(
		`^(\S+)\s+(\d+)/(\d+)`)

	// hashSuffixRe matches one trailing generated suffix of an
	// instance ID. The generated segments always carry at least one
	// digit, which keeps dashed deployment names intact.
	hashSuffixRe = regexp.MustCompile(`-[a-z0-9]*[0-9][a-z0-9]*$`)
)

// ParseInstances converts the tabular instance listing into typed
// records, one per well-formed line, in input order. Lines not
// matching the expected shape (headers, empty lines, transient
// garbage) are skipped silently: an empty result is a valid outcome,
// not an error.
func ParseInstances(text string) []Instance {
	var result []Instance
	for _, line := range strings.Split(text, "\n") {
		matches := instanceLineRe.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		readyCount, _ := strconv.Atoi(matches[2])
		totalCount, _ := strconv.Atoi(matches[3])
		restarts, _ := strconv.Atoi(matches[5])

		result = append(result, Instance{
			ID:       matches[1],
			Name:     OwnerName(matches[1]),
			Ready:    readyCount == totalCount,
			State:    State(matches[4]),
			Restarts: restarts,
		})
	}
	return result
}

// ParseDeployments converts the tabular deployment listing into typed
// records. The desired replica count is the denominator of the READY
// column. Malformed lines are skipped like in ParseInstances.
func ParseDeployments(text string) []Deployment {
	var result []Deployment
	for _, line := range strings.Split(text, "\n") {
		matches := deploymentLineRe.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		desired, _ := strconv.Atoi(matches[3])
		result = append(result, Deployment{
			Name:     matches[1],
			Replicas: desired,
		})
	}
	return result
}

// OwnerName derives the owning deployment name of an instance ID by
// stripping the two trailing generated suffixes (the replica-set hash
// and the instance hash). An ID without such suffixes is its own
// owner name.
func OwnerName(id string) string {
	name := id
	for i := 0; i < 2; i++ {
		stripped := hashSuffixRe.ReplaceAllString(name, "")
		if stripped == "" {
			break
		}
		name = stripped
	}
	return name
}
