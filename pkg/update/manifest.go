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

package update

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// deploymentManifest is the slice of a deployment manifest the driver
// reads. The rewrite itself is textual, so the manifest is re-applied
// exactly as the cluster returned it.
type deploymentManifest struct {
	Spec struct {
		Template struct {
			Spec struct {
				Containers []struct {
					Name  string `json:"name"`
					Image string `json:"image"`
				} `json:"containers"`
			} `json:"spec"`
		} `json:"template"`
	} `json:"spec"`
}

func firstContainerImage(manifest string) (string, error) {
	var decoded deploymentManifest
	if err := yaml.Unmarshal([]byte(manifest), &decoded); err != nil {
		return "", fmt.Errorf("decoding deployment manifest: %w", err)
	}

	containers := decoded.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return "", fmt.Errorf("deployment manifest declares no containers")
	}
	return containers[0].Image, nil
}
