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

// Package build extracts build identifiers from image references
// following the `build-<number>` tagging convention
package build

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotFound is returned when a text carries no build-tagged image
// reference
var ErrNotFound = errors.New("no build identifier found")

var (
	buildTagRe = regexp.MustCompile(`build-(\d+)`)

	// imageLineRe matches one line of the batched image listing:
	// instance ID followed by the declared image reference
	imageLineRe = regexp.MustCompile(`^(\S+)\s+(\S+)\s*$`)
)

// Extract returns the build identifier of the first build-tagged
// image reference found in the given text, or ErrNotFound
func Extract(text string) (string, error) {
	matches := buildTagRe.FindStringSubmatch(text)
	if matches == nil {
		return "", ErrNotFound
	}
	return matches[1], nil
}

// Tag formats a build identifier back into the image tag convention
func Tag(buildID string) string {
	return "build-" + buildID
}

// ParseInstanceImages parses the batched `instance image` listing
// into a map from instance ID to the build identifier of its declared
// image. Instances whose image carries no build tag are left out of
// the map, so their build stays unresolved instead of failing the
// whole batch.
func ParseInstanceImages(text string) map[string]string {
	builds := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		matches := imageLineRe.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		buildID, err := Extract(matches[2])
		if err != nil {
			continue
		}
		builds[matches[1]] = buildID
	}
	return builds
}

// Rewrite replaces the first build tag occurrence in the given
// manifest with the requested build, returning ErrNotFound when the
// manifest carries no build-tagged image at all
func Rewrite(manifest, newBuild string) (string, error) {
	if !buildTagRe.MatchString(manifest) {
		return "", ErrNotFound
	}

	replaced := false
	result := buildTagRe.ReplaceAllStringFunc(manifest, func(match string) string {
		if replaced {
			return match
		}
		replaced = true
		return Tag(newBuild)
	})
	return result, nil
}
