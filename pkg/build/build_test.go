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

package build

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Build extraction", func() {
	It("extracts the digit run of the first build tag", func() {
		Expect(Extract("registry/app:build-42")).To(Equal("42"))
	})

	It("picks the first occurrence when multiple builds appear", func() {
		buildID, err := Extract("registry/app:build-42 registry/worker:build-43")
		Expect(err).ToNot(HaveOccurred())
		Expect(buildID).To(Equal("42"))
	})

	It("reports images without a build tag", func() {
		_, err := Extract("registry/app:latest")
		Expect(err).To(MatchError(ErrNotFound))
	})
})

var _ = Describe("Batched image listing", func() {
	const listing = `myapp-7f8c9d-abc12    registry/app:build-42
myapp-7f8c9d-def34    registry/app:build-41
worker-59b7c6-xk2p9   registry/worker:latest
`

	It("keys builds by instance id", func() {
		builds := ParseInstanceImages(listing)
		Expect(builds).To(HaveLen(2))
		Expect(builds["myapp-7f8c9d-abc12"]).To(Equal("42"))
		Expect(builds["myapp-7f8c9d-def34"]).To(Equal("41"))
	})

	It("leaves instances without a build tag unresolved", func() {
		builds := ParseInstanceImages(listing)
		Expect(builds).ToNot(HaveKey("worker-59b7c6-xk2p9"))
	})

	It("skips malformed lines silently", func() {
		builds := ParseInstanceImages("one two three\n\nmyapp-1-2 registry/app:build-7")
		Expect(builds).To(Equal(map[string]string{"myapp-1-2": "7"}))
	})
})

var _ = Describe("Manifest rewrite", func() {
	It("replaces only the first build tag occurrence", func() {
		rewritten, err := Rewrite("image: registry/app:build-42\nimage: registry/sidecar:build-42\n", "43")
		Expect(err).ToNot(HaveOccurred())
		Expect(rewritten).To(Equal("image: registry/app:build-43\nimage: registry/sidecar:build-42\n"))
	})

	It("fails when the manifest carries no build tag", func() {
		_, err := Rewrite("image: registry/app:latest\n", "43")
		Expect(err).To(MatchError(ErrNotFound))
	})

	It("round-trips through the tag helper", func() {
		Expect(Tag("42")).To(Equal("build-42"))
	})
})
