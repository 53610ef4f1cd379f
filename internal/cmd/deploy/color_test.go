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

package deploy

import (
	"github.com/logrusorgru/aurora/v4"
	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// colorized reports whether the default colorizer currently emits
// escape sequences
func colorized() bool {
	return aurora.Green("x").String() != "x"
}

var _ = Describe("Color configuration", func() {
	var cmd *cobra.Command

	BeforeEach(func() {
		cmd = &cobra.Command{}
		AddColorControlFlags(cmd)
	})

	AfterEach(func() {
		aurora.DefaultColorizer = aurora.New()
	})

	It("colorizes by default when a terminal is attached", func() {
		Expect(configureColor(cmd, true)).To(Succeed())
		Expect(colorized()).To(BeTrue())
	})

	It("does not colorize by default without a terminal", func() {
		Expect(configureColor(cmd, false)).To(Succeed())
		Expect(colorized()).To(BeFalse())
	})

	It("honors the colors flag even without a terminal", func() {
		Expect(cmd.Flags().Set("colors", "true")).To(Succeed())
		Expect(configureColor(cmd, false)).To(Succeed())
		Expect(colorized()).To(BeTrue())
	})

	It("honors the no-colors flag on a terminal", func() {
		Expect(cmd.Flags().Set("no-colors", "true")).To(Succeed())
		Expect(configureColor(cmd, true)).To(Succeed())
		Expect(colorized()).To(BeFalse())
	})
})
