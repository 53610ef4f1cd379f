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
	"encoding/json"
	"fmt"
	"time"

	"github.com/cheynewallace/tabby"
	"github.com/logrusorgru/aurora/v4"

	"github.com/kubetools/kubedeploy/pkg/convergence"
	"github.com/kubetools/kubedeploy/pkg/inventory"
)

// timePrecision is the rounding applied to reported durations
const timePrecision = time.Second

// OutputFormat represents the output formats supported by this command
type OutputFormat string

const (
	// OutputFormatText means a human-readable console report
	OutputFormatText OutputFormat = "text"

	// OutputFormatJSON means a machine-readable JSON report
	OutputFormatJSON OutputFormat = "json"
)

// Print renders the invocation result in the requested format
func Print(result *Result, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	case OutputFormatText:
		printText(result)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printText(result *Result) {
	for _, report := range result.Reports {
		printDeploymentReport(report)
	}

	if len(result.Outcomes) == 0 {
		return
	}

	table := tabby.New()
	table.AddHeader("DEPLOYMENT", "BUILD", "PHASE", "READY", "FAILED", "REASON")
	for _, outcome := range result.Outcomes {
		table.AddLine(
			outcome.Deployment,
			outcome.Build,
			colorPhase(outcome.Phase),
			fmt.Sprintf("%d/%d", outcome.Succeeded, outcome.Desired),
			outcome.Failed,
			outcome.Reason,
		)
	}
	table.Print()

	if result.Failed() {
		fmt.Println(aurora.Red("Rollout failed"), "after", result.Elapsed.Round(timePrecision))
		return
	}
	fmt.Println(aurora.Green("Rollout succeeded"), "after", result.Elapsed.Round(timePrecision))
}

func printDeploymentReport(report DeploymentReport) {
	header := fmt.Sprintf("Deployment %v", report.Deployment.Name)
	fmt.Println(aurora.Bold(header))

	summary := tabby.New()
	summary.AddLine("Desired instances:", report.Deployment.Replicas)
	if report.Build != "" {
		summary.AddLine("Configured build:", report.Build)
	}
	summary.Print()

	if len(report.Instances) == 0 {
		fmt.Println(aurora.Yellow("No instances found"))
		fmt.Println()
		return
	}

	table := tabby.New()
	table.AddHeader("INSTANCE", "READY", "STATUS", "RESTARTS", "BUILD")
	for _, instance := range report.Instances {
		table.AddLine(
			instance.ID,
			instance.Ready,
			colorState(instance),
			instance.Restarts,
			instance.Build,
		)
	}
	table.Print()
	fmt.Println()
}

func colorState(instance inventory.Instance) string {
	switch {
	case instance.State.IsFailure():
		return aurora.Red(instance.State).String()
	case instance.State == inventory.StateRunning && instance.Ready:
		return aurora.Green(instance.State).String()
	default:
		return aurora.Yellow(instance.State).String()
	}
}

func colorPhase(phase convergence.Phase) string {
	switch phase {
	case convergence.PhaseConverged:
		return aurora.Green(phase).String()
	case convergence.PhaseSkipped:
		return aurora.Yellow(phase).String()
	default:
		return aurora.Red(phase).String()
	}
}
