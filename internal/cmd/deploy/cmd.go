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
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kubetools/kubedeploy/pkg/cluster"
	"github.com/kubetools/kubedeploy/pkg/convergence"
	"github.com/kubetools/kubedeploy/pkg/log"
)

// Flags binds the command line surface of kubectl-deploy
type Flags struct {
	Namespace  string
	Kubeconfig string
	Timeout    uint
	Interval   uint
	Output     string
	Verbose    bool
}

// AddFlags binds the configuration flags to a given flagset
func (f *Flags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&f.Namespace, "namespace", "n", "",
		"The namespace to operate in, defaulting to the connection default")
	flags.StringVar(&f.Kubeconfig, "kubeconfig", "",
		"Path to the credential file to use for cluster commands")
	flags.UintVar(&f.Timeout, "timeout", uint(convergence.DefaultTimeout/time.Second),
		"The global rollout deadline, in seconds, shared by every target")
	flags.UintVar(&f.Interval, "interval", uint(convergence.DefaultInterval/time.Second),
		"The pause between two health polls, in seconds")
	flags.StringVarP(&f.Output, "output", "o", "text",
		"Output format. One of text|json")
	flags.BoolVarP(&f.Verbose, "verbose", "v", false,
		"Print debug logging, including command retries")
}

// NewCmd creates the kubectl-deploy root command
func NewCmd() *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "kubectl-deploy deployment[=build] [deployment[=build] ...]",
		Short: "Roll deployments to a new build and wait for convergence",
		Long: "For every deployment[=build] argument, rewrite the deployment image " +
			"to the requested build and poll the cluster until the desired number " +
			"of replacement instances is healthy. An argument without =build " +
			"prints a read-only report of the deployment instead.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Configure(flags.Verbose)
			if err := ConfigureColor(cmd); err != nil {
				return err
			}

			client := cluster.NewClient(flags.Namespace, flags.Kubeconfig)
			opts := Options{
				Interval: time.Duration(flags.Interval) * time.Second,
				Timeout:  time.Duration(flags.Timeout) * time.Second,
			}

			result, err := Run(cmd.Context(), client, opts, args)
			if err != nil {
				return err
			}
			if err := Print(result, OutputFormat(flags.Output)); err != nil {
				return err
			}

			if result.Failed() {
				return fmt.Errorf("%d of %d targets did not converge",
					countUnresolved(result), len(result.Outcomes))
			}
			return nil
		},
	}

	flags.AddFlags(cmd.Flags())
	AddColorControlFlags(cmd)

	return cmd
}

func countUnresolved(result *Result) int {
	count := 0
	for _, outcome := range result.Outcomes {
		if !outcome.IsSuccess() {
			count++
		}
	}
	return count
}
