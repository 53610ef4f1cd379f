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

// Package cluster is the command-level facade over the cluster
// control plane. Every query and mutation is issued as an external
// kubectl invocation through the executor; no API client is used.
package cluster

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"

	"github.com/kubetools/kubedeploy/pkg/build"
	"github.com/kubetools/kubedeploy/pkg/executor"
	"github.com/kubetools/kubedeploy/pkg/inventory"
	"github.com/kubetools/kubedeploy/pkg/stringset"
)

// imageColumns asks for one `id image` line per instance, so builds
// can be correlated to instances by id instead of by position
const imageColumns = "NAME:.metadata.name,IMAGE:.spec.containers[*].image"

// Client issues the cluster operations the rollout engine needs,
// qualified with the configured namespace and credentials
type Client struct {
	// Namespace is the cluster namespace to operate in, empty for
	// the connection default
	Namespace string

	// Kubeconfig is the credential file path, empty for the
	// environment default
	Kubeconfig string

	// Exec is the retrying command gateway
	Exec *executor.Executor
}

// NewClient creates a Client with the default retry policy
func NewClient(namespace, kubeconfig string) *Client {
	return &Client{
		Namespace:  namespace,
		Kubeconfig: kubeconfig,
		Exec:       executor.New(),
	}
}

// command composes a kubectl invocation with the context qualifiers
// appended, quoting every argument
func (c *Client) command(args ...string) string {
	full := append([]string{"kubectl"}, args...)
	if c.Namespace != "" {
		full = append(full, "-n", c.Namespace)
	}
	if c.Kubeconfig != "" {
		full = append(full, "--kubeconfig", c.Kubeconfig)
	}
	return shellquote.Join(full...)
}

// Instances lists every instance of the namespace
func (c *Client) Instances(ctx context.Context) ([]inventory.Instance, error) {
	out, err := c.Exec.Run(ctx, "list instances", c.command("get", "pods"))
	if err != nil {
		return nil, err
	}
	return inventory.ParseInstances(out), nil
}

// Deployments lists every deployment of the namespace
func (c *Client) Deployments(ctx context.Context) ([]inventory.Deployment, error) {
	out, err := c.Exec.Run(ctx, "list deployments", c.command("get", "deployments"))
	if err != nil {
		return nil, err
	}
	return inventory.ParseDeployments(out), nil
}

// InstancesOf snapshots the instances belonging to the given owner
// deployments, with their builds resolved through one batched image
// query. Instances whose image carries no build tag keep an empty
// build.
func (c *Client) InstancesOf(ctx context.Context, owners []string) ([]inventory.Instance, error) {
	instances, err := c.Instances(ctx)
	if err != nil {
		return nil, err
	}

	ownerSet := stringset.From(owners)
	matching := make([]inventory.Instance, 0, len(instances))
	ids := make([]string, 0, len(instances))
	for _, instance := range instances {
		if !ownerSet.Has(instance.Name) {
			continue
		}
		matching = append(matching, instance)
		ids = append(ids, instance.ID)
	}
	if len(matching) == 0 {
		return matching, nil
	}

	// instances can vanish between the listing and this query during a
	// rollout; a missing one keeps an unresolved build instead of
	// failing the whole snapshot
	args := append([]string{"get", "pods"}, ids...)
	args = append(args, "-o", "custom-columns="+imageColumns, "--no-headers", "--ignore-not-found")
	out, err := c.Exec.Run(ctx, "resolve instance builds", c.command(args...))
	if err != nil {
		return nil, err
	}

	builds := build.ParseInstanceImages(out)
	for i := range matching {
		matching[i].Build = builds[matching[i].ID]
	}
	return matching, nil
}

// Manifest fetches the declared manifest of a deployment, retrying
// transient failures
func (c *Client) Manifest(ctx context.Context, name string) (string, error) {
	return c.Exec.Run(ctx,
		fmt.Sprintf("get manifest %v", name),
		c.command("get", "deployment", name, "-o", "yaml"))
}

// ManifestOnce fetches the declared manifest of a deployment with a
// single attempt. It exists for callers composing fetch and replace
// into one retried unit.
func (c *Client) ManifestOnce(ctx context.Context, name string) (string, error) {
	return c.Exec.RunUnchecked(ctx, c.command("get", "deployment", name, "-o", "yaml"), "")
}

// ReplaceOnce re-applies a rewritten manifest with a single attempt
func (c *Client) ReplaceOnce(ctx context.Context, manifest string) error {
	_, err := c.Exec.RunUnchecked(ctx, c.command("replace", "-f", "-"), manifest)
	return err
}
