package kubernetes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"workflow-runner-service/internal/config"
	output "workflow-runner-service/internal/core/ports/output"
)

var jobGVR = schema.GroupVersionResource{
	Group:    "batch",
	Version:  "v1",
	Resource: "jobs",
}

type runner struct {
	client       dynamic.Interface
	namespace    string
	image        string
	pollInterval time.Duration
}

// NewRunner creates a CommandRunner that executes each step as a batch/v1
// Job in the cluster.
func NewRunner(cfg *config.KubernetesConfig) (output.CommandRunner, error) {
	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "workflow-runner"
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &runner{
		client:       client,
		namespace:    namespace,
		image:        cfg.JobImage,
		pollInterval: pollInterval,
	}, nil
}

func (r *runner) Run(ctx context.Context, cmd output.StepCommand) (*output.StepOutcome, error) {
	obj := r.buildJob(cmd)
	name := obj.GetName()

	created, err := r.client.Resource(jobGVR).
		Namespace(r.namespace).
		Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}

	defer func() {
		policy := metav1.DeletePropagationBackground
		_ = r.client.Resource(jobGVR).
			Namespace(r.namespace).
			Delete(context.Background(), name, metav1.DeleteOptions{PropagationPolicy: &policy})
	}()

	outcome, err := r.waitForJob(ctx, name)
	if err != nil {
		return nil, err
	}
	outcome.Output = fmt.Sprintf("batch job %s/%s (uid %s): %s",
		r.namespace, name, created.GetUID(), outcome.Output)
	return outcome, nil
}

func (r *runner) waitForJob(ctx context.Context, name string) (*output.StepOutcome, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		obj, err := r.client.Resource(jobGVR).
			Namespace(r.namespace).
			Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("get batch job: %w", err)
		}

		succeeded, _, _ := unstructured.NestedInt64(obj.Object, "status", "succeeded")
		failed, _, _ := unstructured.NestedInt64(obj.Object, "status", "failed")

		if succeeded > 0 {
			return &output.StepOutcome{ExitCode: 0, Output: "completed"}, nil
		}
		if failed > 0 {
			return &output.StepOutcome{ExitCode: 1, Output: "failed"}, nil
		}
	}
}

func (r *runner) buildJob(cmd output.StepCommand) *unstructured.Unstructured {
	shell := cmd.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	var env []interface{}
	keys := make([]string, 0, len(cmd.Env))
	for k := range cmd.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, map[string]interface{}{
			"name":  k,
			"value": cmd.Env[k],
		})
	}

	backoffLimit := int64(0)

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "batch/v1",
			"kind":       "Job",
			"metadata": map[string]interface{}{
				"name": jobName(cmd),
				"labels": map[string]interface{}{
					"workflow-runner/run-id": cmd.RunID,
				},
			},
			"spec": map[string]interface{}{
				"backoffLimit": backoffLimit,
				"template": map[string]interface{}{
					"spec": map[string]interface{}{
						"restartPolicy": "Never",
						"containers": []interface{}{
							map[string]interface{}{
								"name":    "step",
								"image":   r.image,
								"command": []interface{}{shell, "-c", cmd.Script},
								"env":     env,
							},
						},
					},
				},
			},
		},
	}
}

// jobName derives a DNS-safe, unique-per-step resource name.
func jobName(cmd output.StepCommand) string {
	sanitize := func(s string) string {
		s = strings.ToLower(s)
		var b strings.Builder
		for _, r := range s {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else {
				b.WriteRune('-')
			}
		}
		return strings.Trim(b.String(), "-")
	}

	name := fmt.Sprintf("wr-%s-%s-%s", sanitize(cmd.RunID), sanitize(cmd.JobName), sanitize(cmd.StepName))
	// Truncation alone can make two long step names collide, so the random
	// suffix always survives the 63-char resource-name cap.
	if len(name) > 54 {
		name = name[:54]
	}
	return strings.Trim(name, "-") + "-" + uuid.New().String()[:8]
}
