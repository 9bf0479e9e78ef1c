package codecov

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"workflow-runner-service/internal/config"
	output "workflow-runner-service/internal/core/ports/output"
)

type client struct {
	baseURL    string
	token      string
	enabled    bool
	httpClient *http.Client
}

// NewClient creates a coverage reporting client adapter
func NewClient(cfg *config.CoverageConfig) output.CoverageClient {
	if !cfg.Enabled {
		return &client{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		enabled: true,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *client) IsAvailable() bool {
	return c.enabled && c.baseURL != ""
}

// Upload sends a coverage report file to the reporting service. The report
// is labelled with the commit, branch, a display name and the matrix flags
// of the job that produced it.
func (c *client) Upload(ctx context.Context, up *output.CoverageUpload) error {
	if !c.enabled {
		return fmt.Errorf("coverage client is disabled")
	}

	report, err := os.ReadFile(up.ReportPath)
	if err != nil {
		return fmt.Errorf("read coverage report: %w", err)
	}

	params := url.Values{}
	params.Set("commit", up.Commit)
	params.Set("branch", up.Branch)
	if up.Name != "" {
		params.Set("name", up.Name)
	}
	if len(up.Flags) > 0 {
		params.Set("flags", strings.Join(up.Flags, ","))
	}
	if up.EnvName != "" {
		params.Set("env", up.EnvName)
	}

	reqURL := fmt.Sprintf("%s/upload/v4?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(report))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	log.WithFields(log.Fields{
		"commit": up.Commit,
		"branch": up.Branch,
		"name":   up.Name,
		"flags":  up.Flags,
		"bytes":  len(report),
	}).Debug("uploading coverage report")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
