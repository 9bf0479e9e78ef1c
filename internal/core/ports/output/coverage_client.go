package ports

import "context"

// CoverageUpload carries one coverage report to the reporting service,
// labelled with the commit it was collected from and the matrix values of
// the job that produced it.
type CoverageUpload struct {
	Commit     string
	Branch     string
	Name       string
	Flags      []string
	EnvName    string
	ReportPath string
}

// CoverageClient defines the contract for the external coverage reporting
// service.
type CoverageClient interface {
	// IsAvailable returns true if the client is configured and reachable
	IsAvailable() bool

	// Upload sends a coverage report
	Upload(ctx context.Context, up *CoverageUpload) error
}
