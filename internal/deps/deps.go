package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Requirement names an external binary the audio pipeline shells out to.
// VersionArgs, when set, are passed to the binary to report its version.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	VersionArgs []string
}

// Status is the resolved state of one Requirement. Command holds the
// resolved path when the binary was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// CheckBinaries resolves each requirement on PATH and, for the ones found,
// records the first line of their version output.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case status.Command == "":
			status.Detail = "command not configured"
		default:
			resolved, err := exec.LookPath(status.Command)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", status.Command)
				break
			}
			status.Command = resolved
			status.Available = true
			if len(req.VersionArgs) > 0 {
				status.Version, _ = Version(ctx, resolved, req.VersionArgs...)
			}
		}
		results = append(results, status)
	}
	return results
}

// Version runs binary with args and returns the first non-empty output line.
func Version(ctx context.Context, binary string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	label := strings.TrimSpace(binary + " " + strings.Join(args, " "))
	output, err := exec.CommandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s: empty output", label)
}
