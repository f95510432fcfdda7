package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool names an external binary the packager shells out to.
type Tool struct {
	Name    string
	Command string
}

// Status reports how a tool resolved on this system.
type Status struct {
	Name      string
	Command   string
	Path      string
	Available bool
	Detail    string
}

// Resolve looks up each tool's command on PATH. Available tools carry the
// resolved absolute path; unavailable ones carry a Detail naming the cause.
func Resolve(tools []Tool) []Status {
	results := make([]Status, 0, len(tools))
	for _, tool := range tools {
		cmd := strings.TrimSpace(tool.Command)
		status := Status{Name: tool.Name, Command: cmd}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}
