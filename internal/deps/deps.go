// Package deps checks the external binaries demoforge shells out to.
package deps

import (
	"os/exec"
	"strconv"
	"strings"
)

// Requirement names a binary the pipeline runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after lookup. Command holds the resolved path when
// the binary was found.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Check resolves the requirement's command on PATH.
func (r Requirement) Check() Status {
	r.Command = strings.TrimSpace(r.Command)
	r.Description = strings.TrimSpace(r.Description)
	st := Status{Requirement: r}
	if r.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(r.Command)
	if err != nil {
		st.Detail = "binary " + strconv.Quote(r.Command) + " not found"
		return st
	}
	st.Command = path
	st.Available = true
	return st
}

// CheckBinaries checks every requirement in order.
func CheckBinaries(reqs []Requirement) []Status {
	out := make([]Status, len(reqs))
	for i, r := range reqs {
		out[i] = r.Check()
	}
	return out
}

// Missing keeps the unavailable statuses that are not optional.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
