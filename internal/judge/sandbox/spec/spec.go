// Package spec defines the execution specification and resource limits.
package spec

import "time"

// ResourceLimit describes the limits enforced on one process.
type ResourceLimit struct {
	// WallTime is the wall-clock budget; zero means unbounded.
	WallTime time.Duration
	// OutputBytes caps each of stdout and stderr; zero means the engine default.
	OutputBytes int64
}

// RunSpec is the unified execution specification for one process.
type RunSpec struct {
	WorkDir string
	Cmd     []string
	Env     []string
	Stdin   string
	Limits  ResourceLimit
}
