package media

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDuration exports parseDuration for testing.
var ParseDuration = parseDuration

// NewWorkspaceWithID creates a workspace with a fixed id.
func NewWorkspaceWithID(root, id string) (*Workspace, error) {
	return newWorkspace(root, id, osFileRemover{})
}
