// Package gate decides whether a pipeline leg is eligible to publish.
package gate

// ShouldDeploy reports whether the deploy phase runs. The decision is pure:
// deploy proceeds only when the current branch exactly equals the configured
// target branch. A build on no branch (detached HEAD, tag) has an empty
// current branch and never deploys.
func ShouldDeploy(currentBranch, targetBranch string) bool {
	if currentBranch == "" {
		return false
	}
	return currentBranch == targetBranch
}
