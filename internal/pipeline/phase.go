package pipeline

// Phase enumerates the states of a pipeline leg.
type Phase string

const (
	PhaseInit            Phase = "INIT"
	PhaseBuilding        Phase = "BUILDING"
	PhaseBuildFailed     Phase = "BUILD_FAILED"
	PhaseBuilt           Phase = "BUILT"
	PhasePreDeploy       Phase = "PRE_DEPLOY"
	PhasePreDeployFailed Phase = "PRE_DEPLOY_FAILED"
	PhaseStaged          Phase = "STAGED"
	PhaseGateCheck       Phase = "GATE_CHECK"
	PhaseSkipped         Phase = "SKIPPED"
	PhasePublishing      Phase = "PUBLISHING"
	PhasePublishFailed   Phase = "PUBLISH_FAILED"
	PhasePublished       Phase = "PUBLISHED"
)

// Terminal reports whether the phase ends the leg.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseBuildFailed, PhasePreDeployFailed, PhaseSkipped, PhasePublishFailed, PhasePublished:
		return true
	}
	return false
}

// Failure reports whether a terminal phase marks the leg as failed.
// SKIPPED is a successful outcome: a missed branch condition is a no-op,
// not a failure.
func (p Phase) Failure() bool {
	switch p {
	case PhaseBuildFailed, PhasePreDeployFailed, PhasePublishFailed:
		return true
	}
	return false
}
