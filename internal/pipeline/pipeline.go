// Package pipeline drives the phase state machine of a pipeline leg:
// build, pre-deploy, deploy gate, staging and publish.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/docship/internal/config"
	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/gate"
	"git.home.luguber.info/inful/docship/internal/gitinfo"
	"git.home.luguber.info/inful/docship/internal/history"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/metrics"
	"git.home.luguber.info/inful/docship/internal/publish"
	"git.home.luguber.info/inful/docship/internal/runner"
	"git.home.luguber.info/inful/docship/internal/staging"
	"git.home.luguber.info/inful/docship/internal/workspace"
)

// Deps are the injectable collaborators of a pipeline run.
type Deps struct {
	Store    history.Store
	Recorder metrics.Recorder
}

func (d *Deps) defaults() {
	if d.Store == nil {
		d.Store = history.NoopStore{}
	}
	if d.Recorder == nil {
		d.Recorder = metrics.NoopRecorder{}
	}
}

// Options configure a pipeline invocation.
type Options struct {
	// Branch is the resolved current branch ("" when detached).
	Branch string
	// WorkDir is the repository root commands run in.
	WorkDir string
	// OnlyVariant restricts the run to a single matrix leg.
	OnlyVariant string
	// Parallel runs matrix legs concurrently. Each leg stays fully
	// sequential internally; legs share no mutable state.
	Parallel bool

	Deps Deps
}

// Result is the outcome of one pipeline leg.
type Result struct {
	LegID    string
	Variant  string
	Phase    Phase
	Err      error
	Duration time.Duration
}

// Failed reports whether the leg ended in a failure phase.
func (r Result) Failed() bool { return r.Phase.Failure() }

// Run expands the matrix and executes every leg. The returned error is
// non-nil when any leg failed; SKIPPED legs are successful.
func Run(ctx context.Context, cfg *config.PipelineConfig, opts Options) ([]Result, error) {
	opts.Deps.defaults()

	contexts := Expand(cfg, opts.Branch, opts.WorkDir)
	if opts.OnlyVariant != "" {
		filtered := contexts[:0]
		for _, rc := range contexts {
			if rc.Variant == opts.OnlyVariant {
				filtered = append(filtered, rc)
			}
		}
		if len(filtered) == 0 {
			return nil, apperrors.ConfigError("requested variant not present in toolchain matrix").
				WithContext("variant", opts.OnlyVariant)
		}
		contexts = filtered
	}

	results := make([]Result, len(contexts))
	if opts.Parallel && len(contexts) > 1 {
		// Concurrent legs would otherwise share the working directory and
		// the staging directory. Each leg gets its own copy of the working
		// tree; relative deploy paths resolve against it.
		for i := range contexts {
			legDir, err := isolateWorkDir(contexts[i].WorkDir, contexts[i].Variant)
			if err != nil {
				return nil, err
			}
			defer os.RemoveAll(legDir)
			contexts[i].WorkDir = legDir
		}
		var wg sync.WaitGroup
		for i, rc := range contexts {
			wg.Add(1)
			go func(i int, rc RunContext) {
				defer wg.Done()
				results[i] = runLeg(ctx, rc, cfg, opts.Deps)
			}(i, rc)
		}
		wg.Wait()
	} else {
		for i, rc := range contexts {
			results[i] = runLeg(ctx, rc, cfg, opts.Deps)
		}
	}

	var firstErr error
	for _, res := range results {
		if res.Failed() && firstErr == nil {
			firstErr = fmt.Errorf("leg %s (%s) ended %s: %w", res.LegID, res.Variant, res.Phase, res.Err)
		}
	}
	return results, firstErr
}

// isolateWorkDir copies the working tree into a fresh directory for one
// concurrent leg.
func isolateWorkDir(workDir, variant string) (string, error) {
	legDir, err := os.MkdirTemp("", "docship-leg-"+variant+"-")
	if err != nil {
		return "", apperrors.WorkspaceError("create leg working directory", err)
	}
	if err := staging.CopyTree(workDir, legDir); err != nil {
		os.RemoveAll(legDir)
		return "", apperrors.WorkspaceError("copy working tree for concurrent leg", err).
			WithContext("variant", variant)
	}
	return legDir, nil
}

// resolvePath anchors a relative deploy path at the leg's working directory.
func resolvePath(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

// leg carries the mutable state of one sequential leg execution.
type leg struct {
	rc    RunContext
	cfg   *config.PipelineConfig
	deps  Deps
	run   *runner.Runner
	start time.Time
}

func runLeg(ctx context.Context, rc RunContext, cfg *config.PipelineConfig, deps Deps) Result {
	l := &leg{
		rc:    rc,
		cfg:   cfg,
		deps:  deps,
		run:   runner.New(rc.WorkDir, rc.Environ()),
		start: time.Now(),
	}

	slog.Info("Starting pipeline leg",
		logfields.LegID(rc.LegID),
		logfields.Variant(rc.Variant),
		logfields.Branch(rc.Branch))

	if err := deps.Store.StartLeg(ctx, rc.LegID, rc.Variant, rc.Branch); err != nil {
		slog.Warn("Failed to record leg start", logfields.Error(err))
	}

	return l.execute(ctx)
}

func (l *leg) execute(ctx context.Context) Result {
	// Build phase
	l.transition(ctx, PhaseBuilding)
	if err := l.timedRun(ctx, PhaseBuilding, "build", l.cfg.Script); err != nil {
		return l.finish(ctx, PhaseBuildFailed, err)
	}
	l.transition(ctx, PhaseBuilt)

	// Pre-deploy phase
	l.transition(ctx, PhasePreDeploy)
	if err := l.timedRun(ctx, PhasePreDeploy, "pre_deploy", l.cfg.BeforeDeploy); err != nil {
		return l.finish(ctx, PhasePreDeployFailed, err)
	}
	l.transition(ctx, PhaseStaged)

	// Deploy gate
	l.transition(ctx, PhaseGateCheck)
	spec := l.cfg.Deploy
	if spec == nil {
		l.deps.Recorder.IncStageResult("gate", "skipped")
		slog.Info("No deploy block configured, ending leg", logfields.LegID(l.rc.LegID))
		return l.finish(ctx, PhaseSkipped, nil)
	}
	if !gate.ShouldDeploy(l.rc.Branch, spec.OnBranch) {
		l.deps.Recorder.IncStageResult("gate", "skipped")
		slog.Info("Deploy gate declined",
			logfields.Branch(l.rc.Branch),
			slog.String("target_branch", spec.OnBranch))
		return l.finish(ctx, PhaseSkipped, nil)
	}
	l.deps.Recorder.IncStageResult("gate", "success")

	// Publish phase: staging, credential resolution, upload. The staging
	// workspace is removed afterward on success and failure alike, unless
	// the configuration skips cleanup.
	l.transition(ctx, PhasePublishing)
	publishStart := time.Now()
	err := l.publishOnce(ctx, spec)
	l.deps.Recorder.ObservePhaseDuration(string(PhasePublishing), time.Since(publishStart))
	if !spec.SkipCleanup {
		stagingDir := resolvePath(l.rc.WorkDir, spec.StagingDir)
		if cleanupErr := workspace.NewManager(stagingDir).Cleanup(); cleanupErr != nil {
			slog.Warn("Failed to cleanup staging workspace", logfields.Error(cleanupErr))
		}
	}
	if err != nil {
		l.deps.Recorder.IncPublishResult(string(spec.Provider), "fatal")
		return l.finish(ctx, PhasePublishFailed, err)
	}
	l.deps.Recorder.IncPublishResult(string(spec.Provider), "success")
	return l.finish(ctx, PhasePublished, nil)
}

func (l *leg) publishOnce(ctx context.Context, spec *config.DeploySpec) error {
	stagingDir := resolvePath(l.rc.WorkDir, spec.StagingDir)
	stager := &staging.Stager{
		Source:     resolvePath(l.rc.WorkDir, spec.Source),
		Dir:        stagingDir,
		RedirectTo: spec.RedirectTo,
	}
	if err := stager.Stage(); err != nil {
		l.deps.Recorder.IncStageResult("stage", "fatal")
		return err
	}
	l.deps.Recorder.IncStageResult("stage", "success")

	token, err := publish.CredentialFromEnv(l.rc.Env, spec.TokenEnv)
	if err != nil {
		return err
	}

	remoteURL := spec.RepoURL
	if remoteURL == "" {
		remoteURL, err = gitinfo.OriginURL(l.rc.WorkDir)
		if err != nil {
			return apperrors.PublishError("could not derive publish destination from repository", err)
		}
	}

	publisher, ok := publish.For(config.NormalizeProvider(string(spec.Provider)))
	if !ok {
		// Validation rejects unknown providers; reaching this is a defect.
		return apperrors.InternalError("no publisher registered for provider", nil).
			WithContext("provider", string(spec.Provider))
	}

	message := fmt.Sprintf("deploy %s (%s)", l.rc.Branch, l.rc.Variant)
	return publisher.Publish(ctx, publish.Request{
		StagingDir:  stagingDir,
		RemoteURL:   remoteURL,
		Branch:      spec.PagesBranch,
		Token:       token,
		KeepHistory: spec.KeepHistory,
		Message:     message,
	})
}

// timedRun executes one command-list phase with metrics and fail-fast
// semantics.
func (l *leg) timedRun(ctx context.Context, phase Phase, stage string, commands []string) error {
	start := time.Now()
	err := l.run.Run(ctx, commands)
	l.deps.Recorder.ObservePhaseDuration(string(phase), time.Since(start))
	if err != nil {
		l.deps.Recorder.IncStageResult(stage, "fatal")
		return err
	}
	l.deps.Recorder.IncStageResult(stage, "success")
	return nil
}

func (l *leg) transition(ctx context.Context, phase Phase) {
	slog.Debug("Phase transition",
		logfields.LegID(l.rc.LegID),
		logfields.Phase(string(phase)))
	if err := l.deps.Store.RecordTransition(ctx, l.rc.LegID, string(phase)); err != nil {
		slog.Warn("Failed to record phase transition", logfields.Error(err))
	}
}

func (l *leg) finish(ctx context.Context, phase Phase, err error) Result {
	dur := time.Since(l.start)
	if storeErr := l.deps.Store.FinishLeg(ctx, l.rc.LegID, string(phase), err); storeErr != nil {
		slog.Warn("Failed to record leg finish", logfields.Error(storeErr))
	}

	attrs := []any{
		logfields.LegID(l.rc.LegID),
		logfields.Variant(l.rc.Variant),
		logfields.Phase(string(phase)),
		logfields.DurationMS(float64(dur.Milliseconds())),
	}
	if err != nil {
		attrs = append(attrs, logfields.Error(err))
		slog.Error("Pipeline leg failed", attrs...)
	} else {
		slog.Info("Pipeline leg finished", attrs...)
	}

	return Result{
		LegID:    l.rc.LegID,
		Variant:  l.rc.Variant,
		Phase:    phase,
		Err:      err,
		Duration: dur,
	}
}
