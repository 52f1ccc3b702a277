package pipeline

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docship/internal/config"
)

// RunContext is the ephemeral per-leg execution context. It carries the
// resolved branch, the matrix variant, and the fully resolved environment
// so stages never read ambient process state. Created at invocation start,
// discarded at invocation end, never persisted.
type RunContext struct {
	LegID   string
	Variant string
	Branch  string
	WorkDir string
	Env     map[string]string
}

// ToolchainVariantEnv is injected into every leg so commands can select the
// toolchain variant under test.
const ToolchainVariantEnv = "DOCSHIP_TOOLCHAIN"

// Expand is a pure function from the pipeline plan to one independent
// RunContext per matrix variant. Contexts share no mutable state, so matrix
// legs can run in parallel without locking.
func Expand(cfg *config.PipelineConfig, branch, workDir string) []RunContext {
	variants := cfg.Variants()
	contexts := make([]RunContext, 0, len(variants))
	for _, variant := range variants {
		env := make(map[string]string, len(cfg.Env)+1)
		for _, kv := range os.Environ() {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					env[kv[:i]] = kv[i+1:]
					break
				}
			}
		}
		for k, v := range cfg.Env {
			env[k] = v
		}
		env[ToolchainVariantEnv] = variant

		contexts = append(contexts, RunContext{
			LegID:   uuid.NewString(),
			Variant: variant,
			Branch:  branch,
			WorkDir: workDir,
			Env:     env,
		})
	}
	return contexts
}

// Environ renders the context environment in the os/exec format, sorted for
// deterministic command invocations.
func (rc RunContext) Environ() []string {
	environ := make([]string, 0, len(rc.Env))
	for k, v := range rc.Env {
		environ = append(environ, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(environ)
	return environ
}
