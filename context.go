package projectversion

import (
	"os"
	"strings"
	"time"
)

// DefaultBuildNumberVariables are the CI environment variables consulted, in
// order, for a build number.
var DefaultBuildNumberVariables = []string{
	"BUILD_NUMBER",
	"GITHUB_RUN_NUMBER",
	"CI_PIPELINE_IID",
	"CIRCLE_BUILD_NUM",
}

// EnvironmentContext captures a BuildContext from environment variables. The
// build number is taken from the first of vars that is set to a non-empty value,
// falling back to DefaultBuildNumberVariables when vars is empty. A nil lookup
// reads the process environment.
func EnvironmentContext(lookup func(string) (string, bool), now time.Time, vars ...string) BuildContext {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if len(vars) == 0 {
		vars = DefaultBuildNumberVariables
	}

	bctx := BuildContext{Timestamp: now}
	for _, name := range vars {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			bctx.BuildNumber = strings.TrimSpace(value)
			break
		}
	}

	return bctx
}
