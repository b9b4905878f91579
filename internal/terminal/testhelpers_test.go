package terminal

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupCleanEnv controls every variable Detect reads, setting only the ones
// given in envVars.
func setupCleanEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	// NO_COLOR is checked for existence. t.Setenv restores the original
	// value after the test, even when it is unset here.
	t.Setenv("NO_COLOR", envVars["NO_COLOR"])
	if _, specified := envVars["NO_COLOR"]; !specified {
		require.NoError(t, os.Unsetenv("NO_COLOR"))
	}

	valueCheckedVars := append([]string{"CLICOLOR", "CLICOLOR_FORCE", "TERM"}, ciEnvVars...)
	for _, v := range valueCheckedVars {
		t.Setenv(v, envVars[v])
	}
}
