// Package terminal decides whether console output should be treated as
// interactive and whether it may carry ANSI colors.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars contains common CI environment variables
var ciEnvVars = []string{
	"CI",                     // Generic CI indicator
	"CONTINUOUS_INTEGRATION", // Generic CI indicator
	"GITHUB_ACTIONS",         // GitHub Actions
	"TRAVIS",                 // Travis CI
	"CIRCLECI",               // Circle CI
	"JENKINS_URL",            // Jenkins
	"BUILD_NUMBER",           // Jenkins/TeamCity/etc
	"GITLAB_CI",              // GitLab CI
	"APPVEYOR",               // AppVeyor
	"BUILDKITE",              // Buildkite
	"DRONE",                  // Drone CI
	"TF_BUILD",               // Azure DevOps
}

// colorTerminals lists TERM values, or prefixes before a '-', known to
// support basic colors.
var colorTerminals = []string{
	"xterm", "screen", "tmux", "rxvt", "vt100", "vt220",
	"ansi", "linux", "cygwin", "putty", "alacritty", "wezterm",
}

// Options holds the command line overrides.
type Options struct {
	ForceColor   bool // --color
	DisableColor bool // --no-color
	// Interactive overrides terminal detection when set.
	Interactive *bool
}

// Capabilities is the outcome of Detect.
type Capabilities struct {
	interactive bool
	color       bool
}

// Detect inspects out and the environment.
//
// Color is decided in this order: command line options, CLICOLOR_FORCE,
// NO_COLOR (any value, even empty), then for interactive output only the
// TERM capability and CLICOLOR. Output is interactive when out is a
// terminal and no CI system is detected.
func Detect(opts Options, out *os.File) Capabilities {
	interactive := false
	switch {
	case opts.Interactive != nil:
		interactive = *opts.Interactive
	case out != nil:
		interactive = !isCI() && term.IsTerminal(int(out.Fd())) // #nosec G115 -- file descriptors fit in int
	}
	return Capabilities{
		interactive: interactive,
		color:       colorEnabled(opts, interactive),
	}
}

// IsInteractive reports whether output goes to a person at a terminal.
func (c Capabilities) IsInteractive() bool {
	return c.interactive
}

// SupportsColor reports whether ANSI colors may be written.
func (c Capabilities) SupportsColor() bool {
	return c.color
}

func colorEnabled(opts Options, interactive bool) bool {
	if opts.ForceColor {
		return true
	}
	if opts.DisableColor {
		return false
	}
	if isTruthy(os.Getenv("CLICOLOR_FORCE")) {
		return true
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if !interactive || !termSupportsColor(os.Getenv("TERM")) {
		return false
	}
	if cliColor := os.Getenv("CLICOLOR"); cliColor != "" {
		return isTruthy(cliColor)
	}
	return true
}

func isCI() bool {
	for _, envVar := range ciEnvVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		// CI=false and CI=0 are set by some tools outside CI.
		if envVar == "CI" {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "false", "0", "no":
				continue
			}
		}
		return true
	}
	return false
}

func termSupportsColor(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "dumb" {
		return false
	}
	for _, t := range colorTerminals {
		if name == t || strings.HasPrefix(name, t+"-") {
			return true
		}
	}
	return false
}

// isTruthy accepts "1", "true" and "yes", ignoring case.
func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
