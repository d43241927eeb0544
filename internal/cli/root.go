package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flashplan/pkg/buildinfo"
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	buildinfo.Version = v
	buildinfo.Commit = c
	buildinfo.Date = d
}

// Execute runs the flashplan CLI with args and returns an error if any
// command fails. Logs go to logw at info level, or debug with --verbose.
//
// Example:
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Stderr, os.Args[1:]); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, logw io.Writer, args []string) error {
	var verbose bool

	c := New(logw, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		return loadConfig(cmd, args)
	}

	return root.ExecuteContext(ctx)
}
