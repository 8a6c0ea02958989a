package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rustsafe/internal/prof"
)

// setupProfiling starts the profiles requested by the persistent
// --cpu-profile, --mem-profile and --runtime-trace flags. The cleanup
// writes them out and may be called more than once.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	var opts prof.Options
	flags := cmd.Root().PersistentFlags()
	for name, dst := range map[string]*string{
		"cpu-profile":   &opts.CPUPath,
		"mem-profile":   &opts.MemPath,
		"runtime-trace": &opts.TracePath,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	if !opts.Enabled() {
		return func() {}, nil
	}

	session, err := prof.Start(opts)
	if err != nil {
		return nil, err
	}
	errOut := cmd.ErrOrStderr()
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(errOut, "profile: %v\n", err)
		}
	}, nil
}
