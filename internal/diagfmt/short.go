package diagfmt

import (
	"fmt"
	"io"

	"rustsafe/internal/diag"
	"rustsafe/internal/source"
)

// Short prints one line per diagnostic: <path>:<line>:<col>: <SEV> <CODE>: <Message>.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode source.PathMode) {
	for _, d := range bag.Items() {
		f := fileOf(fs, d.Primary)
		if f == nil {
			fmt.Fprintf(w, "%s %s: %s\n", d.Severity, d.Code.ID(), d.Message)
			continue
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", location(fs, f, d.Primary, mode), d.Severity, d.Code.ID(), d.Message)
	}
}
