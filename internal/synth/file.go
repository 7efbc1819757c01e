package synth

import (
	"github.com/nvandessel/doorsim/internal/distribution"
	"github.com/nvandessel/doorsim/internal/eventlog"
)

// WriteFile runs a synthesis and streams its events to path. The file only
// appears once the whole timeline has been emitted; a failed run leaves any
// previous file at path untouched.
func WriteFile(path string, table distribution.Table, opts Options) (Stats, error) {
	r, err := NewRun(table, opts)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	err = eventlog.CreateFile(path, func(w *eventlog.Writer) error {
		var execErr error
		stats, execErr = r.Execute(w.Write)
		return execErr
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}
