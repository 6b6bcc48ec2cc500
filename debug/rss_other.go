//go:build !windows

package debug

import "github.com/prometheus/procfs"

// residentSet reads the resident set size of this process from procfs.
func residentSet() (uint64, error) {
	p, err := procfs.Self()
	if err != nil {
		return 0, err
	}
	st, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(st.ResidentMemory()), nil
}
