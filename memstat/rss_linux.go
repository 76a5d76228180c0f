package memstat

import (
	"fmt"
	"os"

	"github.com/prometheus/procfs"
)

func residentBytes() (uint64, error) {
	p, err := procfs.NewProc(os.Getpid())
	if err != nil {
		return 0, fmt.Errorf("memstat: open proc: %w", err)
	}
	stat, err := p.Stat()
	if err != nil {
		return 0, fmt.Errorf("memstat: read stat: %w", err)
	}
	return uint64(stat.ResidentMemory()), nil
}
