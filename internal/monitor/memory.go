package monitor

import (
	"fmt"
	"math"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryProbe reports the resident memory of the running process
type MemoryProbe interface {
	ResidentMB() (float64, error)
}

// MemoryProbeFunc adapts a function to MemoryProbe
type MemoryProbeFunc func() (float64, error)

// ResidentMB calls f()
func (f MemoryProbeFunc) ResidentMB() (float64, error) {
	return f()
}

// ProcessMemory reads the resident set size of the current process
type ProcessMemory struct {
	proc *process.Process
}

// NewProcessMemory creates a probe for the current process
func NewProcessMemory() (*ProcessMemory, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open process: %w", err)
	}
	return &ProcessMemory{proc: proc}, nil
}

// ResidentMB returns the resident set size in megabytes, rounded to four decimals
func (p *ProcessMemory) ResidentMB() (float64, error) {
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to get memory usage: %w", err)
	}
	mb := float64(info.RSS) / 1024 / 1024
	return math.Round(mb*10000) / 10000, nil
}
