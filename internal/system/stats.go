package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the render runs on.
type HostStats struct {
	LogicalCPUs int
	CPUModel    string
	TotalMemMiB uint64
	UsedPercent float64
	HeapMiB     uint64
}

// ReadHostStats collects host CPU and memory figures. Missing figures are
// left zero; gopsutil is not supported on every platform.
func ReadHostStats() HostStats {
	var s HostStats
	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		s.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemMiB = vm.Total / (1 << 20)
		s.UsedPercent = vm.UsedPercent
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapMiB = ms.HeapAlloc / (1 << 20)
	return s
}

func (s HostStats) String() string {
	return fmt.Sprintf("cpus=%d (%s) mem=%dMiB used=%.1f%% heap=%dMiB",
		s.LogicalCPUs, s.CPUModel, s.TotalMemMiB, s.UsedPercent, s.HeapMiB)
}

// FrameWorkers caps frame workers so in-flight frames fit in a quarter of
// the available memory.
func FrameWorkers(requested, width, height int) int {
	if requested < 1 {
		requested = 1
	}
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Available == 0 {
		return requested
	}
	// Each worker holds a composite frame and a scratch layer.
	perWorker := uint64(width) * uint64(height) * 4 * 2
	if perWorker == 0 {
		return requested
	}
	limit := int(vm.Available / 4 / perWorker)
	if limit < 1 {
		limit = 1
	}
	if requested > limit {
		return limit
	}
	return requested
}
