package recording

import "github.com/shirou/gopsutil/v4/mem"

const gigabyte = 1024 * 1024 * 1024

// defaultMaxSeconds returns the RAM-tiered recording time limit (§4.C):
// <=8GB -> 360s, 9-16GB -> 480s, >16GB -> 720s. Falls back to the smallest
// tier if system memory cannot be queried.
func defaultMaxSeconds() int {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 360
	}
	gb := vm.Total / gigabyte
	switch {
	case gb <= 8:
		return 360
	case gb <= 16:
		return 480
	default:
		return 720
	}
}
