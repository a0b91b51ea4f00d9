// Package sysmem reports available system memory for sizing guards.
package sysmem

import "github.com/prometheus/procfs"

// DefaultBudget stands in when /proc is unreadable, as on non-Linux dev
// machines.
const DefaultBudget = int64(2) << 30

// Available returns MemAvailable in bytes, or fallback when the kernel does
// not expose it. A fallback of zero selects DefaultBudget.
func Available(fallback int64) int64 {
	if fallback <= 0 {
		fallback = DefaultBudget
	}
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return fallback
	}
	info, err := fs.Meminfo()
	if err != nil || info.MemAvailable == nil {
		return fallback
	}
	// meminfo reports kibibytes
	return int64(*info.MemAvailable) * 1024
}
