package report

import (
	"math"
	"runtime"
	"unsafe"
)

// ArchInfo describes the host representation of a C int.
type ArchInfo struct {
	Platform    string
	SizeBytes   int
	Min         int64
	Max         int64
	Theoretical string
}

// HostArch returns the int description for the running platform. Every platform Go
// targets uses a 32-bit C int.
func HostArch() ArchInfo {
	return ArchInfo{
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		SizeBytes:   int(unsafe.Sizeof(int32(0))),
		Min:         math.MinInt32,
		Max:         math.MaxInt32,
		Theoretical: "at least 16 bits (ISO C)",
	}
}
