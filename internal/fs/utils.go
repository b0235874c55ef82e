package fs

import "os"

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// readOnly strips the write bits from a file mode.
func readOnly(mode os.FileMode) os.FileMode {
	return mode &^ 0222
}

func boolXattr(b bool) []byte {
	if b {
		return []byte("true")
	}
	return []byte("false")
}
