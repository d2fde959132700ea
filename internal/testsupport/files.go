package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	writeFilled(t, path, size, nil)
}

// WriteVideoFile writes a file that content sniffing recognizes as MP4. The
// payload is an ftyp box header followed by padding up to the requested size.
func WriteVideoFile(t testing.TB, path string, size int64) {
	t.Helper()

	header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
	writeFilled(t, path, size, header)
}

func writeFilled(t testing.TB, path string, size int64, header []byte) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if size < int64(len(header)) {
		size = int64(len(header))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if len(header) > 0 {
		if _, err := f.Write(header); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size - int64(len(header))
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}
