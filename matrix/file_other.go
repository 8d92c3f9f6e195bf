//go:build !unix

package matrix

import "os"

// Platforms without mmap support fall back to reading the file into memory.
func mapFile(path string) ([]byte, func([]byte) error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
