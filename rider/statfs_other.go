//go:build !linux

package rider

func statFilesystem(string) (int64, int64, error) {
	return 0, 0, ErrStorageUnavailable
}
