//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package zkproof

// fileLock 该平台没有flock，只依赖原子重命名
type fileLock struct{}

func acquireFileLock(string) (*fileLock, error) { return &fileLock{}, nil }

func (l *fileLock) release() {}
