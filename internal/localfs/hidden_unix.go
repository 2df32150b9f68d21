//go:build !windows

package localfs

func hiddenAttribute(string) bool { return false }
