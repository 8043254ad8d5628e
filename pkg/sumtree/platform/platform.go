// Package platform describes the host for manifest headers.
package platform

import (
	"runtime"
	"strings"
)

// Describe returns a one-line description of the operating system, such as
// "Linux 6.8.0 x86_64". It never fails.
func Describe() string {
	if s := uname(); s != "" {
		return s
	}
	return fallback()
}

func fallback() string {
	return runtime.GOOS + " " + runtime.GOARCH
}

func join(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
