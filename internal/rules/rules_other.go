//go:build !linux && !windows

package rules

import (
	"fmt"
	"runtime"
)

type unsupportedManager struct{}

func New(cfg Config) Manager { return unsupportedManager{} }

func (unsupportedManager) Install() error {
	return fmt.Errorf("rules: %s is unsupported", runtime.GOOS)
}

func (unsupportedManager) Cleanup() error { return nil }
