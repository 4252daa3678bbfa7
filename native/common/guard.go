package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView exposes the operator pause switches to the native modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating calls while the named module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
