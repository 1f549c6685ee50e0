package common

import "errors"

// ModuleBounty names the pause switch covering every mutating bounty
// operation.
const ModuleBounty = "bounty"

// ErrModulePaused is returned when a guarded operation targets a paused
// module.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the owner-controlled pause switches.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the named module is paused. A nil view or
// empty module name means no pause applies.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
