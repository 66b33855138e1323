// control/errors.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package control

import (
	"errors"
)

var (
	ErrBadParameter  = errors.New("Malformed command parameter")
	ErrNoCamera      = errors.New("No camera available")
	ErrNoFocusTarget = errors.New("Focus command has no point or item")
	ErrUnknownAction = errors.New("Unknown action")
)
