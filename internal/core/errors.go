package core

import "errors"

// ErrUnknownModule is returned when a module ID is not in the registry.
var ErrUnknownModule = errors.New("core: unknown module")
