package areastate

import "errors"

// ErrNoInteractTarget means a mandatory interaction point could not be found.
// The automation controller should halt instead of retrying.
var ErrNoInteractTarget = errors.New("no interaction target")
