package program

import "errors"

// ErrBadImage reports a structurally invalid .blfm image: a program_start
// that isn't page aligned or a region rel_start that isn't 64 KiB aligned.
// Decode does not check whether regions overlap.
var ErrBadImage = errors.New("program: malformed image")
