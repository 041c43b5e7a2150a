package bootstrap

import "errors"

var (
	ErrUnknownOp         = errors.New("bootstrap: unknown bytecode op")
	ErrUnknownProxyKind  = errors.New("bootstrap: unknown proxy kind")
	ErrUnknownDataKind   = errors.New("bootstrap: unknown static data kind")
	ErrHeapExhausted     = errors.New("bootstrap: heap exhausted during allocation")
	ErrSequenceNotReady  = errors.New("bootstrap: no bytecode sequence authored for this singleton/version yet")
)
