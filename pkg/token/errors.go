package token

import "errors"

// ErrUnknownSpawnToken is returned when a register request presents a
// one-off token the Manager never issued — treated as a spoof attempt.
var ErrUnknownSpawnToken = errors.New("token: unknown spawn token")

// ErrUnknownToken is returned when an operation references a rotating
// token no longer (or never) tracked by the Manager.
var ErrUnknownToken = errors.New("token: unknown token")
