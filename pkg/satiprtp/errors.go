package satiprtp

import "errors"

// ErrNoSession is returned by UpdatePIDs/CloseSession when handle names
// no session currently in the registry.
var ErrNoSession = errors.New("satiprtp: no session for handle")

// ErrIncompleteOpen is returned by Open when required session parameters
// (queue, sockets, peer) are missing.
var ErrIncompleteOpen = errors.New("satiprtp: incomplete session parameters")
