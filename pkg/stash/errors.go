package stash

import "errors"

// ErrNotStarter is returned by Start when the wrapped executor does not
// implement pgtk.Starter (only the outermost Pool-like component is
// required to).
var ErrNotStarter = errors.New("stash: inner executor does not implement pgtk.Starter")
