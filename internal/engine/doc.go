// Package engine contains the static scanner. It walks the asset and mod
// folders of a game directory, applies the single-file policies and stops at
// the first policy violation. The same single-file policies back the live
// monitor. This package is internal; external consumers should use the
// facade in pkg/core.
package engine
