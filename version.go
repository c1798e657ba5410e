// Package roost is the root of the roost module. It only carries build metadata.
package roost

// Version is the roost release, overridden at build time with
// -ldflags "-X github.com/simonhull/roost.Version=..."
var Version = "0.1.0"
