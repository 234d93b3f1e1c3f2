// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

import "fmt"

// Version is the release version, "dev" for local builds
var Version = "dev"

const (
	// Product is advertised over mDNS and shown by -version
	Product = "pcmchunk"

	// Manufacturer identifies the project
	Manufacturer = "Resonate Protocol"
)

// String returns the product and version for display
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
