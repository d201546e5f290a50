// Package version reports the build version of rpcclient.
//
// Version, Commit and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/rpcclient/version.Version=1.2.0"
//
// Unset values fall back to the VCS stamps embedded by the Go toolchain.
package version
