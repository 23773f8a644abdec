// Package pkg provides shared utilities for the usbmic firmware.
//
// This package contains common functionality used by every firmware layer,
// from the capture pipeline to the USB audio function:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for peripheral and USB failures
//   - [Status], the result code peripheral control operations report
//   - Component identifiers for log filtering
//
// Like the rest of the firmware core it depends only on the standard
// library so it builds unchanged under TinyGo.
//
// # Logging
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentAudio, "capture started", "rate", 48000)
//
// # Errors
//
//	if errors.Is(err, pkg.ErrBusy) {
//	    // capture already running
//	}
package pkg
