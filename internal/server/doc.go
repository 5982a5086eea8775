// Package server implements the MCP (Model Context Protocol) server for
// double-helix PSF defocus estimation.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin and
// one response per line on stdout. Logging goes to stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Frame inspection:
//   - dhpsf_load: Frame dimensions, format and bit depth
//   - dhpsf_binarize: Normalized, thresholded mask with a preview
//   - dhpsf_segment: Labeled regions with sizes and centroids
//   - dhpsf_estimate_angle: Lobe centroids, angle and separation
//
// Calibration:
//   - dhpsf_calibrate: Measure a defocus sweep and fit angle against defocus
//   - dhpsf_defocus: Invert a model to turn an angle into defocus
//   - dhpsf_runs: Browse stored calibration runs
//
// Every per-frame tool accepts threshold, polarity, connectivity and method
// overrides; anything omitted falls back to the server's configuration.
//
// # Error Handling
//
// Bad or missing arguments return -32602. Failures while running a tool, such
// as a frame with fewer than two lobes, return -32000 with the Go error string
// in data. No default angle is substituted for a failed frame.
//
// # Usage
//
//	cfg, _ := config.LoadConfig(path)
//	srv, err := server.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
