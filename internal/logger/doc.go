// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, DebugKV, etc.).
//
// The build and packaging services accept a context and extract the logger
// from it, so every step of a run is logged under the tool's name.
package logger
