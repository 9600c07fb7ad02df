// Package logger wraps zap to provide:
//   - a global sugared logger writing a console format to stderr,
//   - context helpers (ToContext/FromContext/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, WarnKV, etc.).
//
// Commands put the logger in their context and library code takes it back out,
// so output stays scoped and structured.
package logger
