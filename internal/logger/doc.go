// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for configuration and CLI flags,
//   - convenience functions (Infof, WarnKV, ErrorKV, etc.).
//
// Every pool-guard component receives a context and extracts the logger from
// it, so connection ids, device ids and component names travel with the call.
package logger
