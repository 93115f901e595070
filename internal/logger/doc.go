// Package logger provides a small wrapper around zap to offer:
//   - a sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing utilities,
//   - leveled helpers that log through the context (InfoKV, ErrorKV and friends).
//
// There is no process-wide logger. A run builds one logger and stores it in
// its context; every component logs through that context.
package logger
