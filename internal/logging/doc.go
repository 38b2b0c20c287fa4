// Package logging provides the leveled logging interface for recview.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// Output goes to the console through zerolog. Configure adds a rotating log
// file (lumberjack) next to the console output when LOG_FILE is set.
//
// The log level is taken from DEBUG or LOG_LEVEL unless Configure is given an
// explicit level.
package logging
