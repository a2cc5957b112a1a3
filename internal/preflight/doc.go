// Package preflight provides readiness checks for the external binaries,
// directories and transcription endpoint tandem depends on.
//
// The CLI "tandem doctor" command runs RunAll and CheckSystemDeps and renders
// the results; the transcribe commands call RunAll before extracting audio so
// a missing directory or rejected API key fails before any work starts.
package preflight
