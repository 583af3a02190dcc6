// Package logtail reads the tail of the client's own log file for the Logs
// view.
//
// # Overview
//
// The client logs through log/slog's text handler into a file, since the TUI
// owns the terminal. Tail returns the last n lines of that file as parsed
// entries, and Filter narrows them by level.
//
//	entries, err := logtail.Tail(cfg.LogFile, 400)
//	if err != nil {
//		return err
//	}
//	for _, e := range logtail.Filter(entries, slog.LevelWarn) {
//		fmt.Println(e.Level, e.Message)
//	}
//
// # Reading
//
// Tail scans the file once and keeps a ring buffer of n lines, so memory is
// bounded by n rather than by file size. Lines come back oldest first. A
// missing file returns no entries and no error; other I/O errors are
// returned wrapped.
//
// # Parsing
//
// Each line is read as slog text output:
//
//	time=2026-01-02T03:04:05.000Z level=WARN msg="cart sync failed" error="connection refused"
//
// time, level and msg fill the Entry fields; the remaining pairs become
// Attrs in order. Quoted values are unquoted. Lines that do not parse (panic
// traces, stray output) keep only Raw with Parsed false, and Filter always
// keeps them.
package logtail
