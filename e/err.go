package e

// W wraps the error with the full error code (package/file/id), optionally
// appending debug messages. It is the short form used throughout the library.
func W(err error, code string, debugMessages ...string) error {
	return Wrap(err, code, "", debugMessages...)
}

// N creates a new error for the full error code with the passed message
func N(code, msg string) error {
	return New(code, "", msg)
}
