package logs

import (
	"io"
	"os"
)

// Writer receives the human-readable text log.
type Writer io.Writer

func (Module) Writer() Writer {
	return os.Stderr
}

// FileWriter, when not nil, additionally receives every record as JSON.
type FileWriter io.Writer

func (Module) FileWriter() FileWriter {
	return nil
}
