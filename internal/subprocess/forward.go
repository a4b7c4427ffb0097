package subprocess

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wagiedev/mcp-process-host/internal/event"
)

// readBufferSize is the initial read buffer per stream. Lines longer than this
// are still delivered whole; bufio.Reader grows the returned string as needed.
const readBufferSize = 64 * 1024

// Forward reads newline-delimited text from r and emits every line under the
// event name, with trailing "\r" and "\n" removed. A final line without a
// terminator is emitted too.
//
// Forward returns when r reports end of stream or any read error; both mean
// the pipe is gone. Emission failures are logged and do not stop the loop, so
// one rejected event never costs the lines after it. If r is an io.Closer it
// is closed on return. The number of emitted lines is returned.
func Forward(log *slog.Logger, r io.Reader, emitter event.Emitter, name string) int {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	reader := bufio.NewReaderSize(r, readBufferSize)
	count := 0

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if emitErr := emitter.Emit(name, strings.TrimRight(line, "\r\n")); emitErr != nil {
				log.Warn("Failed to emit event", "event", name, "error", emitErr)
			}

			count++
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Debug("Stream read ended with error", "event", name, "error", err)
			}

			log.Debug("Forwarder stopped", "event", name, "lines", count)

			return count
		}
	}
}
