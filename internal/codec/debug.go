package codec

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
)

var (
	dumpMu sync.Mutex

	// DumpOutput receives debug dump blocks.
	DumpOutput io.Writer = os.Stderr
)

// WriteDebugDumpBlock writes data between BEGIN/END markers. Inbound and
// upstream dumps share one lock so blocks never interleave.
func WriteDebugDumpBlock(title string, data []byte) {
	title = strings.TrimSpace(title)

	var buf bytes.Buffer
	buf.WriteString("===== " + title + " BEGIN =====\n")
	if len(data) > 0 {
		buf.Write(data)
		if data[len(data)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.WriteString("===== " + title + " END =====\n")

	dumpMu.Lock()
	defer dumpMu.Unlock()
	_, _ = DumpOutput.Write(buf.Bytes())
}
