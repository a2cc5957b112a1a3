package subtitle

import (
	"bytes"
	"strconv"
)

// EncodeSRT serializes a document as SRT: no BOM, LF line endings and cue
// numbers from 1.
func EncodeSRT(doc *Document) []byte {
	var buf bytes.Buffer
	for i, cue := range doc.Cues() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteByte('\n')
		buf.WriteString(FormatTimestamp(cue.Start))
		buf.WriteString(" --> ")
		buf.WriteString(FormatTimestamp(cue.End))
		buf.WriteByte('\n')
		for _, line := range cue.Lines {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}
