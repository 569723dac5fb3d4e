// Copyright © 2018 One Concern

package timestream

import (
	"bytes"
	"io"
)

func bytesReaderAt(data []byte) io.ReaderAt {
	return bytes.NewReader(data)
}
