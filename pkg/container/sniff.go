// Copyright © 2018 One Concern

package container

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Format of a container
type Format uint8

// Container formats
const (
	NotContainer Format = iota
	Zip
	Tar
)

func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case Tar:
		return "tar"
	default:
		return "none"
	}
}

const (
	sniffLen    = 512
	tarMagicOff = 257
)

var zipMagics = [][]byte{
	[]byte("PK\x03\x04"),
	[]byte("PK\x05\x06"), // empty archive
	[]byte("PK\x07\x08"), // spanned archive
}

// Sniff classifies a container from its leading bytes
func Sniff(head []byte) Format {
	for _, magic := range zipMagics {
		if bytes.HasPrefix(head, magic) {
			return Zip
		}
	}
	if len(head) < sniffLen {
		return NotContainer
	}
	if bytes.HasPrefix(head[tarMagicOff:], []byte("ustar")) || validTarChecksum(head[:sniffLen]) {
		return Tar
	}
	return NotContainer
}

// SniffReader classifies a container from the leading bytes of a reader
func SniffReader(r io.Reader) (Format, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return NotContainer, err
	}
	return Sniff(head[:n]), nil
}

// validTarChecksum checks the header checksum of pre-POSIX tar archives
func validTarChecksum(hdr []byte) bool {
	field := strings.Trim(string(hdr[148:156]), " \x00")
	if field == "" {
		return false
	}
	expected, err := strconv.ParseInt(field, 8, 64)
	if err != nil {
		return false
	}
	var sum int64
	for i, b := range hdr {
		if i >= 148 && i < 156 {
			b = ' '
		}
		sum += int64(b)
	}
	return sum == expected
}
