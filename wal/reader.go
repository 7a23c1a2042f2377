package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
)

// ReadResult is the outcome of reading a WAL file front-to-back.
type ReadResult struct {
	Entries []Entry
	// ValidBytes is the byte offset immediately after the last entry
	// that parsed and checksummed successfully.
	ValidBytes int64
	// Truncated reports whether a malformed or checksum-mismatched tail
	// record was found and discarded.
	Truncated bool
}

// ReadAll reads every record from the WAL at path, stopping (and
// discarding the remainder) at the first line that fails to parse or
// fails its checksum. This is the torn-tail handling a crash mid-append
// requires: a WAL is an append-only file with no trailing length
// prefix, so a process killed mid-write leaves a partial final line.
//
// A missing file is reported as an empty, non-truncated result.
func ReadAll(path string) (ReadResult, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ReadResult{}, nil
	}
	if err != nil {
		return ReadResult{}, err
	}
	defer f.Close()

	var result ReadResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var offset int64
	for scanner.Scan() {
		raw := scanner.Bytes()
		lineLen := int64(len(raw)) + 1 // +1 for the newline the scanner stripped

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			result.Truncated = true
			break
		}
		wantCRC := l.CRC32
		gotCRC, _, err := checksum(l)
		if err != nil || gotCRC != wantCRC {
			result.Truncated = true
			break
		}

		entry, err := fromLine(l)
		if err != nil {
			result.Truncated = true
			break
		}

		result.Entries = append(result.Entries, entry)
		offset += lineLen
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return result, err
	}

	result.ValidBytes = offset
	return result, nil
}
