package seedstate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	records := []Record{
		{Namespace: "accumulator", Key: "pool-0", Value: []byte{1, 2, 3}},
		{Namespace: "accumulator", Key: "pool-1", Value: []byte{}},
		{Namespace: "source", Key: "bootstrap", Value: []byte("some seed material")},
	}

	encoded := Encode(records, DefaultSeparator)
	decoded, err := Decode(encoded, DefaultSeparator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: unexpected decode error: %v\n", err)
		t.FailNow()
	}
	if len(decoded) != len(records) {
		fmt.Fprintf(os.Stderr, "seedstate: expected %d records, got %d\n", len(records), len(decoded))
		t.FailNow()
	}
	for i := range records {
		if decoded[i].Namespace != records[i].Namespace || decoded[i].Key != records[i].Key || !bytes.Equal(decoded[i].Value, records[i].Value) {
			fmt.Fprintf(os.Stderr, "seedstate: record %d round-tripped incorrectly: got %+v, want %+v\n", i, decoded[i], records[i])
			t.FailNow()
		}
	}
}

func TestDecodeRejectsCorruptedChecksum(t *testing.T) {
	encoded := Encode([]Record{{Namespace: "a", Key: "b", Value: []byte("c")}}, DefaultSeparator)

	lines := strings.SplitN(string(encoded), "\n", 2)
	corrupted := []byte(lines[0] + "\ncorrupted body that does not match the checksum\n")

	_, err := Decode(corrupted, DefaultSeparator)
	if err != ErrChecksumMismatch {
		fmt.Fprintf(os.Stderr, "seedstate: expected ErrChecksumMismatch, got %v\n", err)
		t.FailNow()
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("not-a-seed-file\x1f1\x1fAAAA\x1f0\n"), DefaultSeparator)
	if err != ErrBadMagic {
		fmt.Fprintf(os.Stderr, "seedstate: expected ErrBadMagic, got %v\n", err)
		t.FailNow()
	}
}

func TestDecodeToleratesCRLFBody(t *testing.T) {
	records := []Record{{Namespace: "ns", Key: "k", Value: []byte("v")}}
	encoded := Encode(records, DefaultSeparator)

	crlf := bytes.ReplaceAll(encoded, []byte("\n"), []byte("\r\n"))
	decoded, err := Decode(crlf, DefaultSeparator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: expected CRLF body to decode, got error: %v\n", err)
		t.FailNow()
	}
	if len(decoded) != 1 || decoded[0].Key != "k" {
		fmt.Fprintf(os.Stderr, "seedstate: CRLF round-trip produced wrong records: %+v\n", decoded)
		t.FailNow()
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.state")

	records := []Record{
		{Namespace: "accumulator", Key: "pool-0", Value: []byte{9, 9, 9}},
	}
	if err := Write(path, records); err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: unexpected write error: %v\n", err)
		t.FailNow()
	}

	got, err := Read(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: unexpected read error: %v\n", err)
		t.FailNow()
	}
	if len(got) != 1 || got[0].Namespace != "accumulator" {
		fmt.Fprintf(os.Stderr, "seedstate: unexpected records after write/read: %+v\n", got)
		t.FailNow()
	}
}

func TestWritePreservesPreviousContentsAsOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.state")

	first := []Record{{Namespace: "a", Key: "1", Value: []byte("first")}}
	second := []Record{{Namespace: "a", Key: "1", Value: []byte("second")}}

	if err := Write(path, first); err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: unexpected error on first write: %v\n", err)
		t.FailNow()
	}
	if err := Write(path, second); err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: unexpected error on second write: %v\n", err)
		t.FailNow()
	}

	oldRecords, err := Read(path + ".old")
	if err != nil {
		fmt.Fprintf(os.Stderr, "seedstate: expected readable .old backup, got error: %v\n", err)
		t.FailNow()
	}
	if len(oldRecords) != 1 || string(oldRecords[0].Value) != "first" {
		fmt.Fprintf(os.Stderr, "seedstate: .old backup did not contain the previous generation's contents\n")
		t.FailNow()
	}

	current, err := Read(path)
	if err != nil || len(current) != 1 || string(current[0].Value) != "second" {
		fmt.Fprintf(os.Stderr, "seedstate: current file did not contain the latest write\n")
		t.FailNow()
	}
}
