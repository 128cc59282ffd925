package utils

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestGzipRoundTrip(t *testing.T) {
	original := []byte("Origin: . stable\nLabel: . stable\n")

	compressed, err := GzipCompress(original)
	if err != nil {
		t.Fatalf("GzipCompress failed: %v", err)
	}
	decompressed, err := GzipDecompress(compressed)
	if err != nil {
		t.Fatalf("GzipDecompress failed: %v", err)
	}
	if !bytes.Equal(decompressed, original) {
		t.Fatalf("round trip mismatch: got %q, want %q", decompressed, original)
	}
}

func TestGzipCompressIsDeterministic(t *testing.T) {
	data := []byte("repeatable input")

	first, err := GzipCompress(data)
	if err != nil {
		t.Fatalf("GzipCompress failed: %v", err)
	}
	second, err := GzipCompress(data)
	if err != nil {
		t.Fatalf("GzipCompress failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected gzip output to be byte-stable across calls")
	}
}

func TestZstdCompressProducesDecodableOutput(t *testing.T) {
	data := []byte("<metadata packages=\"1\"></metadata>")

	compressed, err := ZstdCompress(data)
	if err != nil {
		t.Fatalf("ZstdCompress failed: %v", err)
	}
	if len(compressed) == 0 {
		t.Fatalf("expected non-empty compressed output")
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd.NewReader failed: %v", err)
	}
	defer dec.Close()
	decoded, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		t.Fatalf("decoding zstd output failed: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Fatalf("zstd round trip mismatch: got %q, want %q", decoded, data)
	}
}
