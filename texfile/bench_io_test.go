package texfile

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// benchPayloadBytes computes total payload bytes for throughput reporting.
func benchPayloadBytes(levels [][]byte) int64 {
	var total int64
	for _, p := range levels {
		total += int64(len(p))
	}

	return total
}

func BenchmarkWrite(b *testing.B) {
	tex := FromBuffer(uuid.New(), gradientBuffer(b, 1024, 1024, true))
	payloadBytes := benchPayloadBytes(tex.Levels)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		b.Run(c.String(), func(b *testing.B) {
			var buf bytes.Buffer

			b.ReportAllocs()
			b.SetBytes(payloadBytes)
			b.ResetTimer()

			for b.Loop() {
				buf.Reset()
				if err := Write(&buf, tex, c); err != nil {
					b.Fatalf("write (%s): %v", c, err)
				}
			}
		})
	}
}

func BenchmarkReadFile(b *testing.B) {
	tex := FromBuffer(uuid.New(), gradientBuffer(b, 1024, 1024, true))
	payloadBytes := benchPayloadBytes(tex.Levels)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		path := filepath.Join(b.TempDir(), c.String()+".tex")
		if err := WriteFile(path, tex, c); err != nil {
			b.Fatalf("prepare input file: %v", err)
		}

		b.Run(c.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(payloadBytes)
			b.ResetTimer()

			for b.Loop() {
				if _, err := ReadFile(path); err != nil {
					b.Fatalf("read (%s): %v", c, err)
				}
			}
		})
	}
}
