// ABOUTME: Raw PCM and WAV file sources
// ABOUTME: Streams little-endian PCM through the shared PCM decoder
package source

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/decode"
	"github.com/charmbracelet/log"
)

// PCMSource streams little-endian PCM from a reader in a known format
type PCMSource struct {
	closer  io.Closer
	reader  io.Reader
	format  audio.Format
	decoder decode.Decoder
	buf     []byte
}

// NewPCMSource opens a headerless file of 16kHz mono 16-bit samples
func NewPCMSource(path string) (*PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM file: %w", err)
	}

	s, err := newPCMSource(f, bufio.NewReader(f), audio.PlaybackFormat)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Info("Loaded raw PCM", "title", Title(path))
	return s, nil
}

// NewWAVSource opens a PCM WAV file
func NewWAVSource(path string) (*PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	r := bufio.NewReader(f)
	format, err := ReadWAVHeader(r)
	if err != nil {
		f.Close()
		return nil, err
	}

	s, err := newPCMSource(f, r, format)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Info("Loaded WAV", "title", Title(path), "rate", format.SampleRate,
		"channels", format.Channels, "bits", format.BitDepth)
	return s, nil
}

func newPCMSource(c io.Closer, r io.Reader, format audio.Format) (*PCMSource, error) {
	dec, err := decode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	return &PCMSource{
		closer:  c,
		reader:  r,
		format:  format,
		decoder: dec,
	}, nil
}

func (s *PCMSource) Read(samples []int16) (int, error) {
	numBytes := len(samples) * s.format.BytesPerSample()
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.reader, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}

	// Trailing partial samples are dropped by the decoder
	decoded, decErr := s.decoder.Decode(buf[:n])
	if decErr != nil {
		return 0, decErr
	}
	copy(samples, decoded)

	if len(decoded) == 0 && err == nil {
		err = io.EOF
	}
	return len(decoded), err
}

func (s *PCMSource) SampleRate() int { return s.format.SampleRate }
func (s *PCMSource) Channels() int   { return s.format.Channels }
func (s *PCMSource) Close() error {
	s.decoder.Close()
	return s.closer.Close()
}

// wavHeader is the canonical 44-byte header of a PCM WAV file
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeWAV encodes interleaved 16-bit samples as a WAV file
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channels must be positive, got %d", channels)
	}

	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 2),
		BlockAlign:    uint16(channels * 2),
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	out := make([]byte, 0, 44+len(samples)*2)
	out, err := binary.Append(out, binary.LittleEndian, header)
	if err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return append(out, audio.Int16ToBytes(samples)...), nil
}

// ReadWAVHeader consumes a WAV header up to the start of the data chunk.
// Chunks other than "fmt " and "data" are skipped.
func ReadWAVHeader(r io.Reader) (audio.Format, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return audio.Format{}, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return audio.Format{}, fmt.Errorf("not a WAV file")
	}

	var format audio.Format
	haveFormat := false

	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return audio.Format{}, fmt.Errorf("failed to read WAV chunk: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if chunk.Size < 16 {
				return audio.Format{}, fmt.Errorf("WAV fmt chunk too short: %d bytes", chunk.Size)
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return audio.Format{}, fmt.Errorf("failed to read WAV fmt chunk: %w", err)
			}
			if fmtChunk.AudioFormat != 1 {
				return audio.Format{}, fmt.Errorf("unsupported WAV encoding: %d (only PCM)", fmtChunk.AudioFormat)
			}
			if err := skip(r, int64(chunk.Size)-16); err != nil {
				return audio.Format{}, err
			}
			format = audio.Format{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.NumChannels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}
			haveFormat = true

		case "data":
			if !haveFormat {
				return audio.Format{}, fmt.Errorf("WAV data chunk before fmt chunk")
			}
			return format, nil

		default:
			// Chunks are padded to an even size
			if err := skip(r, int64(chunk.Size)+int64(chunk.Size&1)); err != nil {
				return audio.Format{}, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("failed to skip WAV chunk: %w", err)
	}
	return nil
}
