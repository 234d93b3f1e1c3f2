// ABOUTME: Opus file sources
// ABOUTME: Ogg Opus files and raw length-prefixed Opus frame files
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/decode"
	"github.com/charmbracelet/log"
	"github.com/jonas747/ogg"
)

// packetReader yields one Opus packet per call and io.EOF at the end
type packetReader interface {
	ReadPacket() ([]byte, error)
}

// FrameReader reads Opus frames prefixed with a little-endian uint16 length
type FrameReader struct {
	r io.Reader
}

// NewFrameReader returns a FrameReader that reads from r
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadPacket returns the next raw Opus frame, or io.EOF when there are no more
func (f *FrameReader) ReadPacket() ([]byte, error) {
	var size uint16
	if err := binary.Read(f.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(f.r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// FrameWriter writes Opus frames in the format FrameReader reads
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter returns a FrameWriter that writes to w
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WritePacket writes one length-prefixed frame
func (f *FrameWriter) WritePacket(packet []byte) error {
	if len(packet) > 0xffff {
		return fmt.Errorf("opus frame too large: %d bytes", len(packet))
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(packet)))
	if _, err := f.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.w.Write(packet)
	return err
}

// oggPacketReader skips the OpusHead and OpusTags packets of an Ogg stream
type oggPacketReader struct {
	decoder *ogg.PacketDecoder
	skip    int
}

func (o *oggPacketReader) ReadPacket() ([]byte, error) {
	for {
		packet, _, err := o.decoder.Decode()
		if err != nil {
			return nil, err
		}
		if o.skip > 0 {
			o.skip--
			continue
		}
		return packet, nil
	}
}

// OpusSource decodes Opus packets straight to the playback format
type OpusSource struct {
	file    io.Closer
	packets packetReader
	decoder decode.Decoder
	pending []int16
}

// NewOggOpusSource opens an Ogg Opus file
func NewOggOpusSource(path string) (*OpusSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Ogg Opus file: %w", err)
	}

	packets := &oggPacketReader{
		decoder: ogg.NewPacketDecoder(ogg.NewDecoder(f)),
		skip:    2,
	}

	log.Info("Loaded Ogg Opus", "title", Title(path))
	return newOpusSource(f, packets)
}

// NewOpusFrameSource opens a file of length-prefixed Opus frames
func NewOpusFrameSource(path string) (*OpusSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus frame file: %w", err)
	}

	log.Info("Loaded Opus frames", "title", Title(path))
	return newOpusSource(f, NewFrameReader(f))
}

func newOpusSource(f io.ReadCloser, packets packetReader) (*OpusSource, error) {
	dec, err := decode.NewOpus(audio.PlaybackFormat)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &OpusSource{
		file:    f,
		packets: packets,
		decoder: dec,
	}, nil
}

func (s *OpusSource) Read(samples []int16) (int, error) {
	read := 0
	for read < len(samples) {
		if len(s.pending) == 0 {
			packet, err := s.packets.ReadPacket()
			if err != nil {
				// A truncated trailing frame ends the stream
				if errors.Is(err, io.ErrUnexpectedEOF) {
					err = io.EOF
				}
				if errors.Is(err, io.EOF) && read > 0 {
					return read, nil
				}
				return read, err
			}

			pcm, err := s.decoder.Decode(packet)
			if err != nil {
				return read, err
			}
			s.pending = pcm
		}

		n := copy(samples[read:], s.pending)
		s.pending = s.pending[n:]
		read += n
	}
	return read, nil
}

func (s *OpusSource) SampleRate() int { return audio.PlaybackFormat.SampleRate }
func (s *OpusSource) Channels() int   { return audio.PlaybackFormat.Channels }
func (s *OpusSource) Close() error {
	s.decoder.Close()
	return s.file.Close()
}
