package voice

import (
	"bufio"
	"bytes"
	"io"
)

// OggOpusReader splits an Ogg/Opus stream into raw Opus packets, dropping the
// OpusHead and OpusTags header packets.
type OggOpusReader struct {
	r       *bufio.Reader
	pending [][]byte
	partial []byte
}

func NewOggOpusReader(r io.Reader) *OggOpusReader {
	return &OggOpusReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// ReadFrame returns the next Opus packet or io.EOF at the end of the stream.
func (o *OggOpusReader) ReadFrame() ([]byte, error) {
	for len(o.pending) == 0 {
		if err := o.readPage(); err != nil {
			return nil, err
		}
	}
	packet := o.pending[0]
	o.pending[0] = nil
	o.pending = o.pending[1:]
	return packet, nil
}

func (o *OggOpusReader) readPage() error {
	if err := o.syncToPage(); err != nil {
		return err
	}

	// Remaining 23 bytes of the 27 byte page header after "OggS".
	header := make([]byte, 23)
	if _, err := io.ReadFull(o.r, header); err != nil {
		return unexpected(err)
	}
	segments := make([]byte, header[22])
	if _, err := io.ReadFull(o.r, segments); err != nil {
		return unexpected(err)
	}

	size := 0
	for _, seg := range segments {
		size += int(seg)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(o.r, data); err != nil {
		return unexpected(err)
	}

	// Continued packet flag; a dangling partial from a lost page is dropped.
	if header[1]&0x01 == 0 {
		o.partial = o.partial[:0]
	}

	offset := 0
	for _, seg := range segments {
		n := int(seg)
		o.partial = append(o.partial, data[offset:offset+n]...)
		offset += n
		if seg < 255 {
			o.emit()
		}
	}
	return nil
}

func (o *OggOpusReader) emit() {
	if len(o.partial) == 0 {
		return
	}
	packet := make([]byte, len(o.partial))
	copy(packet, o.partial)
	o.partial = o.partial[:0]

	if bytes.HasPrefix(packet, []byte("OpusHead")) || bytes.HasPrefix(packet, []byte("OpusTags")) {
		return
	}
	o.pending = append(o.pending, packet)
}

func (o *OggOpusReader) syncToPage() error {
	for {
		b, err := o.r.ReadByte()
		if err != nil {
			return err
		}
		if b != 'O' {
			continue
		}
		peek, err := o.r.Peek(3)
		if err != nil {
			return unexpected(err)
		}
		if string(peek) == "ggS" {
			_, _ = o.r.Discard(3)
			return nil
		}
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
