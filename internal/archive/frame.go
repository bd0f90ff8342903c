package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/rcliao/world-weaver/internal/model"
)

// Frame layout, little endian:
//
//	magic   uint32  "WWFR"
//	kind    uint8
//	length  uint64  payload length
//	crc     uint32  CRC-32C over kind, length and payload
//	payload [length]byte
//
// Image payloads start with the uint64 image ID followed by the raw bytes.
// Snapshot payloads are the JSON encoded GameData.
const (
	frameMagic      uint32 = 0x52465757 // "WWFR"
	frameHeaderSize        = 4 + 1 + 8 + 4
	imageIDSize            = 8
)

// Kind identifies the payload type of a frame.
type Kind uint8

const (
	KindImage    Kind = 1
	KindSnapshot Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// errors describing why a scan stopped before end of file.
var (
	errBadMagic    = errors.New("bad frame magic")
	errBadKind     = errors.New("unknown frame kind")
	errShort       = errors.New("frame runs past end of file")
	errChecksum    = errors.New("frame checksum mismatch")
	errBadLength   = errors.New("image frame shorter than its id")
	errBadSnapshot = errors.New("snapshot payload does not decode")
)

// FrameSize returns the on-disk size of a frame carrying n payload bytes.
func FrameSize(n int) int64 {
	return int64(frameHeaderSize + n)
}

// ImageFrameSize returns the on-disk size of an image frame for n image bytes.
func ImageFrameSize(n int) int64 {
	return FrameSize(imageIDSize + n)
}

func checksum(kind Kind, lenBuf []byte, payload []byte) uint32 {
	h := crc32.New(castagnoli)
	h.Write([]byte{byte(kind)})
	h.Write(lenBuf)
	h.Write(payload)
	return h.Sum32()
}

func encodeFrame(kind Kind, payload []byte) []byte {
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], frameMagic)
	buf[4] = byte(kind)
	binary.LittleEndian.PutUint64(buf[5:13], uint64(len(payload)))
	binary.LittleEndian.PutUint32(buf[13:17], checksum(kind, buf[5:13], payload))
	copy(buf[frameHeaderSize:], payload)
	return buf
}

func encodeImage(id model.ImageID, data []byte) []byte {
	payload := make([]byte, imageIDSize+len(data))
	binary.LittleEndian.PutUint64(payload, uint64(id))
	copy(payload[imageIDSize:], data)
	return encodeFrame(KindImage, payload)
}

// frame is one decoded, checksum-verified frame.
type frame struct {
	kind    Kind
	offset  int64
	payload []byte
}

func (f frame) size() int64 { return FrameSize(len(f.payload)) }

func (f frame) imageID() model.ImageID {
	return model.ImageID(binary.LittleEndian.Uint64(f.payload[:imageIDSize]))
}

// readFrame decodes the frame at offset. remaining is the number of bytes
// between offset and the physical end of file. It returns io.EOF only at a
// clean frame boundary.
func readFrame(r *bufio.Reader, offset, remaining int64) (frame, error) {
	if remaining == 0 {
		return frame{}, io.EOF
	}
	if remaining < frameHeaderSize {
		return frame{}, errShort
	}

	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, shortRead(err)
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != frameMagic {
		return frame{}, errBadMagic
	}
	kind := Kind(hdr[4])
	if kind != KindImage && kind != KindSnapshot {
		return frame{}, errBadKind
	}
	length := binary.LittleEndian.Uint64(hdr[5:13])
	if length > uint64(remaining-frameHeaderSize) {
		return frame{}, errShort
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return frame{}, shortRead(err)
	}
	if checksum(kind, hdr[5:13], payload) != binary.LittleEndian.Uint32(hdr[13:17]) {
		return frame{}, errChecksum
	}
	if kind == KindImage && len(payload) < imageIDSize {
		return frame{}, errBadLength
	}

	return frame{kind: kind, offset: offset, payload: payload}, nil
}

func shortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errShort
	}
	return fmt.Errorf("read frame: %w", err)
}

// isTail reports whether a scan error marks a discardable crash tail rather
// than a failure to read the file.
func isTail(err error) bool {
	switch {
	case errors.Is(err, errBadMagic), errors.Is(err, errBadKind), errors.Is(err, errShort),
		errors.Is(err, errChecksum), errors.Is(err, errBadLength), errors.Is(err, errBadSnapshot):
		return true
	}
	return false
}

// scanFrames walks frames from the start of r until end of file or the first
// invalid frame. It returns the end offset of the last valid frame and, when
// the scan stopped early, the reason.
func scanFrames(r io.Reader, size int64, visit func(frame) error) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var offset int64
	for {
		f, err := readFrame(br, offset, size-offset)
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return offset, err
		}
		if err := visit(f); err != nil {
			return offset, err
		}
		offset += f.size()
	}
}
