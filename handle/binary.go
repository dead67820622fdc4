package handle

import (
	"io"
	"math"
)

// ReadFully reads exactly len(p) bytes.
func (h *Handle) ReadFully(p []byte) error {
	_, err := io.ReadFull(h, p)
	return err
}

func (h *Handle) read(n int) ([]byte, error) {
	b := h.buf[:n]
	if _, err := io.ReadFull(h, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (h *Handle) ReadUint8() (uint8, error) {
	return h.ReadByte()
}

func (h *Handle) ReadInt8() (int8, error) {
	b, err := h.ReadByte()
	return int8(b), err
}

func (h *Handle) ReadUint16() (uint16, error) {
	b, err := h.read(2)
	if err != nil {
		return 0, err
	}
	return h.order.Uint16(b), nil
}

func (h *Handle) ReadInt16() (int16, error) {
	v, err := h.ReadUint16()
	return int16(v), err
}

func (h *Handle) ReadUint32() (uint32, error) {
	b, err := h.read(4)
	if err != nil {
		return 0, err
	}
	return h.order.Uint32(b), nil
}

func (h *Handle) ReadInt32() (int32, error) {
	v, err := h.ReadUint32()
	return int32(v), err
}

func (h *Handle) ReadUint64() (uint64, error) {
	b, err := h.read(8)
	if err != nil {
		return 0, err
	}
	return h.order.Uint64(b), nil
}

func (h *Handle) ReadInt64() (int64, error) {
	v, err := h.ReadUint64()
	return int64(v), err
}

func (h *Handle) ReadFloat32() (float32, error) {
	v, err := h.ReadUint32()
	return math.Float32frombits(v), err
}

func (h *Handle) ReadFloat64() (float64, error) {
	v, err := h.ReadUint64()
	return math.Float64frombits(v), err
}
