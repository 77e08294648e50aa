// Package protocol implements the little-endian, fixed-layout wire codec
// exchanged between clients and the world authority.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Every frame on the wire begins with a 2-byte little-endian message id,
// followed by an id- and direction-dependent payload. There is no outer
// length prefix; each payload's own fields determine its length.

// ReadID reads the 2-byte message id that begins every frame.
func ReadID(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func writeUint16(w io.Writer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeInt32(w io.Writer, v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	w.Write(buf[:])
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeFloat32(w io.Writer, v float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	w.Write(buf[:])
}

func readFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeFloat64(w io.Writer, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Write(buf[:])
}

func readFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeByte(w io.Writer, v byte) {
	w.Write([]byte{v})
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

// writeReserved writes n zero bytes for a field reserved by the wire format
// but not yet assigned meaning.
func writeReserved(w io.Writer, n int) {
	buf := make([]byte, n)
	w.Write(buf)
}

// readReserved consumes and discards n reserved bytes.
func readReserved(r io.Reader, n int) error {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return err
}

// writeString16 writes a u16 length prefix followed by the raw bytes.
func writeString16(w io.Writer, s string) {
	writeUint16(w, uint16(len(s)))
	io.WriteString(w, s)
}

const maxStringLen = 1 << 16 // string fields are u16-length-prefixed; bound matches the prefix's range

func readString16(r io.Reader) (string, error) {
	n, err := readUint16(r)
	if err != nil {
		return "", err
	}
	if int(n) > maxStringLen {
		return "", fmt.Errorf("protocol: string length %d exceeds maximum", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
