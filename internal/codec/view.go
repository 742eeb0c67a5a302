package codec

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// DiscriminatorSize is the opaque type tag that prefixes every account
const DiscriminatorSize = 8

const pubkeySize = 32

// view is a bounds-checked little-endian cursor over an account buffer
type view struct {
	record string
	buf    []byte
	off    int
}

func newView(record string, buf []byte, minSize int) (*view, error) {
	if len(buf) < minSize {
		return nil, &ParseError{Kind: TooShort, Record: record, Need: minSize, Have: len(buf)}
	}
	return &view{record: record, buf: buf}, nil
}

func (v *view) take(field string, n int) ([]byte, error) {
	if n < 0 || v.off+n > len(v.buf) {
		return nil, &ParseError{
			Kind:   Truncated,
			Record: v.record,
			Field:  field,
			Offset: v.off,
			Need:   n,
			Have:   len(v.buf) - v.off,
		}
	}
	b := v.buf[v.off : v.off+n]
	v.off += n
	return b, nil
}

func (v *view) skip(field string, n int) error {
	_, err := v.take(field, n)
	return err
}

func (v *view) u8(field string) (uint8, error) {
	b, err := v.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (v *view) boolean(field string) (bool, error) {
	b, err := v.u8(field)
	return b != 0, err
}

func (v *view) u32(field string) (uint32, error) {
	b, err := v.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (v *view) u64(field string) (uint64, error) {
	b, err := v.take(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (v *view) i64(field string) (int64, error) {
	u, err := v.u64(field)
	return int64(u), err
}

func (v *view) pubkey(field string) (solana.PublicKey, error) {
	b, err := v.take(field, pubkeySize)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// option reads an Option<T> laid out as one presence byte followed by the full
// width of T. The width is consumed even when the value is absent.
func option[T any](v *view, field string, width int, decode func([]byte) T) (*T, error) {
	tag, err := v.take(field, 1)
	if err != nil {
		return nil, err
	}
	body, err := v.take(field, width)
	if err != nil {
		return nil, err
	}
	if tag[0] == 0 {
		return nil, nil
	}
	val := decode(body)
	return &val, nil
}
