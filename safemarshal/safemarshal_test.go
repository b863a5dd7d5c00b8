package safemarshal

import (
	"bytes"
	"testing"

	"github.com/tchajed/marshal"
)

func TestOptBytesDistinguishesNilFromEmpty(t *testing.T) {
	var enc []byte
	enc = WriteOptBytes(enc, nil)
	enc = WriteOptBytes(enc, []byte{})
	enc = WriteOptBytes(enc, []byte("abc"))

	b1, enc, err := ReadOptBytes(enc)
	if err != nil || b1 != nil {
		t.Fatalf("expected nil, got %v (err %v)", b1, err)
	}
	b2, enc, err := ReadOptBytes(enc)
	if err != nil || b2 == nil || len(b2) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v (err %v)", b2, err)
	}
	b3, enc, err := ReadOptBytes(enc)
	if err != nil || !bytes.Equal(b3, []byte("abc")) {
		t.Fatalf("expected abc, got %q (err %v)", b3, err)
	}
	if len(enc) != 0 {
		t.Errorf("%d trailing bytes", len(enc))
	}
}

func TestShortBuffers(t *testing.T) {
	if _, _, err := ReadInt([]byte{1, 2, 3}); err != ErrShort {
		t.Errorf("ReadInt on 3 bytes: got %v", err)
	}
	// length prefix claims 10 bytes, only 2 follow
	enc := marshal.WriteInt(nil, 10)
	enc = append(enc, 'a', 'b')
	if _, _, err := ReadBytes(enc); err != ErrShort {
		t.Errorf("ReadBytes with short payload: got %v", err)
	}
	if _, _, err := ReadString(nil); err != ErrShort {
		t.Errorf("ReadString(nil): got %v", err)
	}
}

func TestReadBytesCopies(t *testing.T) {
	enc := WriteBytes(nil, []byte("xyz"))
	b, _, err := ReadBytes(enc)
	if err != nil {
		t.Fatal(err)
	}
	enc[8] = 'q'
	if string(b) != "xyz" {
		t.Errorf("decoded slice aliases the buffer: %q", b)
	}
}
