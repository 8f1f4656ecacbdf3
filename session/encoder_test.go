package session

import "testing"

func TestEncodeDecode(t *testing.T) {
	in := &Binding{UserID: "0b9c3c57-3d2c-4f0e-8f55-7a0f5e3c9d11", CreatedAt: 1700000000, ExpiresAt: 1700086400}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.CreatedAt != in.CreatedAt || out.ExpiresAt != in.ExpiresAt {
		t.Fatalf("decoded %+v, want %+v", out, in)
	}

	if _, err := Decode(append(data, 0)); err == nil {
		t.Fatal("expected trailing bytes to be rejected")
	}
	if _, err := Encode(&Binding{}); err == nil {
		t.Fatal("expected empty userID to be rejected")
	}
}

// FuzzBindingDecode exercises the binary decoder with arbitrary inputs.
// Goal: no panics, graceful error handling.
func FuzzBindingDecode(f *testing.F) {
	encoded, err := Encode(&Binding{UserID: "user1", CreatedAt: 1700000000, ExpiresAt: 1700003600})
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:5])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{1, 255})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		b, err := Decode(data)
		if err == nil && b.UserID == "" {
			t.Fatal("decoded binding without user id")
		}
	})
}
