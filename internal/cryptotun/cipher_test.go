package cryptotun

import (
	"bytes"
	"io"
	"net"
	"testing"
)

func params() Params {
	return Params{
		Cipher: "aes-256-ctr",
		Key:    bytes.Repeat([]byte{0x42}, 32),
		IV:     bytes.Repeat([]byte{0x24}, 16),
	}
}

func TestConnRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn, err := NewConn(client, params())
	if err != nil {
		t.Fatalf("NewConn() (client) error: %s", err)
	}
	serverConn, err := NewConn(server, params())
	if err != nil {
		t.Fatalf("NewConn() (server) error: %s", err)
	}

	want := []byte("the quick brown fox jumps over the lazy dog, 63 bytes exactly!!")
	errc := make(chan error, 1)
	go func() {
		_, err := clientConn.Write(want)
		errc <- err
	}()

	got := make([]byte, len(want))
	if _, err := io.ReadFull(serverConn, got); err != nil {
		t.Fatalf("ReadFull() error: %s", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("Write() error: %s", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestNewStreamRejectsBadParams(t *testing.T) {
	cases := []Params{
		{Cipher: "rc4", Key: bytes.Repeat([]byte{1}, 32), IV: bytes.Repeat([]byte{1}, 16)},
		{Cipher: "aes-256-ctr", Key: bytes.Repeat([]byte{1}, 16), IV: bytes.Repeat([]byte{1}, 16)},
		{Cipher: "aes-256-ctr", Key: bytes.Repeat([]byte{1}, 32), IV: bytes.Repeat([]byte{1}, 8)},
	}
	for _, p := range cases {
		if _, _, err := NewStream(p); err == nil {
			t.Errorf("NewStream(%+v) returned nil error", p)
		}
	}
}

func TestParamsConfigured(t *testing.T) {
	if (Params{}).Configured() {
		t.Error("zero Params reported Configured")
	}
	if !params().Configured() {
		t.Error("complete Params reported not Configured")
	}
}
