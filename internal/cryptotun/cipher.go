// Package cryptotun implements the optional per-pairing symmetric-cipher
// framing from spec.md §4.4 and §6. The wire protocol names a default
// cipher of aes-256-ctr with a key and IV shared out of band by
// configuration; this package wraps a net.Conn (or any io.ReadWriteCloser) so
// that every byte written is encrypted and every byte read is decrypted,
// with no additional framing — the cipher is a pure stream transform, it
// never parses or buffers application data.
package cryptotun

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
)

// Params describes the symmetric cipher configuration shared by both ends
// of a tunnel. Cipher is presently always "aes-256-ctr" — it is kept as a
// string (rather than an enum) so additional stream ciphers can be added
// without changing the Config surface.
type Params struct {
	Cipher string
	Key    []byte
	IV     []byte
}

// Configured reports whether all three of cipher/key/iv are non-empty,
// matching spec.md §6: "encryption active iff all three non-empty".
func (p Params) Configured() bool {
	return p.Cipher != "" && len(p.Key) > 0 && len(p.IV) > 0
}

// NewStream builds an independent encryptor/decryptor pair for one
// pairing. Per spec.md §4.4, the same (cipher, key, iv) tuple is used on
// both ends and for both directions; a single fixed IV is reused across
// every pairing that shares a key, which is the documented weakness in
// spec.md §9 open question (a) — preserved here rather than silently
// strengthened, since deriving a per-pairing IV would break wire
// compatibility with a peer holding only the configured IV.
func NewStream(p Params) (encrypt, decrypt cipher.Stream, err error) {
	if p.Cipher != "aes-256-ctr" {
		return nil, nil, fmt.Errorf("cryptotun: unsupported cipher %q", p.Cipher)
	}
	if len(p.Key) != 32 {
		return nil, nil, fmt.Errorf("cryptotun: aes-256-ctr requires a 32-byte key, got %d", len(p.Key))
	}
	if len(p.IV) != aes.BlockSize {
		return nil, nil, fmt.Errorf("cryptotun: aes-256-ctr requires a %d-byte iv, got %d", aes.BlockSize, len(p.IV))
	}
	block, err := aes.NewCipher(p.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptotun: %w", err)
	}
	// Each direction gets its own cipher.Stream instance (independent
	// counter state) even though both start from the same key/iv, since
	// CTR keystream position must track only the bytes that stream has
	// actually produced.
	encrypt = cipher.NewCTR(block, p.IV)
	block2, err := aes.NewCipher(p.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptotun: %w", err)
	}
	decrypt = cipher.NewCTR(block2, p.IV)
	return encrypt, decrypt, nil
}

// Conn wraps an underlying stream with a cipher.Stream applied to writes
// and a separate cipher.Stream applied to reads. It implements the minimal
// Reader/Writer/Closer surface that netutil.Splice needs.
type Conn struct {
	underlying io.ReadWriteCloser
	encrypt    cipher.Stream
	decrypt    cipher.Stream
}

// NewConn wraps underlying so that everything written to the returned Conn
// is encrypted with streamParams before hitting underlying, and everything
// read from underlying is decrypted before being handed back.
func NewConn(underlying io.ReadWriteCloser, streamParams Params) (*Conn, error) {
	encrypt, decrypt, err := NewStream(streamParams)
	if err != nil {
		return nil, err
	}
	return &Conn{underlying: underlying, encrypt: encrypt, decrypt: decrypt}, nil
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.underlying.Read(p)
	if n > 0 {
		c.decrypt.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}

func (c *Conn) Write(p []byte) (int, error) {
	out := make([]byte, len(p))
	c.encrypt.XORKeyStream(out, p)
	n, err := c.underlying.Write(out)
	return n, err
}

func (c *Conn) Close() error {
	return c.underlying.Close()
}

// CloseWrite forwards to the underlying connection's CloseWrite, if any.
// The cipher layer never buffers, so there is no flush to perform first.
func (c *Conn) CloseWrite() error {
	type writeHalfCloser interface{ CloseWrite() error }
	if whc, ok := c.underlying.(writeHalfCloser); ok {
		return whc.CloseWrite()
	}
	return nil
}
