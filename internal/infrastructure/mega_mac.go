package infrastructure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"

	"github.com/yourusername/obidl-go/internal/domain"
)

// megaMAC computes Mega's condensed content MAC over the decrypted stream.
// Plaintext is split into chunks (0x20000, 0x40000, ... growing to a 1MiB
// ceiling); each chunk gets a CBC-MAC keyed with the file key and an IV of
// nonce||nonce, and the chunk tags are chained through a second zero-IV
// CBC-MAC. The final tag, condensed to 8 bytes, must match the meta-MAC
// from the share key.
type megaMAC struct {
	block   cipher.Block
	chunkIV [16]byte

	fileMAC  [16]byte
	chunkMAC [16]byte

	buf    [16]byte
	bufLen int

	chunkRemaining int64 // bytes left in the current chunk
	nextChunkSize  int64 // size schedule for the following chunk
	chunkStarted   bool
}

const (
	megaChunkStep = 0x20000  // 128 KiB
	megaChunkMax  = 0x100000 // 1 MiB
)

func newMegaMAC(key [16]byte, nonce [8]byte) (*megaMAC, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "bad mega cipher key", err)
	}
	m := &megaMAC{block: block}
	copy(m.chunkIV[:8], nonce[:])
	copy(m.chunkIV[8:], nonce[:])
	m.chunkRemaining = megaChunkStep
	m.nextChunkSize = 2 * megaChunkStep
	m.chunkMAC = m.chunkIV
	return m, nil
}

// Write feeds decrypted plaintext in stream order
func (m *megaMAC) Write(p []byte) {
	for len(p) > 0 {
		m.chunkStarted = true

		n := int64(len(p))
		if n > m.chunkRemaining {
			n = m.chunkRemaining
		}
		m.absorb(p[:n])
		p = p[n:]
		m.chunkRemaining -= n

		if m.chunkRemaining == 0 {
			m.closeChunk()
		}
	}
}

// absorb runs CBC-MAC blocks over the given chunk bytes, buffering the
// trailing partial block
func (m *megaMAC) absorb(p []byte) {
	if m.bufLen > 0 {
		n := copy(m.buf[m.bufLen:], p)
		m.bufLen += n
		p = p[n:]
		if m.bufLen == 16 {
			m.xorEncryptChunk(m.buf[:])
			m.bufLen = 0
		}
	}
	for len(p) >= 16 {
		m.xorEncryptChunk(p[:16])
		p = p[16:]
	}
	if len(p) > 0 {
		m.bufLen = copy(m.buf[:], p)
	}
}

func (m *megaMAC) xorEncryptChunk(blockBytes []byte) {
	for i := 0; i < 16; i++ {
		m.chunkMAC[i] ^= blockBytes[i]
	}
	m.block.Encrypt(m.chunkMAC[:], m.chunkMAC[:])
}

// closeChunk pads the buffered tail with zeros, folds the chunk tag into
// the file MAC and resets for the next chunk of the schedule
func (m *megaMAC) closeChunk() {
	if m.bufLen > 0 {
		var padded [16]byte
		copy(padded[:], m.buf[:m.bufLen])
		m.xorEncryptChunk(padded[:])
		m.bufLen = 0
	}

	for i := 0; i < 16; i++ {
		m.fileMAC[i] ^= m.chunkMAC[i]
	}
	m.block.Encrypt(m.fileMAC[:], m.fileMAC[:])

	m.chunkMAC = m.chunkIV
	m.chunkRemaining = m.nextChunkSize
	if m.nextChunkSize < megaChunkMax {
		m.nextChunkSize += megaChunkStep
	}
	m.chunkStarted = false
}

// Verify finalizes the last (possibly short) chunk and compares the
// condensed tag against the meta-MAC.
func (m *megaMAC) Verify(metaMAC [8]byte) bool {
	if m.chunkStarted || m.bufLen > 0 {
		m.closeChunk()
	}

	var condensed [8]byte
	for i := 0; i < 4; i++ {
		condensed[i] = m.fileMAC[i] ^ m.fileMAC[4+i]
		condensed[4+i] = m.fileMAC[8+i] ^ m.fileMAC[12+i]
	}
	return subtle.ConstantTimeCompare(condensed[:], metaMAC[:]) == 1
}
