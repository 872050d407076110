package archive

import (
	"crypto/rand"
	"fmt"
	"hash/crc32"
)

// encryptionHeaderLen is the size of the random header that precedes
// every traditionally encrypted entry
const encryptionHeaderLen = 12

// cipherMagic is the multiplier of the PKWARE key schedule
const cipherMagic = 134775813

// zipCipher is the traditional PKWARE stream cipher ("ZipCrypto")
type zipCipher struct {
	k0, k1, k2 uint32
}

func newZipCipher(password string) *zipCipher {
	c := &zipCipher{k0: 0x12345678, k1: 0x23456789, k2: 0x34567890}
	for i := 0; i < len(password); i++ {
		c.update(password[i])
	}
	return c
}

func (c *zipCipher) update(b byte) {
	c.k0 = crc32.IEEETable[byte(c.k0)^b] ^ c.k0>>8
	c.k1 = (c.k1+c.k0&0xFF)*cipherMagic + 1
	c.k2 = crc32.IEEETable[byte(c.k2)^byte(c.k1>>24)] ^ c.k2>>8
}

func (c *zipCipher) stream() byte {
	t := c.k2 | 2
	return byte(t * (t ^ 1) >> 8)
}

func (c *zipCipher) encrypt(buf []byte) {
	for i, b := range buf {
		buf[i] = b ^ c.stream()
		c.update(b)
	}
}

func (c *zipCipher) decrypt(buf []byte) {
	for i, b := range buf {
		p := b ^ c.stream()
		c.update(p)
		buf[i] = p
	}
}

// sealEntry encrypts payload in place and returns the encryption header
// that must precede it. check is the byte verified on decryption.
func sealEntry(payload []byte, password string, check byte) ([]byte, error) {
	header := make([]byte, encryptionHeaderLen)
	if _, err := rand.Read(header[:encryptionHeaderLen-1]); err != nil {
		return nil, fmt.Errorf("generate encryption header: %w", err)
	}
	header[encryptionHeaderLen-1] = check

	c := newZipCipher(password)
	c.encrypt(header)
	c.encrypt(payload)
	return header, nil
}

// openEntry decrypts data (encryption header included) in place and
// returns the payload without the header
func openEntry(data []byte, password string, check byte) ([]byte, error) {
	if len(data) < encryptionHeaderLen {
		return nil, fmt.Errorf("%w: encrypted entry shorter than its header", ErrPasswordMismatch)
	}
	c := newZipCipher(password)
	c.decrypt(data[:encryptionHeaderLen])
	if data[encryptionHeaderLen-1] != check {
		return nil, ErrPasswordMismatch
	}
	payload := data[encryptionHeaderLen:]
	c.decrypt(payload)
	return payload, nil
}

// checkByte picks the byte stored at the end of the encryption header:
// the CRC high byte, or the DOS time high byte when a data descriptor
// follows the entry
func checkByte(h *fileHeader) byte {
	if h.flags&flagDataDescriptor != 0 {
		return byte(h.modTime >> 8)
	}
	return byte(h.crc32 >> 24)
}
