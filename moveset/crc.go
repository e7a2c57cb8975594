package moveset

import (
	"hash/crc32"
)

var zeroPad [8]byte

// Checksum is the CRC32 (IEEE) of the property list followed by every data block, each
// block padded to 8 bytes. The header and the block offset table are not covered, so
// moving blocks around does not change the value.
func Checksum(properties []byte, blocks [][]byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, properties)
	for _, block := range blocks {
		crc = crc32.Update(crc, crc32.IEEETable, block)
		if pad := alignPad(len(block)); pad > 0 {
			crc = crc32.Update(crc, crc32.IEEETable, zeroPad[:pad])
		}
	}
	return crc
}

func alignPad(n int) int {
	return (8 - n%8) % 8
}
