package protocol

// CRC16 is the frame trailer checksum: CRC-16/MCRF4XX (reflected CCITT
// polynomial, initial value 0xFFFF, no final xor).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		x := b ^ byte(crc)
		x ^= x << 4
		crc = crc>>8 ^ uint16(x)<<8 ^ uint16(x)<<3 ^ uint16(x>>4)
	}
	return crc
}
