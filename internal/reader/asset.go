package reader

import "strconv"

// AssetName decodes an EPC's bytes as printable ASCII, substituting '.' for
// anything unprintable. Deployments encode a human-readable asset label into
// the EPC, so this is the display identity notifications group on. Falls back
// to a hex prefix when the EPC is not valid hex.
func AssetName(epc string) string {
	decoded := make([]byte, 0, len(epc)/2)
	for i := 0; i+1 < len(epc); i += 2 {
		b, err := strconv.ParseUint(epc[i:i+2], 16, 8)
		if err != nil {
			if len(epc) >= 12 {
				return epc[:12]
			}
			return epc
		}
		if b >= 32 && b <= 126 {
			decoded = append(decoded, byte(b))
		} else {
			decoded = append(decoded, '.')
		}
	}
	return string(decoded)
}
