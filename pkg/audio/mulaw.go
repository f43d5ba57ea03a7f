// Package audio provides the stateless primitives used on the telephony hot
// path: G.711 µ-law expansion, naïve 8→16 kHz upsampling, and per-frame
// energy measurement.
//
// Every function here runs on each inbound media frame (~50 Hz per call), so
// all operations are table-driven or single-pass and keep allocations to the
// output buffer.
package audio

// muLawBias is the G.711 µ-law decoder bias (132).
const muLawBias = 0x84

// muLawToPCM16 maps every possible µ-law byte to its linear PCM16 sample.
// Populated once at init; lookups on the hot path are a single index.
var muLawToPCM16 [256]int16

func init() {
	for i := range muLawToPCM16 {
		muLawToPCM16[i] = expandMuLaw(byte(i))
	}
}

// expandMuLaw expands a single µ-law byte following the Sun Microsystems
// G.711 reference: invert bits, split into sign / 3-bit exponent / 4-bit
// mantissa, reconstruct the biased magnitude, and re-apply the sign.
func expandMuLaw(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	sample := int16(((int32(mantissa) << 3) + muLawBias) << exponent)
	sample -= muLawBias

	if sign != 0 {
		return -sample
	}
	return sample
}

// DecodeMuLaw expands µ-law bytes to little-endian PCM16. The output is
// exactly twice the input length: one 16-bit sample per companded byte.
func DecodeMuLaw(src []byte) []byte {
	out := make([]byte, len(src)*2)
	for i, u := range src {
		s := muLawToPCM16[u]
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// compressMuLaw compands a linear PCM16 sample to one µ-law byte, the
// inverse of [expandMuLaw]: clip, add bias, locate the segment, keep a 4-bit
// mantissa, and invert the bits.
func compressMuLaw(s int16) byte {
	const clip = 32635

	v := int32(s)
	var sign byte
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > clip {
		v = clip
	}
	v += muLawBias

	exponent := byte(7)
	for mask := int32(0x4000); exponent > 0 && v&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((v >> (exponent + 3)) & 0x0F)

	return ^(sign | exponent<<4 | mantissa)
}

// EncodeMuLaw compands little-endian PCM16 to µ-law bytes. The output is
// exactly half the input length; a trailing odd byte is ignored.
func EncodeMuLaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = compressMuLaw(s)
	}
	return out
}

// Upsample8kTo16k doubles the sample rate of little-endian PCM16 by emitting
// every sample twice. No anti-imaging filter is applied; the realtime peer's
// speech front-end tolerates the imaging and the zero-latency trade-off wins
// on a phone call. Output length is exactly twice the input length.
func Upsample8kTo16k(pcm []byte) []byte {
	out := make([]byte, len(pcm)*2)
	for i := 0; i+1 < len(pcm); i += 2 {
		lo, hi := pcm[i], pcm[i+1]
		j := i * 2
		out[j] = lo
		out[j+1] = hi
		out[j+2] = lo
		out[j+3] = hi
	}
	return out
}

// MeanAbsSample returns the mean absolute sample value of little-endian
// PCM16. Used as a cheap frame-level speech energy estimate. Returns 0 for
// frames shorter than one sample.
func MeanAbsSample(pcm []byte) int {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < samples; i++ {
		s := int32(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
		if s < 0 {
			s = -s
		}
		sum += int64(s)
	}
	return int(sum / int64(samples))
}
