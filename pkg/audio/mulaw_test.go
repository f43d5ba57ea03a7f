package audio_test

import (
	"testing"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/pkg/audio"
)

// pcmSample extracts the i-th little-endian int16 sample from pcm.
func pcmSample(pcm []byte, i int) int16 {
	return int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
}

func TestDecodeMuLaw_KnownValues(t *testing.T) {
	t.Parallel()

	// 0xFF and 0x7F both decode to silence: the companded byte is inverted
	// before expansion, so the all-ones patterns are the zero codes for the
	// positive and negative half of the range.
	cases := []struct {
		name string
		in   byte
		want int16
	}{
		{"positive zero", 0xFF, 0},
		{"negative zero", 0x7F, 0},
		{"negative max", 0x00, -32124},
		{"positive max", 0x80, 32124},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := audio.DecodeMuLaw([]byte{tc.in})
			if len(out) != 2 {
				t.Fatalf("DecodeMuLaw length = %d, want 2", len(out))
			}
			if got := pcmSample(out, 0); got != tc.want {
				t.Errorf("DecodeMuLaw(%#02x) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeMuLaw_SignSymmetry(t *testing.T) {
	t.Parallel()

	// Flipping the sign bit of the companded byte must negate the sample.
	for b := 0; b < 128; b++ {
		neg := audio.DecodeMuLaw([]byte{byte(b)})
		pos := audio.DecodeMuLaw([]byte{byte(b) | 0x80})
		if pcmSample(neg, 0) != -pcmSample(pos, 0) {
			t.Fatalf("byte %#02x: %d is not the negation of %d",
				b, pcmSample(neg, 0), pcmSample(pos, 0))
		}
	}
}

func TestDecodeMuLaw_OutputLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 160, 320} {
		in := make([]byte, n)
		if got := len(audio.DecodeMuLaw(in)); got != 2*n {
			t.Errorf("DecodeMuLaw(%d bytes) produced %d bytes, want %d", n, got, 2*n)
		}
	}
}

func TestEncodeMuLaw_RoundTrip(t *testing.T) {
	t.Parallel()

	// Companding is lossy on samples but exact on codes: encoding a decoded
	// byte returns the byte. 0x7F is the one exception, since both zero codes
	// decode to the same sample and the encoder picks the positive one.
	for b := 0; b < 256; b++ {
		if b == 0x7F {
			continue
		}
		pcm := audio.DecodeMuLaw([]byte{byte(b)})
		got := audio.EncodeMuLaw(pcm)
		if len(got) != 1 || got[0] != byte(b) {
			t.Fatalf("round trip of %#02x = %#02x", b, got[0])
		}
	}
}

func TestEncodeMuLaw_KnownValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		sample int16
		want   byte
	}{
		{"silence", 0, 0xFF},
		{"positive clip", 32767, 0x80},
		{"negative clip", -32768, 0x00},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pcm := []byte{byte(tc.sample), byte(tc.sample >> 8)}
			out := audio.EncodeMuLaw(pcm)
			if len(out) != 1 || out[0] != tc.want {
				t.Errorf("EncodeMuLaw(%d) = %#02x, want %#02x", tc.sample, out[0], tc.want)
			}
		})
	}
}

func TestUpsample8kTo16k_DuplicatesSamples(t *testing.T) {
	t.Parallel()

	// Two samples: 0x1234 and -2 (0xFFFE).
	in := []byte{0x34, 0x12, 0xFE, 0xFF}
	out := audio.Upsample8kTo16k(in)

	if len(out) != 2*len(in) {
		t.Fatalf("output length = %d, want %d", len(out), 2*len(in))
	}
	want := []int16{0x1234, 0x1234, -2, -2}
	for i, w := range want {
		if got := pcmSample(out, i); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestIngressExpansion_FourTimesInput(t *testing.T) {
	t.Parallel()

	// A µ-law frame expands 4x before base64: byte → 2 PCM bytes at 8 kHz →
	// 4 PCM bytes at 16 kHz.
	frame := make([]byte, 160) // 20 ms at 8 kHz
	pcm := audio.DecodeMuLaw(frame)
	up := audio.Upsample8kTo16k(pcm)
	if len(up) != 4*len(frame) {
		t.Fatalf("ingress expansion = %d bytes from %d, want %d", len(up), len(frame), 4*len(frame))
	}
}

func TestMeanAbsSample(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		samples []int16
		want    int
	}{
		{"empty", nil, 0},
		{"silence", []int16{0, 0, 0}, 0},
		{"mixed signs", []int16{1000, -1000}, 1000},
		{"average", []int16{100, 300}, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pcm := make([]byte, len(tc.samples)*2)
			for i, s := range tc.samples {
				pcm[i*2] = byte(s)
				pcm[i*2+1] = byte(s >> 8)
			}
			if got := audio.MeanAbsSample(pcm); got != tc.want {
				t.Errorf("MeanAbsSample = %d, want %d", got, tc.want)
			}
		})
	}
}
