package tlsdetect

import "testing"

func TestIsClientHello(t *testing.T) {
	cases := []struct {
		name string
		p    []byte
		want bool
	}{
		{
			name: "S1 accept",
			p:    []byte{0x16, 0x03, 0x01, 0x00, 0xc0, 0x01, 0x00, 0x00, 0xbc, 0x03, 0x03},
			want: true,
		},
		{
			name: "S2 reject wrong content-type",
			p:    []byte{0x17, 0x03, 0x03, 0x00, 0x10, 0x01},
			want: false,
		},
		{
			name: "S3 reject ServerHello",
			p:    []byte{0x16, 0x03, 0x03, 0x00, 0x30, 0x02},
			want: false,
		},
		{name: "too short", p: []byte{0x16, 0x03, 0x01, 0x00, 0xc0}, want: false},
		{name: "empty", p: nil, want: false},
		{name: "exactly 6 bytes accept", p: []byte{0x16, 0, 0, 0, 0, 0x01}, want: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsClientHello(c.p); got != c.want {
				t.Errorf("IsClientHello(%x) = %v, want %v", c.p, got, c.want)
			}
		})
	}
}

// TestIsClientHelloMatchesSpecFormula checks P1 directly: the result
// must equal the closed-form predicate for every length from 0 to 8.
func TestIsClientHelloMatchesSpecFormula(t *testing.T) {
	for n := 0; n <= 8; n++ {
		p := make([]byte, n)
		if n > 0 {
			p[0] = 0x16
		}
		if n > 5 {
			p[5] = 0x01
		}
		want := n >= 6 && p[0] == 0x16 && p[5] == 0x01
		if got := IsClientHello(p); got != want {
			t.Errorf("n=%d: IsClientHello=%v, want %v", n, got, want)
		}
	}
}
