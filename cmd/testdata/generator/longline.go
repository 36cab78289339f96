package generator

import (
	"io"
	"math/rand/v2"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// LongLineGenerator writes records whose lengths vary by orders of magnitude.
// Roughly one record in fifty is between MaxLen/2 and MaxLen bytes, which is
// wider than a byte window for small files and many workers.
type LongLineGenerator struct {
	rand   *rand.Rand
	MaxLen int
}

func (g *LongLineGenerator) Init(r *rand.Rand) {
	g.rand = r
}

func (g *LongLineGenerator) WriteLine(w io.Writer) error {
	var n int
	switch {
	case g.MaxLen > 1 && g.rand.IntN(50) == 0:
		n = g.MaxLen/2 + g.rand.IntN(g.MaxLen/2+1)
	case g.rand.IntN(10) == 0:
		n = 0
	default:
		n = 1 + g.rand.IntN(80)
	}

	buf := make([]byte, n+1)
	for i := 0; i < n; i++ {
		buf[i] = alphabet[g.rand.IntN(len(alphabet))]
	}
	buf[n] = '\n'

	_, err := w.Write(buf)
	return err
}

func (g *LongLineGenerator) Description() string {
	return "Text records of 0 to MaxLen bytes, a few very long"
}

func (g *LongLineGenerator) DefaultCount() int64 {
	return 1e4
}
