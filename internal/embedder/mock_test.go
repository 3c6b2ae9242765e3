package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// mockProvider generates deterministic embeddings from a text hash and can
// be configured to fail a fixed number of calls before succeeding (to
// exercise retry).
type mockProvider struct {
	mu          sync.Mutex
	dims        int
	model       string
	failTimes   int
	failErr     error
	calls       int
	closeCalled bool
}

func newMockProvider(dims int) *mockProvider {
	return &mockProvider{dims: dims, model: "mock-model"}
}

func (p *mockProvider) failNTimes(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failTimes = n
	p.failErr = err
}

func (p *mockProvider) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	if p.failTimes > 0 {
		p.failTimes--
		err := p.failErr
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		hash := sha256.Sum256([]byte(text))
		vec := make([]float32, p.dims)
		for j := 0; j < p.dims; j++ {
			offset := (j * 4) % len(hash)
			val := binary.BigEndian.Uint32(hash[offset : offset+4])
			vec[j] = (float32(val)/float32(1<<32))*2.0 - 1.0
		}
		out[i] = vec
	}
	return out, nil
}

func (p *mockProvider) Dimensions() int { return p.dims }
func (p *mockProvider) Model() string   { return p.model }
func (p *mockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalled = true
	return nil
}
