// Package toy wires every basalt kernel into a miniature decoder-only
// transformer block with seeded random weights. It exists to exercise the
// kernels end to end — grouped heads, rotary positions, a growing KV cache —
// without carrying real model weights.
package toy

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/samcharles93/basalt/internal/logger"
	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/ops"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// Config sizes the decoder. The hidden width is always Heads*HeadDim.
// Eps and Theta fall back to 1e-5 and 10000 when left zero.
type Config struct {
	Vocab   int
	Heads   int
	KVHeads int
	HeadDim int
	MaxSeq  int
	DType   dtype.DType
	Eps     float32
	Theta   float32
	Seed    int64
}

// Hidden returns the model width implied by the head layout.
func (c Config) Hidden() int { return c.Heads * c.HeadDim }

func (c Config) kvDim() int { return c.KVHeads * c.HeadDim }

// Model is a single pre-norm decoder block with a greedy sampling head.
// It is deterministic: the same Config always produces the same weights
// and therefore the same token trace. A Model is not safe for concurrent
// use; every step reuses the same scratch buffers.
type Model struct {
	cfg   Config
	log   logger.Logger
	scale float32

	embed    *tensor.View // [vocab, hidden]
	attnNorm *tensor.View // [hidden]
	wq       *tensor.View // [hidden, hidden]
	wk       *tensor.View // [kvDim, hidden]
	wv       *tensor.View // [kvDim, hidden]
	wo       *tensor.View // [hidden, hidden]
	outNorm  *tensor.View // [hidden]
	lmHead   *tensor.View // [vocab, hidden]
	lmBias   *tensor.View // [vocab]

	kCache *tensor.View // [maxSeq, kvHeads, headDim]
	vCache *tensor.View
	n      int

	// Step scratch, allocated once. The rank-3 views alias the rank-2
	// projection buffers so the rope and attention kernels see head-major
	// shapes without copying.
	x, h      *tensor.View // [1, hidden]
	q2        *tensor.View // [1, hidden]
	k2, v2    *tensor.View // [1, kvDim]
	q3, k3    *tensor.View
	qr, kr    *tensor.View
	attn      *tensor.View // [1, heads, headDim]
	attnFlat  *tensor.View
	o         *tensor.View // [1, hidden]
	logits    *tensor.View // [1, vocab]
	logitsRow *tensor.View
	tok, pos  *tensor.View // [1] i64
	nextIdx   *tensor.View
	nextVal   *tensor.View

	tokE tensor.Elems[int64]
	posE tensor.Elems[int64]
	idxE tensor.Elems[int64]
}

// New builds a decoder with deterministic weights derived from cfg.Seed.
// Only the floating storage dtypes are accepted; attention has no integer
// kernel.
func New(cfg Config, log logger.Logger) (*Model, error) {
	if cfg.Vocab < 1 {
		return nil, fmt.Errorf("toy: vocab must be positive, got %d", cfg.Vocab)
	}
	if cfg.Heads < 1 || cfg.KVHeads < 1 {
		return nil, fmt.Errorf("toy: need at least one head, got %d query / %d kv", cfg.Heads, cfg.KVHeads)
	}
	if cfg.Heads%cfg.KVHeads != 0 {
		return nil, fmt.Errorf("toy: %d heads not a multiple of %d kv heads", cfg.Heads, cfg.KVHeads)
	}
	if cfg.HeadDim < 2 || cfg.HeadDim%2 != 0 {
		return nil, fmt.Errorf("toy: head dim must be even and positive, got %d", cfg.HeadDim)
	}
	if cfg.MaxSeq < 1 {
		return nil, fmt.Errorf("toy: max sequence must be positive, got %d", cfg.MaxSeq)
	}
	if !cfg.DType.Float() {
		return nil, fmt.Errorf("toy: storage dtype %v is not floating", cfg.DType)
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-5
	}
	if cfg.Theta == 0 {
		cfg.Theta = 10000
	}
	if log == nil {
		log = logger.Default()
	}

	m := &Model{
		cfg:   cfg,
		log:   log,
		scale: 1 / math32.Sqrt(float32(cfg.HeadDim)),
	}

	hidden, kvDim := cfg.Hidden(), cfg.kvDim()
	var err error
	alloc := func(dt dtype.DType, shape ...int) *tensor.View {
		if err != nil {
			return nil
		}
		v, e := tensor.New(dt, shape...)
		if e != nil {
			err = e
		}
		return v
	}
	alias := func(of *tensor.View, shape, strides []int) *tensor.View {
		if err != nil {
			return nil
		}
		v, e := tensor.FromBytes(of.DType(), of.Data(), shape, strides)
		if e != nil {
			err = e
		}
		return v
	}

	m.embed = alloc(cfg.DType, cfg.Vocab, hidden)
	m.attnNorm = alloc(cfg.DType, hidden)
	m.wq = alloc(cfg.DType, hidden, hidden)
	m.wk = alloc(cfg.DType, kvDim, hidden)
	m.wv = alloc(cfg.DType, kvDim, hidden)
	m.wo = alloc(cfg.DType, hidden, hidden)
	m.outNorm = alloc(cfg.DType, hidden)
	m.lmHead = alloc(cfg.DType, cfg.Vocab, hidden)
	m.lmBias = alloc(cfg.DType, cfg.Vocab)

	m.kCache = alloc(cfg.DType, cfg.MaxSeq, cfg.KVHeads, cfg.HeadDim)
	m.vCache = alloc(cfg.DType, cfg.MaxSeq, cfg.KVHeads, cfg.HeadDim)

	m.x = alloc(cfg.DType, 1, hidden)
	m.h = alloc(cfg.DType, 1, hidden)
	m.q2 = alloc(cfg.DType, 1, hidden)
	m.k2 = alloc(cfg.DType, 1, kvDim)
	m.v2 = alloc(cfg.DType, 1, kvDim)
	m.qr = alloc(cfg.DType, 1, cfg.Heads, cfg.HeadDim)
	m.kr = alloc(cfg.DType, 1, cfg.KVHeads, cfg.HeadDim)
	m.attn = alloc(cfg.DType, 1, cfg.Heads, cfg.HeadDim)
	m.o = alloc(cfg.DType, 1, hidden)
	m.logits = alloc(cfg.DType, 1, cfg.Vocab)
	m.tok = alloc(dtype.I64, 1)
	m.pos = alloc(dtype.I64, 1)
	m.nextIdx = alloc(dtype.I64)
	m.nextVal = alloc(cfg.DType)

	m.q3 = alias(m.q2, []int{1, cfg.Heads, cfg.HeadDim}, []int{hidden, cfg.HeadDim, 1})
	m.k3 = alias(m.k2, []int{1, cfg.KVHeads, cfg.HeadDim}, []int{kvDim, cfg.HeadDim, 1})
	m.attnFlat = alias(m.attn, []int{1, hidden}, []int{hidden, 1})
	m.logitsRow = alias(m.logits, []int{cfg.Vocab}, []int{1})
	if err != nil {
		return nil, err
	}

	if m.tokE, err = tensor.ElemsOf[int64](m.tok); err != nil {
		return nil, err
	}
	if m.posE, err = tensor.ElemsOf[int64](m.pos); err != nil {
		return nil, err
	}
	if m.idxE, err = tensor.ElemsOf[int64](m.nextIdx); err != nil {
		return nil, err
	}

	if err := m.initWeights(); err != nil {
		return nil, err
	}
	log.Debug("toy model ready",
		"dtype", cfg.DType,
		"vocab", cfg.Vocab,
		"hidden", hidden,
		"heads", cfg.Heads,
		"kv_heads", cfg.KVHeads,
		"max_seq", cfg.MaxSeq,
	)
	return m, nil
}

// initWeights fills every parameter from its own seeded stream so that
// adding or resizing one tensor never shifts the values of the others.
func (m *Model) initWeights() error {
	seed := m.cfg.Seed
	for _, p := range []struct {
		v           *tensor.View
		off         int64
		base, scale float32
	}{
		{m.embed, 11, 0, 0.6},
		{m.attnNorm, 13, 1, 0.1},
		{m.wq, 17, 0, 0.25},
		{m.wk, 19, 0, 0.25},
		{m.wv, 23, 0, 0.25},
		{m.wo, 29, 0, 0.25},
		{m.outNorm, 31, 1, 0.1},
		{m.lmHead, 37, 0, 0.25},
		{m.lmBias, 41, 0, 0.2},
	} {
		if err := fillUniform(p.v, seed+p.off, p.base, p.scale); err != nil {
			return err
		}
	}
	return nil
}

// fillUniform writes base + uniform(-scale/2, scale/2) over every element of
// a freshly allocated (contiguous) view.
func fillUniform(v *tensor.View, seed int64, base, scale float32) error {
	flat, err := tensor.FromBytes(v.DType(), v.Data(), []int{v.Numel()}, []int{1})
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	switch v.DType() {
	case dtype.F32:
		return fillAs[float32](dtype.F32Codec{}, flat, rng, base, scale)
	case dtype.F16:
		return fillAs[dtype.Float16](dtype.F16Codec{}, flat, rng, base, scale)
	case dtype.BF16:
		return fillAs[dtype.BFloat16](dtype.BF16Codec{}, flat, rng, base, scale)
	}
	return fmt.Errorf("toy: no fill for dtype %v", v.DType())
}

func fillAs[T dtype.Element, C dtype.Codec[T]](c C, v *tensor.View, rng *rand.Rand, base, scale float32) error {
	e, err := tensor.ElemsOf[T](v)
	if err != nil {
		return err
	}
	for i := 0; i < v.Dim(0); i++ {
		e.Set(i, c.FromF32(base+(rng.Float32()-0.5)*scale))
	}
	return nil
}

// Len reports how many tokens the model has consumed since the last reset.
func (m *Model) Len() int { return m.n }

// Reset discards the cached context so the model can decode a fresh
// sequence. Weights are untouched.
func (m *Model) Reset() { m.n = 0 }

// Step feeds one token through the block and returns the greedy next token.
// The key/value rows produced for this position are appended to the cache,
// so successive calls decode a growing sequence.
func (m *Model) Step(token int64) (int64, error) {
	if m.n >= m.cfg.MaxSeq {
		return 0, fmt.Errorf("toy: context full at %d tokens", m.cfg.MaxSeq)
	}
	m.tokE.Set(0, token)
	m.posE.Set(0, int64(m.n))

	if err := ops.Embedding(m.x, m.tok, m.embed); err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if err := ops.RMSNorm(m.h, m.x, m.attnNorm, m.cfg.Eps); err != nil {
		return 0, fmt.Errorf("attn norm: %w", err)
	}
	if err := ops.Linear(m.q2, m.h, m.wq, nil); err != nil {
		return 0, fmt.Errorf("q proj: %w", err)
	}
	if err := ops.Linear(m.k2, m.h, m.wk, nil); err != nil {
		return 0, fmt.Errorf("k proj: %w", err)
	}
	if err := ops.Linear(m.v2, m.h, m.wv, nil); err != nil {
		return 0, fmt.Errorf("v proj: %w", err)
	}
	if err := ops.RoPE(m.qr, m.q3, m.pos, m.cfg.Theta); err != nil {
		return 0, fmt.Errorf("rope q: %w", err)
	}
	if err := ops.RoPE(m.kr, m.k3, m.pos, m.cfg.Theta); err != nil {
		return 0, fmt.Errorf("rope k: %w", err)
	}

	// Append this position's key/value rows to the cache, then attend over
	// everything cached so far. The narrowed cache views are what give the
	// attention kernel its cache_len > 0 decode shape.
	kRow, err := m.kCache.Narrow(0, m.n, 1)
	if err != nil {
		return 0, fmt.Errorf("k cache: %w", err)
	}
	vRow, err := m.vCache.Narrow(0, m.n, 1)
	if err != nil {
		return 0, fmt.Errorf("v cache: %w", err)
	}
	copy(kRow.Data(), m.kr.Data())
	copy(vRow.Data(), m.v2.Data())

	keys, err := m.kCache.Narrow(0, 0, m.n+1)
	if err != nil {
		return 0, fmt.Errorf("k cache: %w", err)
	}
	vals, err := m.vCache.Narrow(0, 0, m.n+1)
	if err != nil {
		return 0, fmt.Errorf("v cache: %w", err)
	}
	if err := ops.SelfAttention(m.attn, m.qr, keys, vals, m.scale); err != nil {
		return 0, fmt.Errorf("attention: %w", err)
	}

	if err := ops.Linear(m.o, m.attnFlat, m.wo, nil); err != nil {
		return 0, fmt.Errorf("out proj: %w", err)
	}
	if err := ops.RMSNorm(m.h, m.o, m.outNorm, m.cfg.Eps); err != nil {
		return 0, fmt.Errorf("out norm: %w", err)
	}
	if err := ops.Linear(m.logits, m.h, m.lmHead, m.lmBias); err != nil {
		return 0, fmt.Errorf("lm head: %w", err)
	}
	if err := ops.Argmax(m.nextIdx, m.nextVal, m.logitsRow); err != nil {
		return 0, fmt.Errorf("argmax: %w", err)
	}

	m.n++
	next := m.idxE.Scalar()
	m.log.Debug("decode step", "pos", m.n-1, "token", token, "next", next)
	return next, nil
}

// Generate feeds the prompt and then greedily extends it by steps tokens,
// returning the full sequence including the prompt.
func (m *Model) Generate(prompt []int64, steps int) ([]int64, error) {
	if len(prompt) == 0 {
		return nil, fmt.Errorf("toy: empty prompt")
	}
	seq := append([]int64(nil), prompt...)
	var next int64
	for _, tok := range prompt {
		n, err := m.Step(tok)
		if err != nil {
			return nil, err
		}
		next = n
	}
	for range steps {
		seq = append(seq, next)
		n, err := m.Step(next)
		if err != nil {
			return nil, err
		}
		next = n
	}
	return seq, nil
}
