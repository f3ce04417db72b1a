package ops

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// SelfAttention computes causal scaled dot-product attention with grouped
// query heads. q is [S_q, H, D]; k and v are [S_kv, H_kv, D] and
// [S_kv, H_kv, Dv] and hold cached context plus the current batch, so
// S_kv >= S_q; attn is [S_q, H, Dv]. H must be divisible by H_kv and query
// head h reads kv head h/(H/H_kv). Query row s sits at absolute position
// S_kv-S_q+s and attends to every position at or before it; the causal mask
// is the score loop bound. Scores, the stable softmax, and the weighted sum
// of v stay in float32, so only the three floating dtypes are accepted.
func SelfAttention(attn, q, k, v *tensor.View, scale float32) error {
	if q.Rank() != 3 {
		return fmt.Errorf("%w: attention: q rank %d, want 3", ErrShape, q.Rank())
	}
	if k.Rank() != 3 {
		return fmt.Errorf("%w: attention: k rank %d, want 3", ErrShape, k.Rank())
	}
	if v.Rank() != 3 {
		return fmt.Errorf("%w: attention: v rank %d, want 3", ErrShape, v.Rank())
	}
	if k.Dim(2) != q.Dim(2) {
		return fmt.Errorf("%w: attention: k head dim %d, q head dim %d", ErrShape, k.Dim(2), q.Dim(2))
	}
	if k.Dim(0) != v.Dim(0) || k.Dim(1) != v.Dim(1) {
		return fmt.Errorf("%w: attention: k %v, v %v", ErrShape, k.Shape(), v.Shape())
	}
	if k.Dim(0) < q.Dim(0) {
		return fmt.Errorf("%w: attention: kv length %d shorter than query batch %d", ErrShape, k.Dim(0), q.Dim(0))
	}
	if q.Dim(1)%k.Dim(1) != 0 {
		return fmt.Errorf("%w: attention: %d query heads not divisible by %d kv heads", ErrShape, q.Dim(1), k.Dim(1))
	}
	if attn.Rank() != 3 || attn.Dim(0) != q.Dim(0) || attn.Dim(1) != q.Dim(1) || attn.Dim(2) != v.Dim(2) {
		return fmt.Errorf("%w: attention: attn %v, want [%d %d %d]", ErrShape, attn.Shape(), q.Dim(0), q.Dim(1), v.Dim(2))
	}
	if q.DType() != attn.DType() || k.DType() != attn.DType() || v.DType() != attn.DType() {
		return fmt.Errorf("%w: attention: q %v, k %v, v %v, attn %v", ErrDType, q.DType(), k.DType(), v.DType(), attn.DType())
	}

	switch attn.DType() {
	case dtype.F32:
		return attentionAs[float32](dtype.F32Codec{}, attn, q, k, v, scale)
	case dtype.F16:
		return attentionAs[dtype.Float16](dtype.F16Codec{}, attn, q, k, v, scale)
	case dtype.BF16:
		return attentionAs[dtype.BFloat16](dtype.BF16Codec{}, attn, q, k, v, scale)
	default:
		return fmt.Errorf("%w: attention: %v is not a floating dtype", ErrDType, attn.DType())
	}
}

func attentionAs[T dtype.Element, C dtype.Codec[T]](c C, attn, q, k, v *tensor.View, scale float32) error {
	ae, err := tensor.ElemsOf[T](attn)
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	qe, err := tensor.ElemsOf[T](q)
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	ke, err := tensor.ElemsOf[T](k)
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	ve, err := tensor.ElemsOf[T](v)
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}

	sq, heads, d := q.Dim(0), q.Dim(1), q.Dim(2)
	skv, kvHeads, dv := k.Dim(0), k.Dim(1), v.Dim(2)
	cacheLen := skv - sq
	groups := heads / kvHeads

	scores := make([]float32, skv)
	for s := range sq {
		span := cacheLen + s + 1
		for h := range heads {
			kvh := h / groups

			w := scores[:span]
			for sk := range span {
				var dot float32
				for j := range d {
					dot += c.ToF32(qe.At3(s, h, j)) * c.ToF32(ke.At3(sk, kvh, j))
				}
				w[sk] = dot * scale
			}

			max := w[0]
			for _, x := range w[1:] {
				if x > max {
					max = x
				}
			}
			var sum float32
			for i, x := range w {
				e := math32.Exp(x - max)
				w[i] = e
				sum += e
			}
			for i := range w {
				w[i] /= sum
			}

			for j := range dv {
				var acc float32
				for sk := range span {
					acc += w[sk] * c.ToF32(ve.At3(sk, kvh, j))
				}
				ae.Set3(s, h, j, c.FromF32(acc))
			}
		}
	}
	return nil
}
