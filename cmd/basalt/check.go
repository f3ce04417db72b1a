package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/ops"
	"github.com/samcharles93/basalt/pkg/tensor"
)

func checkCmd() *cli.Command {
	flags := append([]cli.Flag{}, loggingFlags()...)

	return &cli.Command{
		Name:  "check",
		Usage: "Run kernel conformance fixtures across every dtype",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyLogConfig(cmd, cfg)
			log := newLogger().With("run", uuid.NewString())

			// Kernels are safe to run concurrently on disjoint views, so
			// the dtype lanes fan out.
			g, _ := errgroup.WithContext(ctx)
			for _, dt := range dtype.All() {
				g.Go(func() error {
					if err := checkDType(dt); err != nil {
						return fmt.Errorf("%v: %w", dt, err)
					}
					log.Info("dtype conforms", "dtype", dt)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return cli.Exit(fmt.Sprintf("error: conformance: %v", err), 1)
			}
			log.Info("all kernels conform")
			return nil
		},
	}
}

// checkDType runs the fixture set for one storage dtype. Every fixture value
// is a small integer, exactly representable in all eleven dtypes, so results
// are compared for equality after decoding.
func checkDType(dt dtype.DType) error {
	if err := checkEmbedding(dt); err != nil {
		return err
	}
	if err := checkLinearIdentity(dt); err != nil {
		return err
	}
	if err := checkRMSNorm(dt); err != nil {
		return err
	}
	if err := checkRoPEIdentity(dt); err != nil {
		return err
	}
	if dt.Float() {
		if err := checkAttentionSingle(dt); err != nil {
			return err
		}
	}
	return checkArgmax(dt)
}

func expectEqual(op string, v *tensor.View, want []float32) error {
	got, err := toFloat32s(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%s: element %d is %v, want %v", op, i, got[i], want[i])
		}
	}
	return nil
}

// checkEmbedding gathers rows [2,0,1] of a 3x2 table, then confirms an
// out-of-range index fails without touching the output.
func checkEmbedding(dt dtype.DType) error {
	weight, err := newFilled(dt, []float32{1, 2, 3, 4, 5, 6}, 3, 2)
	if err != nil {
		return err
	}
	index, err := tensor.FromInt64s([]int64{2, 0, 1}, 3)
	if err != nil {
		return err
	}
	out, err := tensor.New(dt, 3, 2)
	if err != nil {
		return err
	}
	if err := ops.Embedding(out, index, weight); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := expectEqual("embedding", out, []float32{5, 6, 1, 2, 3, 4}); err != nil {
		return err
	}

	bad, err := tensor.FromInt64s([]int64{0, 3, 1}, 3)
	if err != nil {
		return err
	}
	before := append([]byte(nil), out.Data()...)
	if err := ops.Embedding(out, bad, weight); !errors.Is(err, ops.ErrIndex) {
		return fmt.Errorf("embedding: out-of-range index returned %v, want ErrIndex", err)
	}
	for i, b := range out.Data() {
		if b != before[i] {
			return fmt.Errorf("embedding: output mutated by failed call at byte %d", i)
		}
	}
	return nil
}

// checkLinearIdentity projects through an identity weight and zero bias.
func checkLinearIdentity(dt dtype.DType) error {
	in, err := newFilled(dt, []float32{1, 2, 3, 4}, 2, 2)
	if err != nil {
		return err
	}
	weight, err := newFilled(dt, []float32{1, 0, 0, 1}, 2, 2)
	if err != nil {
		return err
	}
	bias, err := newFilled(dt, []float32{0, 0}, 2)
	if err != nil {
		return err
	}
	out, err := tensor.New(dt, 2, 2)
	if err != nil {
		return err
	}
	if err := ops.Linear(out, in, weight, bias); err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	return expectEqual("linear", out, []float32{1, 2, 3, 4})
}

// checkRMSNorm normalizes the constant row [2,2] with eps 0 and unit weight:
// mean square 4, scale 1/2, output [1,1].
func checkRMSNorm(dt dtype.DType) error {
	in, err := newFilled(dt, []float32{2, 2}, 1, 2)
	if err != nil {
		return err
	}
	weight, err := newFilled(dt, []float32{1, 1}, 2)
	if err != nil {
		return err
	}
	out, err := tensor.New(dt, 1, 2)
	if err != nil {
		return err
	}
	if err := ops.RMSNorm(out, in, weight, 0); err != nil {
		return fmt.Errorf("rms_norm: %w", err)
	}
	return expectEqual("rms_norm", out, []float32{1, 1})
}

// checkRoPEIdentity rotates at position 0, which must leave every element
// unchanged for any theta.
func checkRoPEIdentity(dt dtype.DType) error {
	in, err := newFilled(dt, []float32{1, 2, 3, 4}, 1, 1, 4)
	if err != nil {
		return err
	}
	pos, err := tensor.FromInt64s([]int64{0}, 1)
	if err != nil {
		return err
	}
	out, err := tensor.New(dt, 1, 1, 4)
	if err != nil {
		return err
	}
	if err := ops.RoPE(out, in, pos, 10000); err != nil {
		return fmt.Errorf("rope: %w", err)
	}
	return expectEqual("rope", out, []float32{1, 2, 3, 4})
}

// checkAttentionSingle attends a single query over a single cached position
// with k == v == q, so the sole softmax weight is 1 and the output is v.
func checkAttentionSingle(dt dtype.DType) error {
	q, err := newFilled(dt, []float32{1, 2, 3, 4}, 1, 2, 2)
	if err != nil {
		return err
	}
	attn, err := tensor.New(dt, 1, 2, 2)
	if err != nil {
		return err
	}
	if err := ops.SelfAttention(attn, q, q, q, 1); err != nil {
		return fmt.Errorf("self_attention: %w", err)
	}
	return expectEqual("self_attention", attn, []float32{1, 2, 3, 4})
}

// checkArgmax verifies the first of two tied maxima wins.
func checkArgmax(dt dtype.DType) error {
	vals, err := newFilled(dt, []float32{3, 7, 7, 2}, 4)
	if err != nil {
		return err
	}
	maxIdx, err := tensor.New(dtype.I64)
	if err != nil {
		return err
	}
	maxVal, err := tensor.New(dt)
	if err != nil {
		return err
	}
	if err := ops.Argmax(maxIdx, maxVal, vals); err != nil {
		return fmt.Errorf("argmax: %w", err)
	}
	idx, err := tensor.ElemsOf[int64](maxIdx)
	if err != nil {
		return err
	}
	if idx.Scalar() != 1 {
		return fmt.Errorf("argmax: index %d, want 1", idx.Scalar())
	}
	return expectEqual("argmax", maxVal, []float32{7})
}
