// Package ops implements the operator kernels of a minimal transformer
// runtime: embedding lookup, linear projection, RMS normalization, rotary
// position embedding, causal grouped-query self-attention, and argmax.
//
// Every operation validates all of its preconditions before touching the
// output view, then dispatches once on the dtype tag to a generic kernel
// instantiated for the storage type. Arithmetic widens each element to
// float32 (float64 for the linear accumulator and for RoPE), computes, and
// narrows back through pkg/dtype, so results are identical across layouts.
// Kernels read and write strictly through the views they are handed and keep
// no state between calls; concurrent calls are safe as long as the output
// views do not alias.
package ops
