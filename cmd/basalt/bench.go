package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/sys/cpu"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/ops"
	"github.com/samcharles93/basalt/pkg/tensor"
)

type benchResult struct {
	Op      string  `json:"op"`
	DType   string  `json:"dtype"`
	Iters   int     `json:"iters"`
	NsPerOp float64 `json:"ns_per_op"`
}

type benchReport struct {
	RunID      string          `json:"run_id"`
	GoVersion  string          `json:"go_version"`
	GoOS       string          `json:"go_os"`
	GoArch     string          `json:"go_arch"`
	CPUs       int             `json:"cpus"`
	GOMAXPROCS int             `json:"gomaxprocs"`
	Features   map[string]bool `json:"cpu_features"`
	Results    []benchResult   `json:"results"`
}

func cpuFeatures() map[string]bool {
	return map[string]bool{
		"AVX":     cpu.X86.HasAVX,
		"AVX2":    cpu.X86.HasAVX2,
		"FMA":     cpu.X86.HasFMA,
		"AVX512F": cpu.X86.HasAVX512F,
		"SSE42":   cpu.X86.HasSSE42,
		"NEON":    cpu.ARM64.HasASIMD,
	}
}

func benchCmd() *cli.Command {
	var (
		seq     int64
		dim     int64
		vocabSz int64
		iters   int64
		dtypes  string
		asJSON  bool
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "seq",
			Usage:       "sequence length for row-wise kernels",
			Value:       64,
			Destination: &seq,
		},
		&cli.Int64Flag{
			Name:        "dim",
			Usage:       "feature width (must be a multiple of 16)",
			Value:       256,
			Destination: &dim,
		},
		&cli.Int64Flag{
			Name:        "vocab",
			Usage:       "vocabulary size for embedding and argmax",
			Value:       4096,
			Destination: &vocabSz,
		},
		&cli.Int64Flag{
			Name:        "iters",
			Usage:       "iterations per kernel",
			Value:       50,
			Destination: &iters,
		},
		&cli.StringFlag{
			Name:        "dtypes",
			Usage:       "comma-separated storage dtypes to bench",
			Value:       "f32,f16,bf16",
			Destination: &dtypes,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "emit a JSON report instead of a table",
			Destination: &asJSON,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time each kernel over configurable shapes",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyLogConfig(cmd, cfg)
			log := newLogger()

			if dim < 16 || dim%16 != 0 {
				return cli.Exit(fmt.Sprintf("error: --dim %d is not a multiple of 16", dim), 1)
			}
			if seq < 1 || vocabSz < 1 || iters < 1 {
				return cli.Exit("error: --seq, --vocab and --iters must be positive", 1)
			}

			var tags []dtype.DType
			for _, name := range strings.Split(dtypes, ",") {
				dt, err := dtype.Parse(strings.TrimSpace(name))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				tags = append(tags, dt)
			}

			report := benchReport{
				RunID:      uuid.NewString(),
				GoVersion:  runtime.Version(),
				GoOS:       runtime.GOOS,
				GoArch:     runtime.GOARCH,
				CPUs:       runtime.NumCPU(),
				GOMAXPROCS: runtime.GOMAXPROCS(0),
				Features:   cpuFeatures(),
			}

			for _, dt := range tags {
				log.Info("benchmarking", "dtype", dt, "seq", seq, "dim", dim, "vocab", vocabSz)
				results, err := benchDType(dt, int(seq), int(dim), int(vocabSz), int(iters))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: bench %v: %v", dt, err), 1)
				}
				report.Results = append(report.Results, results...)
			}

			if asJSON {
				enc := gojson.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return cli.Exit(fmt.Sprintf("error: encode report: %v", err), 1)
				}
				return nil
			}

			fmt.Println("=== Basalt Bench ===")
			fmt.Printf("Run:        %s\n", report.RunID)
			fmt.Printf("Go:         %s %s/%s\n", report.GoVersion, report.GoOS, report.GoArch)
			fmt.Printf("CPUs:       %d\n", report.CPUs)
			fmt.Printf("GOMAXPROCS: %d\n", report.GOMAXPROCS)
			fmt.Println()
			fmt.Printf("%-16s %-6s %8s %14s\n", "Op", "DType", "Iters", "ns/op")
			for _, r := range report.Results {
				fmt.Printf("%-16s %-6s %8d %14.0f\n", r.Op, r.DType, r.Iters, r.NsPerOp)
			}

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Printf("\nMemory: %.1f MB alloc, %.1f MB sys\n",
				float64(mem.Alloc)/(1024*1024),
				float64(mem.Sys)/(1024*1024))
			return nil
		},
	}
}

// benchDType times every kernel that supports dt. Attention only runs for
// the floating dtypes.
func benchDType(dt dtype.DType, seq, dim, vocabSz, iters int) ([]benchResult, error) {
	const (
		benchHeads   = 8
		benchKVHeads = 2
	)
	headDim := dim / benchHeads

	var results []benchResult
	add := func(op string, f func() error) error {
		ns, err := timeKernel(iters, f)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		results = append(results, benchResult{Op: op, DType: dt.String(), Iters: iters, NsPerOp: ns})
		return nil
	}

	embW, err := newRandom(dt, 1, vocabSz, dim)
	if err != nil {
		return nil, err
	}
	idx := make([]int64, seq)
	for i := range idx {
		idx[i] = int64((i * 37) % vocabSz)
	}
	embIdx, err := tensor.FromInt64s(idx, seq)
	if err != nil {
		return nil, err
	}
	embOut, err := tensor.New(dt, seq, dim)
	if err != nil {
		return nil, err
	}
	if err := add("embedding", func() error { return ops.Embedding(embOut, embIdx, embW) }); err != nil {
		return nil, err
	}

	linIn, err := newRandom(dt, 2, seq, dim)
	if err != nil {
		return nil, err
	}
	linW, err := newRandom(dt, 3, dim, dim)
	if err != nil {
		return nil, err
	}
	linB, err := newRandom(dt, 4, dim)
	if err != nil {
		return nil, err
	}
	linOut, err := tensor.New(dt, seq, dim)
	if err != nil {
		return nil, err
	}
	if err := add("linear", func() error { return ops.Linear(linOut, linIn, linW, linB) }); err != nil {
		return nil, err
	}

	normW, err := newRandom(dt, 5, dim)
	if err != nil {
		return nil, err
	}
	normOut, err := tensor.New(dt, seq, dim)
	if err != nil {
		return nil, err
	}
	if err := add("rms_norm", func() error { return ops.RMSNorm(normOut, linIn, normW, 1e-5) }); err != nil {
		return nil, err
	}

	ropeIn, err := newRandom(dt, 6, seq, benchHeads, headDim)
	if err != nil {
		return nil, err
	}
	pos := make([]int64, seq)
	for i := range pos {
		pos[i] = int64(i)
	}
	posIDs, err := tensor.FromInt64s(pos, seq)
	if err != nil {
		return nil, err
	}
	ropeOut, err := tensor.New(dt, seq, benchHeads, headDim)
	if err != nil {
		return nil, err
	}
	if err := add("rope", func() error { return ops.RoPE(ropeOut, ropeIn, posIDs, 10000) }); err != nil {
		return nil, err
	}

	if dt.Float() {
		k, err := newRandom(dt, 7, seq, benchKVHeads, headDim)
		if err != nil {
			return nil, err
		}
		v, err := newRandom(dt, 8, seq, benchKVHeads, headDim)
		if err != nil {
			return nil, err
		}
		attnOut, err := tensor.New(dt, seq, benchHeads, headDim)
		if err != nil {
			return nil, err
		}
		scale := float32(1) / float32(headDim)
		if err := add("self_attention", func() error { return ops.SelfAttention(attnOut, ropeIn, k, v, scale) }); err != nil {
			return nil, err
		}
	}

	vals, err := newRandom(dt, 9, vocabSz)
	if err != nil {
		return nil, err
	}
	maxIdx, err := tensor.New(dtype.I64)
	if err != nil {
		return nil, err
	}
	maxVal, err := tensor.New(dt)
	if err != nil {
		return nil, err
	}
	if err := add("argmax", func() error { return ops.Argmax(maxIdx, maxVal, vals) }); err != nil {
		return nil, err
	}

	return results, nil
}

func timeKernel(iters int, f func() error) (float64, error) {
	// One untimed warmup run.
	if err := f(); err != nil {
		return 0, err
	}
	start := time.Now()
	for range iters {
		if err := f(); err != nil {
			return 0, err
		}
	}
	return float64(time.Since(start).Nanoseconds()) / float64(iters), nil
}
