// Package pipeline orchestrates the full per-function optimization control
// flow of spec.md §2, ported from the teacher's OptimizationPipeline.Run
// sequential pass loop (internal/ir/optimizations.go) — generalized from a
// fixed AddPass slice to the stage order spec.md §2 mandates, each stage
// individually gated by internal/config.Config, and reporting through
// internal/diag.Reporter in place of the teacher's fmt.Printf progress
// lines.
package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"tacopt/internal/avail"
	"tacopt/internal/cfg"
	"tacopt/internal/config"
	"tacopt/internal/constprop"
	"tacopt/internal/copyprop"
	"tacopt/internal/diag"
	"tacopt/internal/dominance"
	"tacopt/internal/induction"
	"tacopt/internal/ir"
	"tacopt/internal/live"
	"tacopt/internal/loopopt"
	"tacopt/internal/peephole"
)

// Optimize runs spec.md §2's control flow over a single function: CFG
// built → dominance → loops → preheaders → strength reduction →
// (constant-prop → CSE → copy-prop) → constant-prop (2nd) →
// live-variable DCE to fixed point → optional single-use-temp fusion.
// Each stage is skipped if disabled in cfg. rep may be nil, in which case
// no diagnostics are recorded.
//
// A pass that panics with an invariant violation (dominance's
// non-convergence, loopopt's preheader post-conditions) is recovered here
// and turned into a returned error, so one malformed or non-reducible
// function aborts only its own optimization (spec.md §7) rather than the
// whole batch run driving OptimizeProgram/OptimizeConcurrent.
func Optimize(fn *ir.Function, cfg_ config.Config, rep *diag.Reporter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = fmt.Errorf("pipeline: %v", r)
			}
			var inv *diag.InvariantError
			msg := err.Error()
			if errors.As(err, &inv) {
				msg = inv.Error()
			}
			if rep != nil {
				rep.Report(diag.Diagnostic{Level: diag.LevelError, Pass: "pipeline", Function: fn.Name, Message: msg})
			}
		}
	}()

	cfg.Build(fn)

	dom := dominance.Compute(fn, cfg_.MaxDominanceIterations)

	if cfg_.LoopOpt {
		loops := loopopt.DetectLoops(fn, dom)
		topLevel := loopopt.BuildHierarchy(loops)
		loopopt.MaterializeAllPreheaders(fn, loops)

		if cfg_.InductionStrengthReduction {
			reduceInductionVariables(fn, topLevel, dom, rep)
		}
	}

	if cfg_.ConstProp {
		foldConstants(fn, rep)
	}

	if cfg_.CSE {
		eliminateCommonSubexpressions(fn, rep)
	}

	if cfg_.CopyProp {
		propagateCopies(fn, rep)
	}

	// spec.md §2: a second constant-propagation pass, since copy
	// propagation can expose fresh fold opportunities (rd := rs where rs
	// is now known constant).
	if cfg_.ConstProp {
		foldConstants(fn, rep)
	}

	if cfg_.LiveDCE {
		eliminateDeadCodeToFixedPoint(fn, rep)
	}

	if cfg_.Peephole {
		if peephole.FuseSingleUseTemps(fn) {
			note(rep, fn, "peephole", "fused single-use temporaries")
		}
	}

	return nil
}

func reduceInductionVariables(fn *ir.Function, loops []*loopopt.Loop, dom dominance.Result, rep *diag.Reporter) {
	var walk func(l *loopopt.Loop)
	walk = func(l *loopopt.Loop) {
		for _, child := range l.Children {
			walk(child)
		}
		if l.Preheader != nil {
			basics := induction.ClassifyBasicIVs(l, dom)
			derived := induction.ClassifyDerivedIVs(l, basics)
			reduced := induction.StrengthReduce(fn, l, derived)
			if len(reduced) > 0 {
				note(rep, fn, "induction", "strength-reduced induction variables in a loop")
			}
		}
	}
	for _, l := range loops {
		walk(l)
	}
}

func foldConstants(fn *ir.Function, rep *diag.Reporter) {
	res := constprop.Solve(fn)
	if constprop.Fold(fn, res) {
		note(rep, fn, "constprop", "folded constants")
	}
}

func eliminateCommonSubexpressions(fn *ir.Function, rep *diag.Reporter) {
	t := avail.Preprocess(fn)
	res := avail.Solve(fn, t)
	if avail.CSERewrite(fn, t, res) {
		note(rep, fn, "avail", "eliminated redundant computations")
	}
}

func propagateCopies(fn *ir.Function, rep *diag.Reporter) {
	res := copyprop.Solve(fn)
	if copyprop.Rewrite(fn, res) {
		note(rep, fn, "copyprop", "propagated copies")
	}
}

// eliminateDeadCodeToFixedPoint alternates live.Solve and
// live.EliminateDeadCode until a round removes nothing, matching spec.md
// §4.6's "DCE to fixed point" contract and the teacher's Run loop
// convention of looping a pass until it reports no change.
func eliminateDeadCodeToFixedPoint(fn *ir.Function, rep *diag.Reporter) {
	for live.EliminateDeadCode(fn) {
		note(rep, fn, "live", "removed dead code")
	}
}

func note(rep *diag.Reporter, fn *ir.Function, pass, msg string) {
	if rep == nil {
		return
	}
	rep.Report(diag.Diagnostic{Level: diag.LevelNote, Pass: pass, Function: fn.Name, Message: msg})
}

// OptimizeProgram runs Optimize once per function in program order, the
// default sequential contract of spec.md §5 ("single-threaded and
// synchronous").
func OptimizeProgram(prog *ir.Program, cfg_ config.Config, rep *diag.Reporter) error {
	for _, fn := range prog.Functions {
		if err := Optimize(fn, cfg_, rep); err != nil {
			return err
		}
	}
	return nil
}

// OptimizeConcurrent is spec.md §5's permissible extension: it runs
// Optimize once per function concurrently, bounded by cfg.Parallelism,
// using golang.org/x/sync/errgroup. This is valid only because every
// analysis in Optimize reads solely its own function's state plus the
// mutex-guarded shared ir.IDContext (internal/ir); two goroutines never
// run an analysis on the *same* function at once, preserving §5's
// per-function "disallowed" clause while parallelizing across functions.
// internal/diag.Reporter is not itself safe for concurrent Report calls,
// so rep should be nil here; collect per-function diagnostics by calling
// Optimize directly inside a caller-supplied goroutine instead.
func OptimizeConcurrent(prog *ir.Program, cfg_ config.Config, rep *diag.Reporter) error {
	var g errgroup.Group
	if cfg_.Parallelism > 0 {
		g.SetLimit(cfg_.Parallelism)
	}
	for _, fn := range prog.Functions {
		fn := fn
		g.Go(func() error {
			return Optimize(fn, cfg_, rep)
		})
	}
	return g.Wait()
}
