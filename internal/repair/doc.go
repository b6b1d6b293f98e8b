// Package repair finds the single nop/jmp flip that makes a looping program
// terminate.
//
// Three strategies share one contract. StrategyBaseline re-runs every
// candidate from scratch and defines the result. StrategyIncremental reuses
// the unmodified prefix of one run by rewinding its trace. StrategyParallel
// evaluates independent copies concurrently. All three return the same
// Result for the same program.
package repair
