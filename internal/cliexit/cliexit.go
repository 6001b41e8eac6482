// Package cliexit names the process exit codes the codegraph CLI returns
// (spec §6: "Exit codes: 0 success; 2 usage error; 3 I/O error; 4 corrupt
// index; 1 otherwise"). The teacher's cmd/decompose always exits 0 or 1;
// this enumerates the finer-grained codes the spec requires.
package cliexit

const (
	Success       = 0
	Failure       = 1
	UsageError    = 2
	IOError       = 3
	CorruptIndex  = 4
)
