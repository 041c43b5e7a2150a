package cpu

import (
	"fmt"
	"sort"

	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/obslog"
	"github.com/hyrule-sim/pouchsim/internal/obsmetrics"
)

// InternalReturnSentinel is written into LR by native_jump so that
// returning out of the called function is observable as PC equalling this
// value, without needing a native call stack (spec §4.2).
const InternalReturnSentinel uint64 = 0xDEAD464C414D45AA

// MaxFetchBytes bounds how much unguarded, uncached code a single fetch
// will disassemble before forcing a block boundary (spec §4.2: "default
// one page").
const MaxFetchBytes = memory.PageSize

// MemoryView is everything the CPU needs from a borrowed Process: typed
// readers/writers over the emulated address space. Defined here (rather
// than importing internal/process) to avoid a process<->cpu import cycle —
// internal/process builds Cpu2 values bound to itself (Process.Bind), so the
// dependency must run the other way.
type MemoryView interface {
	NewReader(addr uint64, want memory.Permission) (*memory.Reader, error)
	NewWriter(addr uint64, want memory.Permission) (*memory.Writer, error)
}

// HookProvider is the process-scoped ordered hook registry (internal/linker
// implements it). Replace hooks are consulted only on an execute-cache
// miss; Observe hooks fire on every dispatch regardless of cache status, so
// that register-snapshotting hooks (CreateEquip, CreateHoldingItem) see
// every call even once the surrounding code is cached.
type HookProvider interface {
	Replace(mainOffset uint64) (blk *Block, name string, ok bool)
	Observe(mainOffset uint64) (fn func(*Cpu2), name string, ok bool)
}

// Limits bounds execution per spec §4.2's block-count and block-iteration
// guards, which exist to detect infinite loops in miscompiled or
// mis-hooked code rather than to impose a general scheduling quota.
type Limits struct {
	MaxBlocksPerCall int // 0 = unbounded
	MaxInsnPerBlock  int // 0 = unbounded
}

// Block is a pre-disassembled, cacheable span of instructions ending at
// the first control-flow break (or at MaxFetchBytes).
type Block struct {
	MainOffset uint64
	Insns      []Decoded
}

func (b *Block) byteLen() uint64 { return uint64(len(b.Insns)) * 4 }

// Cpu0 is the bare register file plus stack trace: Level 0 of spec §4.2's
// layered design.
type Cpu0 struct {
	Regs  Registers
	Trace *StackTrace
}

func NewCpu0() *Cpu0 {
	return &Cpu0{Trace: NewStackTrace(256)}
}

// Cpu1 adds the per-game-version execute cache on top of Cpu0: Level 1.
type Cpu1 struct {
	*Cpu0
	cache []*Block // sorted by MainOffset, for binary search and mid-block resume
}

func NewCpu1() *Cpu1 {
	return &Cpu1{Cpu0: NewCpu0()}
}

// lookup finds a cached block covering offset and returns it with the
// instruction index to resume at (mid-block resume on a jump into the
// interior of an existing block, per spec §4.2).
func (c *Cpu1) lookup(offset uint64) (*Block, int, bool) {
	i := sort.Search(len(c.cache), func(i int) bool {
		return c.cache[i].MainOffset+c.cache[i].byteLen() > offset
	})
	if i >= len(c.cache) || offset < c.cache[i].MainOffset {
		return nil, 0, false
	}
	blk := c.cache[i]
	step := int((offset - blk.MainOffset) / 4)
	return blk, step, true
}

// insert adds a freshly decoded block to the cache. Per spec §4.2,
// insertion requires the block not overlap any existing entry.
func (c *Cpu1) insert(blk *Block) error {
	end := blk.MainOffset + blk.byteLen()
	i := sort.Search(len(c.cache), func(i int) bool { return c.cache[i].MainOffset >= blk.MainOffset })
	if i > 0 {
		prev := c.cache[i-1]
		if prev.MainOffset+prev.byteLen() > blk.MainOffset {
			return fmt.Errorf("cpu: block at 0x%x overlaps cached block at 0x%x", blk.MainOffset, prev.MainOffset)
		}
	}
	if i < len(c.cache) && c.cache[i].MainOffset < end {
		return fmt.Errorf("cpu: block at 0x%x overlaps cached block at 0x%x", blk.MainOffset, c.cache[i].MainOffset)
	}
	c.cache = append(c.cache, nil)
	copy(c.cache[i+1:], c.cache[i:])
	c.cache[i] = blk
	return nil
}

// Cpu2 binds a Cpu1 to a borrowed Process's memory and hook registry for
// the duration of one native_jump: Level 2.
type Cpu2 struct {
	*Cpu1
	Mem       MemoryView
	Hooks     HookProvider
	MainStart uint64
	Limits    Limits
}

// NativeJump is how the linker calls into guest code: save PC, poison LR
// with the sentinel, jump to target, and run blocks until PC reads back
// the sentinel (i.e. the callee returned).
func (c *Cpu2) NativeJump(target uint64) error {
	savedPC := c.Regs.PC
	c.Regs.X[30] = InternalReturnSentinel
	c.Regs.PC = target

	blocks := 0
	for c.Regs.PC != InternalReturnSentinel {
		if c.Limits.MaxBlocksPerCall > 0 && blocks >= c.Limits.MaxBlocksPerCall {
			return ErrBlockCountLimitReached
		}
		if err := c.executeOnce(); err != nil {
			return err
		}
		blocks++
	}
	c.Regs.PC = savedPC
	return nil
}

// Enter starts a call the way NativeJump does — poison LR with the
// sentinel and set PC to target — but returns immediately instead of
// running to completion. Used by the singleton bootstrap VM
// (internal/bootstrap), which drives a call step by step via RunUntil
// rather than end to end.
func (c *Cpu2) Enter(target uint64) {
	c.Regs.X[30] = InternalReturnSentinel
	c.Regs.PC = target
}

// RunUntil executes blocks until PC equals target — the
// "ExecuteUntil(addr)" primitive spec §4.5's singleton bootstrap bytecode is
// built from. PC is compared only between blocks. Reaching the sentinel
// before target (the entered call returned) stops with ErrUnexpectedReturn.
func (c *Cpu2) RunUntil(target uint64) error {
	blocks := 0
	for c.Regs.PC != target {
		if c.Regs.PC == InternalReturnSentinel {
			return ErrUnexpectedReturn
		}
		if c.Limits.MaxBlocksPerCall > 0 && blocks >= c.Limits.MaxBlocksPerCall {
			return ErrBlockCountLimitReached
		}
		if err := c.executeOnce(); err != nil {
			return err
		}
		blocks++
	}
	return nil
}

// executeOnce runs exactly one block starting at (or resuming mid-way
// into) the block covering the current PC, per spec §4.2's execution loop.
func (c *Cpu2) executeOnce() error {
	off := c.Regs.PC - c.MainStart

	if c.Hooks != nil {
		if fn, name, ok := c.Hooks.Observe(off); ok {
			if obslog.L != nil {
				obslog.L.Hook("observe", name, off)
			}
			fn(c)
		}
	}

	if blk, step, ok := c.lookup(off); ok {
		obsmetrics.RecordBlockCacheLookup(true)
		return c.runBlock(blk, step)
	}
	obsmetrics.RecordBlockCacheLookup(false)

	if c.Hooks != nil {
		if repl, name, ok := c.Hooks.Replace(off); ok {
			if obslog.L != nil {
				obslog.L.Hook("replace", name, off)
			}
			return c.runBlock(repl, 0)
		}
	}

	blk, err := c.fetchAndDecode(off)
	if err != nil {
		return err
	}
	if err := c.insert(blk); err != nil {
		return err
	}
	return c.runBlock(blk, 0)
}

func (c *Cpu2) fetchAndDecode(off uint64) (*Block, error) {
	addr := c.MainStart + off
	r, err := c.Mem.NewReader(addr, memory.PermExecute)
	if err != nil {
		return nil, err
	}

	blk := &Block{MainOffset: off}
	for uint64(len(blk.Insns))*4 < MaxFetchBytes {
		bits, err := r.ReadU32()
		if err != nil {
			if len(blk.Insns) == 0 {
				return nil, err
			}
			break
		}
		d := Decode(addr+uint64(len(blk.Insns))*4, bits)
		blk.Insns = append(blk.Insns, d)
		if isControlFlow(d.Kind) {
			break
		}
	}
	if len(blk.Insns) == 0 {
		return nil, &BadInstruction{Addr: addr}
	}
	return blk, nil
}

func isControlFlow(k Kind) bool {
	switch k {
	case KindUncondBranchImm, KindCondBranchImm, KindCompareBranch, KindTestBranch, KindUncondBranchReg:
		return true
	}
	return false
}

// runBlock executes blk.Insns[step:] in order, applying spec §4.3's
// per-class semantics, and stops after the block's final (control-flow)
// instruction or after falling off the end of a fetch_max-truncated block.
func (c *Cpu2) runBlock(blk *Block, step int) error {
	count := 0
	for i := step; i < len(blk.Insns); i++ {
		if c.Limits.MaxInsnPerBlock > 0 && count >= c.Limits.MaxInsnPerBlock {
			return ErrBlockIterLimitReached
		}
		count++
		insn := blk.Insns[i]
		c.Regs.PC = insn.Addr + 4 // default fallthrough; branch handlers override
		if err := c.exec(insn); err != nil {
			return err
		}
	}
	return nil
}
