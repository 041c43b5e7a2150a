package bootstrap

import (
	"fmt"

	"github.com/hyrule-sim/pouchsim/internal/cpu"
	"github.com/hyrule-sim/pouchsim/internal/memory"
	"github.com/hyrule-sim/pouchsim/internal/process"
	"github.com/hyrule-sim/pouchsim/internal/proxy"
)

// Singleton is one singleton's bootstrap program plus its pre-reserved
// heap layout: RelStart/Size describe the byte range — relative to the
// heap region's start — that AllocateSingleton marks allocated without
// moving the bump pointer (spec §4.5).
type Singleton struct {
	Name     string
	RelStart uint64
	Size     uint64
	Program  []Inst
}

// VM replays one Singleton's bytecode against a bound Cpu2, the same
// register-and-control-flow primitives the real constructor runs under,
// substituting heap allocations and proxy placeholders for parts of the
// constructor the simulator skips.
type VM struct {
	C2         *cpu.Cpu2
	Proc       *process.Process
	StaticData map[uint8][]byte // program.DataID -> bundled blob, for AllocateData

	prevLo    uint32
	hasPendLo bool
}

// NewVM binds cpu1 to proc for the duration of one singleton's bootstrap
// program.
func NewVM(proc *process.Process, cpu1 *cpu.Cpu1, limits cpu.Limits, staticData map[uint8][]byte) *VM {
	return &VM{C2: proc.Bind(cpu1, limits), Proc: proc, StaticData: staticData}
}

// Run executes s's program in order and returns the singleton's final
// heap address.
func (vm *VM) Run(s Singleton) (uint64, error) {
	if len(s.Program) == 0 {
		return 0, nil
	}
	for i, inst := range s.Program {
		if err := vm.step(inst, s); err != nil {
			return 0, fmt.Errorf("bootstrap: %s: instruction %d (op 0x%02x): %w", s.Name, i, inst.Op, err)
		}
	}
	return vm.singletonAddr(s), nil
}

func (vm *VM) singletonAddr(s Singleton) uint64 {
	return vm.Proc.Mem.Heap().Region().Start + s.RelStart
}

func (vm *VM) step(inst Inst, s Singleton) error {
	main := vm.Proc.Main
	switch inst.Op {
	case OpEnter:
		vm.C2.Enter(main + uint64(inst.Imm))
		return nil

	case OpSetRegHi:
		lo := uint64(0)
		if vm.hasPendLo {
			lo = uint64(vm.prevLo)
			vm.hasPendLo = false
		}
		return vm.setReg(inst.Reg, (uint64(inst.Imm)<<32)|lo)

	case OpSetRegLo:
		return vm.setReg(inst.Reg, uint64(inst.Imm))

	case OpRegLoNextHi:
		vm.prevLo = inst.Imm
		vm.hasPendLo = true
		return nil

	case OpCopyReg:
		return vm.copyReg(inst.Reg, inst.Reg2)

	case OpExecuteUntil:
		return vm.C2.RunUntil(main + uint64(inst.Imm))

	case OpJump:
		vm.C2.Regs.PC = main + uint64(inst.Imm)
		return nil

	case OpExecuteUntilThenSkipOne:
		if err := vm.C2.RunUntil(main + uint64(inst.Imm)); err != nil {
			return err
		}
		vm.C2.Regs.PC = main + uint64(inst.Imm) + 4
		return nil

	case OpExecuteUntilThenAllocSingletonSkipOne:
		if err := vm.C2.RunUntil(main + uint64(inst.Imm)); err != nil {
			return err
		}
		vm.allocateSingleton(s)
		vm.C2.Regs.PC = main + uint64(inst.Imm) + 4
		return nil

	case OpJumpExecute:
		vm.C2.Regs.PC = main + uint64(inst.Imm)
		return vm.C2.RunUntil(main + uint64(inst.Imm) + 4)

	case OpAllocate:
		return vm.allocate(inst.Imm)

	case OpAllocateProxy:
		return vm.allocateProxy(ProxyKind(inst.Imm))

	case OpAllocateData:
		return vm.allocateData(uint8(inst.Imm))

	case OpAllocateSingleton:
		vm.allocateSingleton(s)
		return nil

	case OpGetSingleton:
		return vm.setReg(inst.Reg, vm.singletonAddr(s))

	case OpExecuteToComplete:
		return vm.C2.RunUntil(cpu.InternalReturnSentinel)

	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownOp, inst.Op)
	}
}

func (vm *VM) allocate(n uint32) error {
	addr := vm.Proc.Mem.Heap().Alloc(uint64(n))
	if addr == 0 {
		return ErrHeapExhausted
	}
	vm.C2.Regs.X[0] = addr
	return nil
}

// proxyPlaceholderSize is an arbitrary small reservation: the address only
// needs to be distinct and non-zero. The bytes at it are never filled in,
// and no hook redirects guest access through it to the host-side proxy.
const proxyPlaceholderSize = 16

func (vm *VM) allocateProxy(kind ProxyKind) error {
	if kind != ProxyTriggerParam {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownProxyKind, kind)
	}
	addr := vm.Proc.Mem.Heap().Alloc(proxyPlaceholderSize)
	if addr == 0 {
		return ErrHeapExhausted
	}
	if vm.Proc.Proxy.TriggerParam == nil {
		vm.Proc.Proxy.TriggerParam = proxy.NewTriggerParam()
	}
	vm.Proc.Proxy.TriggerParamAddr = addr
	vm.C2.Regs.X[0] = addr
	return nil
}

func (vm *VM) allocateData(id uint8) error {
	blob, ok := vm.StaticData[id]
	if !ok {
		return fmt.Errorf("%w: id 0x%02x", ErrUnknownDataKind, id)
	}
	addr := vm.Proc.Mem.Heap().Alloc(uint64(len(blob)))
	if addr == 0 {
		return ErrHeapExhausted
	}
	w, err := vm.Proc.Mem.NewWriter(addr, memory.PermWrite)
	if err != nil {
		return err
	}
	if err := w.WriteBytes(blob); err != nil {
		return err
	}
	vm.C2.Regs.X[0] = addr
	return nil
}

func (vm *VM) allocateSingleton(s Singleton) {
	vm.Proc.Mem.Heap().MarkAllocated(s.RelStart, s.Size)
	vm.C2.Regs.X[0] = vm.singletonAddr(s)
}

// setReg writes a 64-bit value to register reg: 0-30 is X0-X30, 32-63 is
// the raw bit pattern backing S0-S31/D0-D31.
func (vm *VM) setReg(reg uint8, v uint64) error {
	switch {
	case reg <= 30:
		vm.C2.Regs.WriteX(int(reg), v)
		return nil
	case reg >= 32 && reg <= 63:
		vm.C2.Regs.F[reg-32] = v
		return nil
	default:
		return fmt.Errorf("%w: register %d", cpu.ErrBadRegisterClass, reg)
	}
}

func (vm *VM) readReg(reg uint8) (uint64, error) {
	switch {
	case reg <= 30:
		return vm.C2.Regs.ReadX(int(reg)), nil
	case reg >= 32 && reg <= 63:
		return vm.C2.Regs.F[reg-32], nil
	default:
		return 0, fmt.Errorf("%w: register %d", cpu.ErrBadRegisterClass, reg)
	}
}

func (vm *VM) copyReg(from, to uint8) error {
	v, err := vm.readReg(from)
	if err != nil {
		return err
	}
	return vm.setReg(to, v)
}
