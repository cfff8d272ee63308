package trace

import "fmt"

// Reserved system signal ids, matching the firmware's signal table.
const (
	SigNone         uint16 = 0x0000
	SigSysInit      uint16 = 0x0001
	SigSysEntry     uint16 = 0x0002
	SigSysExit      uint16 = 0x0003
	SigSysTick      uint16 = 0x0004
	SigSysTimeout   uint16 = 0x0005
	SigSysDying     uint16 = 0x0006
	SigSysRevive    uint16 = 0x0007
	SigSysReset     uint16 = 0x0008
	SigSysSuspend   uint16 = 0x0009
	SigSysResume    uint16 = 0x000A
	SigParamChanged uint16 = 0x0020
	SigParamReady   uint16 = 0x0021
	SigUserBase     uint16 = 0x0100
)

var systemSignalNames = map[uint16]string{
	SigNone:         "SIG_NONE",
	SigSysInit:      "SIG_SYS_INIT",
	SigSysEntry:     "SIG_SYS_ENTRY",
	SigSysExit:      "SIG_SYS_EXIT",
	SigSysTick:      "SIG_SYS_TICK",
	SigSysTimeout:   "SIG_SYS_TIMEOUT",
	SigSysDying:     "SIG_SYS_DYING",
	SigSysRevive:    "SIG_SYS_REVIVE",
	SigSysReset:     "SIG_SYS_RESET",
	SigSysSuspend:   "SIG_SYS_SUSPEND",
	SigSysResume:    "SIG_SYS_RESUME",
	SigParamChanged: "SIG_PARAM_CHANGED",
	SigParamReady:   "SIG_PARAM_READY",
	SigUserBase:     "SIG_USER_BASE",
}

// SystemSignalName returns the reserved name for id, if it has one.
func SystemSignalName(id uint16) (string, bool) {
	name, ok := systemSignalNames[id]
	return name, ok
}

// NameResolver supplies human-readable names for numeric ids. Implementations
// come from outside the analyzer (live name registrations, symbol tables);
// any miss falls back to numeric formatting.
type NameResolver interface {
	ResolveEntity(id uint16) (string, bool)
	ResolveSignal(id uint16) (string, bool)
	ResolveState(id uint16) (string, bool)
}

// EntityName resolves an entity id through r, falling back to "Entity_<id>".
func EntityName(r NameResolver, id uint16) string {
	if r != nil {
		if name, ok := r.ResolveEntity(id); ok {
			return name
		}
	}
	return fmt.Sprintf("Entity_%d", id)
}

// SignalName resolves a signal id through r, then the reserved system table,
// falling back to "SIG_0x<hex>".
func SignalName(r NameResolver, id uint16) string {
	if r != nil {
		if name, ok := r.ResolveSignal(id); ok {
			return name
		}
	}
	if name, ok := SystemSignalName(id); ok {
		return name
	}
	return fmt.Sprintf("SIG_0x%04X", id)
}

// StateName resolves a state id through r, falling back to "State_<id>".
func StateName(r NameResolver, id uint16) string {
	if r != nil {
		if name, ok := r.ResolveState(id); ok {
			return name
		}
	}
	return fmt.Sprintf("State_%d", id)
}
