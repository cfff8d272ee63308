// Package shell builds the line-oriented debug commands the firmware shell
// accepts on its control channel. Commands are newline-terminated ASCII; the
// firmware echoes a response terminated by its prompt.
package shell

import "fmt"

// Fixed commands.
const (
	cmdList       = "list\n"
	cmdStatus     = "status\n"
	cmdTraceStart = "trace start\n"
	cmdTraceStop  = "trace stop\n"
	cmdTraceDump  = "trace dump\n"
)

// ListEntities asks for the registered entity table.
func ListEntities() []byte { return []byte(cmdList) }

// Status asks for the scheduler and memory summary.
func Status() []byte { return []byte(cmdStatus) }

// Inject queues a signal for an entity through the shell, with a small
// integer payload. Signal injection over the binary channel carries a full
// payload; this form exists for interactive debugging.
func Inject(target, signal uint16, payload int32) []byte {
	return []byte(fmt.Sprintf("inject %d %d %d\n", target, signal, payload))
}

// ParamGet reads a runtime parameter by id.
func ParamGet(id uint16) []byte {
	return []byte(fmt.Sprintf("param get %d\n", id))
}

// ParamSet writes a runtime parameter. The value is passed through verbatim;
// the firmware parses it according to the parameter's declared type.
func ParamSet(id uint16, value string) []byte {
	return []byte(fmt.Sprintf("param set %d %s\n", id, value))
}

// TraceStart enables trace event emission on the side channel.
func TraceStart() []byte { return []byte(cmdTraceStart) }

// TraceStop disables trace event emission.
func TraceStop() []byte { return []byte(cmdTraceStop) }

// TraceDump requests a hex dump of the black box ring buffer.
func TraceDump() []byte { return []byte(cmdTraceDump) }
