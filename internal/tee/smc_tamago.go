//go:build tamago && arm

package tee

import (
	"fmt"
	"unsafe"

	"github.com/usbarmory/tamago/arm"

	"github.com/usbarmory/GoTEE/monitor"
)

// SlotAt maps size bytes of shared memory at a physical address.
func SlotAt(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// Handler returns a monitor handler answering SCMI SMCs from the
// Non-secure world and deferring everything else to next.
func (r *Router) Handler(next func(*monitor.ExecCtx) error) func(*monitor.ExecCtx) error {
	return func(ctx *monitor.ExecCtx) error {
		if !ctx.NonSecure() {
			return next(ctx)
		}
		if ctx.ExceptionVector != arm.SUPERVISOR {
			return next(ctx)
		}
		fid := uint32(ctx.A0())
		if fid < FunctionBase || fid >= FunctionBase+0x100 {
			return next(ctx)
		}

		ret := r.Handle(fid)
		ctx.Ret(uint(uint32(ret)))
		if ret != ReturnOK {
			r.log.Debug().Str("fid", fmt.Sprintf("%#x", fid)).Int32("ret", ret).Msg("smc rejected")
		}
		return nil
	}
}
