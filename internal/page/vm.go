package page

import (
	"context"
	"sync"

	"github.com/dop251/goja"
)

// vm wraps a goja runtime with an isolated global scope and context-based
// interruption.
type vm struct {
	mu sync.Mutex
	rt *goja.Runtime
}

func newVM(memoryHintMB int64) (*vm, error) {
	rt := goja.New()

	if memoryHintMB > 0 {
		rt.SetMaxCallStackSize(1024)
	}

	v := &vm{rt: rt}
	if err := v.setupGlobals(); err != nil {
		return nil, err
	}
	return v, nil
}

// run executes a script with the given bindings exposed as the `page`
// global. The VM is interrupted when ctx is cancelled or times out.
func (v *vm) run(ctx context.Context, script string, bindings map[string]interface{}) (interface{}, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rt == nil {
		return nil, ErrClosed
	}

	pageObj := v.rt.NewObject()
	for name, val := range bindings {
		pageObj.Set(name, val)
	}
	v.rt.Set("page", pageObj)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			v.rt.Interrupt(ctx.Err().Error())
		case <-done:
		}
	}()

	val, err := v.rt.RunString(script)
	close(done)
	v.rt.ClearInterrupt()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return export(val), nil
}

// setupGlobals removes host-environment escape hatches from the VM.
func (v *vm) setupGlobals() error {
	v.rt.Set("require", goja.Undefined())
	v.rt.Set("process", goja.Undefined())
	v.rt.Set("module", goja.Undefined())
	v.rt.Set("exports", goja.Undefined())

	// Timers are no-ops: page scripts are synchronous by contract.
	v.rt.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	v.rt.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	return nil
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rt = nil
}

// export converts a goja value to a plain Go value.
func export(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
