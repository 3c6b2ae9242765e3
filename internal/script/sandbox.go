// Package script implements sandboxed scripted-extension runtime: a
// small embedded dynamic language (goja) hosting user-defined connectors,
// tools, and agents behind a fixed host-API surface and a read-only context
// bridge back into the retrieval core, following `vvoland-cagent`'s
// pkg/js/eval.go (vm.Set(name, hostFunc) binding pattern, one interpreter
// per call) and pkg/codemode/exec.go (IIFE wrapping so scripts can use a
// top-level `return`).
package script

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dop251/goja"

	"github.com/contextharness/ctx/internal/apperr"
)

// defaultTimeout is the default wall-clock budget for one script
// invocation when an instance's config omits `timeout`.
const defaultTimeout = 30 * time.Second

// Sandbox is a single script's static configuration: its source name (for
// log attribution and error messages), the directory its `fs` API is
// rooted at, and its per-call timeout. A fresh goja.Runtime is built for
// every invocation — no state, including host-API closures, is shared
// across calls, isolation requirement.
type Sandbox struct {
	Name    string
	Source  string // script source code
	RootDir string // allow-listed root for fs.read/fs.list
	Timeout time.Duration
	Config  map[string]string // env-expanded per-instance config
	Bridge  Bridge            // nil when this script kind has no context bridge (connectors)
}

func (s *Sandbox) timeout() time.Duration {
	if s.Timeout <= 0 {
		return defaultTimeout
	}
	return s.Timeout
}

// interruptReason is set on goja.Runtime.Interrupt and recognized by run to
// translate the resulting panic-turned-error into apperr.ScriptTimeout.
const interruptReason = "script_timeout"

// run builds a fresh interpreter, binds the host API (and the context
// bridge, if any), loads the script source, and invokes invoke against the
// populated vm. It owns the timeout: runCtx is cancelled after s.timeout()
// elapses (or sooner, if ctx itself is cancelled/deadlined first), and a
// watcher goroutine calls vm.Interrupt on that cancellation, which aborts
// any JS bytecode execution in progress. runCtx is also threaded into every
// host-API call that can block natively — sleep, http.get/post/put — since
// vm.Interrupt only preempts the JS loop and cannot abort a blocking Go
// call a script is waiting on; those calls select on runCtx.Done() instead
// of running unconditionally to completion.
func (s *Sandbox) run(ctx context.Context, invoke func(vm *goja.Runtime) (goja.Value, error)) (goja.Value, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	runCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	logger := log.New(log.Writer(), fmt.Sprintf("[script:%s] ", s.Name), log.LstdFlags)
	bindHostAPI(vm, s, logger, runCtx)
	if s.Bridge != nil {
		vm.Set("context", bridgeObject(runCtx, vm, s.Bridge, s.Config))
	}

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt(interruptReason)
		case <-watchDone:
		}
	}()

	if _, err := vm.RunString(s.Source); err != nil {
		return nil, translateError(s.Name, err)
	}

	v, err := invoke(vm)
	if err != nil {
		return nil, translateError(s.Name, err)
	}
	return v, nil
}

// translateError classifies a goja execution error into the taxonomy:
// an interrupt carrying interruptReason is a timeout, anything else thrown
// from script code is a script_error.
func translateError(scriptName string, err error) error {
	if interrupted, ok := err.(*goja.InterruptedError); ok {
		if reason, _ := interrupted.Value().(string); reason == interruptReason {
			return apperr.E(apperr.ScriptTimeout, fmt.Sprintf("script %q exceeded its time budget", scriptName), err)
		}
	}
	return apperr.E(apperr.ScriptError, fmt.Sprintf("script %q failed", scriptName), err)
}

// exportTo exports a goja.Value into a Go value via Value.Export, mapping
// undefined and null to nil,
// matching the host/script boundary's "validate against explicit schemas"
// design: the interpreter's dynamic typing never leaks past this point.
func exportTo(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
