package script

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

// AgentDescriptor is a scripted agent's static metadata, parsed from its
// `agent = {...}` table.
type AgentDescriptor struct {
	Name        string
	Description string
	Tools       []string
	Arguments   []AgentArgument
}

// AgentArgument is one entry of an agent's declared `arguments` array.
type AgentArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Resolution is the return value of `agent.resolve`, .
type Resolution struct {
	System   string          `json:"system"`
	Tools    []string        `json:"tools,omitempty"`
	Messages []AgentMessage  `json:"messages,omitempty"`
}

// AgentMessage is one entry of a resolved agent's `messages` array.
type AgentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Agent adapts a scripted agent (defining `agent = {...}` and
// `agent.resolve(args, config, context)`) to the agent registry's
// dynamic-resolution shape.
type Agent struct {
	sbx *Sandbox
}

// NewAgent returns an Agent bound to sbx. sbx.Bridge must be non-nil:
// agent.resolve receives the context bridge as its third argument.
func NewAgent(sbx *Sandbox) *Agent { return &Agent{sbx: sbx} }

// Describe loads the script's `agent` table without invoking resolve.
func (a *Agent) Describe(ctx context.Context) (AgentDescriptor, error) {
	v, err := a.sbx.run(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		return vm.Get("agent"), nil
	})
	if err != nil {
		return AgentDescriptor{}, err
	}
	m, ok := exportTo(v).(map[string]any)
	if !ok {
		return AgentDescriptor{}, fmt.Errorf("script %q does not define an `agent` table", a.sbx.Name)
	}
	return parseAgentDescriptor(m), nil
}

func parseAgentDescriptor(m map[string]any) AgentDescriptor {
	d := AgentDescriptor{
		Name:        stringField(m, "name"),
		Description: stringField(m, "description"),
	}
	if tools, ok := m["tools"].([]any); ok {
		for _, t := range tools {
			if s, ok := t.(string); ok {
				d.Tools = append(d.Tools, s)
			}
		}
	}
	if args, ok := m["arguments"].([]any); ok {
		for _, a := range args {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			d.Arguments = append(d.Arguments, AgentArgument{
				Name:        stringField(am, "name"),
				Description: stringField(am, "description"),
				Required:    boolField(am, "required"),
			})
		}
	}
	return d
}

// Resolve runs agent.resolve(args, config, context), returning the
// dynamically-built system prompt and optional tool/message overrides.
func (a *Agent) Resolve(ctx context.Context, args map[string]any) (Resolution, error) {
	v, err := a.sbx.run(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		agentObj := vm.Get("agent")
		resolveFn, ok := goja.AssertFunction(agentObj.ToObject(vm).Get("resolve"))
		if !ok {
			return nil, fmt.Errorf("agent.resolve is not a function")
		}
		return resolveFn(agentObj, vm.ToValue(args), vm.ToValue(a.sbx.Config), vm.Get("context"))
	})
	if err != nil {
		return Resolution{}, err
	}
	m, ok := exportTo(v).(map[string]any)
	if !ok {
		return Resolution{}, fmt.Errorf("agent.resolve must return an object")
	}
	return parseResolution(m), nil
}

func parseResolution(m map[string]any) Resolution {
	r := Resolution{System: stringField(m, "system")}
	if tools, ok := m["tools"].([]any); ok {
		for _, t := range tools {
			if s, ok := t.(string); ok {
				r.Tools = append(r.Tools, s)
			}
		}
	}
	if msgs, ok := m["messages"].([]any); ok {
		for _, msg := range msgs {
			mm, ok := msg.(map[string]any)
			if !ok {
				continue
			}
			r.Messages = append(r.Messages, AgentMessage{
				Role:    stringField(mm, "role"),
				Content: stringField(mm, "content"),
			})
		}
	}
	return r
}
