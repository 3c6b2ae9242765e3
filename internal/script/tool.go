package script

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/contextharness/ctx/internal/apperr"
)

// ParamSpec describes one parameter a scripted tool declares in its
// `tool.parameters` array, .
type ParamSpec struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string|integer|number|boolean
	Required    bool     `json:"required"`
	Default     any      `json:"default"`
	Enum        []any    `json:"enum"`
	Description string   `json:"description"`
}

// ToolDescriptor is a scripted tool's static metadata, parsed from its
// `tool = {...}` table.
type ToolDescriptor struct {
	Name        string
	Version     string
	Description string
	Parameters  []ParamSpec
}

// Tool adapts a scripted tool (defining `tool = {...}` and
// `tool.execute(params, context)`) to the registry's invocable-tool shape.
type Tool struct {
	sbx *Sandbox
}

// NewTool returns a Tool bound to sbx.
func NewTool(sbx *Sandbox) *Tool { return &Tool{sbx: sbx} }

// Describe loads the script far enough to read its `tool` table without
// invoking execute, used by the registry at discovery time.
func (t *Tool) Describe(ctx context.Context) (ToolDescriptor, error) {
	v, err := t.sbx.run(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		return vm.Get("tool"), nil
	})
	if err != nil {
		return ToolDescriptor{}, err
	}
	m, ok := exportTo(v).(map[string]any)
	if !ok {
		return ToolDescriptor{}, fmt.Errorf("script %q does not define a `tool` table", t.sbx.Name)
	}
	return parseToolDescriptor(m), nil
}

func parseToolDescriptor(m map[string]any) ToolDescriptor {
	d := ToolDescriptor{
		Name:        stringField(m, "name"),
		Version:     stringField(m, "version"),
		Description: stringField(m, "description"),
	}
	params, _ := m["parameters"].([]any)
	for _, p := range params {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		spec := ParamSpec{
			Name:        stringField(pm, "name"),
			Type:        stringField(pm, "type"),
			Required:    boolField(pm, "required"),
			Default:     pm["default"],
			Description: stringField(pm, "description"),
		}
		if enum, ok := pm["enum"].([]any); ok {
			spec.Enum = enum
		}
		d.Parameters = append(d.Parameters, spec)
	}
	return d
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Validate checks params against specs: kind checks, required fields,
// enum membership. Validation failures are returned as apperr.BadRequest
// and never reach the script, .
func Validate(specs []ParamSpec, params map[string]any) error {
	for _, spec := range specs {
		v, present := params[spec.Name]
		if !present {
			if spec.Required {
				return apperr.E(apperr.BadRequest, fmt.Sprintf("missing required parameter %q", spec.Name), nil)
			}
			continue
		}
		if err := checkKind(spec, v); err != nil {
			return apperr.E(apperr.BadRequest, err.Error(), nil)
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, v) {
			return apperr.E(apperr.BadRequest, fmt.Sprintf("parameter %q must be one of %v", spec.Name, spec.Enum), nil)
		}
	}
	return nil
}

func checkKind(spec ParamSpec, v any) error {
	switch spec.Type {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("parameter %q must be a string", spec.Name)
		}
	case "integer":
		f, ok := v.(float64)
		if !ok || f != float64(int64(f)) {
			return fmt.Errorf("parameter %q must be an integer", spec.Name)
		}
	case "number":
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("parameter %q must be a number", spec.Name)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", spec.Name)
		}
	}
	return nil
}

func enumContains(enum []any, v any) bool {
	for _, e := range enum {
		if fmt.Sprintf("%v", e) == fmt.Sprintf("%v", v) {
			return true
		}
	}
	return false
}

// Execute validates params against the tool's declared parameter specs
// (fetched via Describe) and, if valid, runs tool.execute(params, context).
func (t *Tool) Execute(ctx context.Context, params map[string]any) (any, error) {
	desc, err := t.Describe(ctx)
	if err != nil {
		return nil, err
	}
	withDefaults(desc.Parameters, params)
	if err := Validate(desc.Parameters, params); err != nil {
		return nil, err
	}

	v, err := t.sbx.run(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		toolObj := vm.Get("tool")
		execFn, ok := goja.AssertFunction(toolObj.ToObject(vm).Get("execute"))
		if !ok {
			return nil, fmt.Errorf("tool.execute is not a function")
		}
		return execFn(toolObj, vm.ToValue(params), vm.Get("context"))
	})
	if err != nil {
		return nil, err
	}
	return exportTo(v), nil
}

func withDefaults(specs []ParamSpec, params map[string]any) {
	for _, spec := range specs {
		if _, present := params[spec.Name]; !present && spec.Default != nil {
			params[spec.Name] = spec.Default
		}
	}
}
