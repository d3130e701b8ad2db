package process

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// RulePart 是自定义校验部件：表达式结果为 false 时工艺不能开工
type RulePart struct {
	source  string
	program *vm.Program
	err     error
}

// NewRulePart 编译规则表达式，编译错误在结构校验阶段报告
func NewRulePart(expression string) *RulePart {
	p := &RulePart{source: expression}
	if expression != "" {
		p.program, p.err = expr.Compile(expression, expr.Env(ruleEnv(nil)), expr.AsBool())
	}
	return p
}

func (p *RulePart) Kind() string { return "rule" }

func (p *RulePart) Validate() []string {
	if p.source == "" {
		return []string{"rule requires an expression"}
	}
	if p.err != nil {
		return []string{fmt.Sprintf("rule compilation failed: %v", p.err)}
	}
	return nil
}

func (p *RulePart) Reserve(exec *ExecContext) error {
	if p.program == nil {
		return ErrNotViable
	}
	out, err := expr.Run(p.program, ruleEnv(exec))
	if err != nil {
		return fmt.Errorf("%w: rule execution failed: %v", ErrNotViable, err)
	}
	if ok, _ := out.(bool); !ok {
		return ErrNotViable
	}
	return nil
}

func (p *RulePart) Describe() PartDescription {
	return PartDescription{Inputs: []string{"rule: " + p.source}, Complexity: 1}
}

// ruleEnv 构建表达式环境：
// items/fluids 按分类和种类汇总数量，level 为工作站对该工艺类型支持的最高等级
func ruleEnv(exec *ExecContext) map[string]any {
	env := map[string]any{
		"workstation": "",
		"instigator":  "",
		"automatic":   false,
		"level":       0,
		"items":       map[string]map[string]int{},
		"fluids":      map[string]map[string]float64{},
	}
	if exec == nil || exec.Workstation == nil {
		return env
	}
	ws := exec.Workstation
	env["workstation"] = string(ws.ID)
	env["instigator"] = string(exec.Instigator)
	env["automatic"] = exec.Automatic()
	env["level"] = ws.Processes[exec.ProcessType].MaxLevel

	items := map[string]map[string]int{}
	fluids := map[string]map[string]float64{}
	for _, category := range ws.Layout.Categories() {
		items[category] = map[string]int{}
		fluids[category] = map[string]float64{}
		for _, slot := range ws.Layout.Slots(category) {
			if exec.items != nil {
				if s, ok := exec.items.ItemAt(ws.ID, slot); ok {
					items[category][s.Kind] += s.Count
				}
			}
			if exec.fluids != nil {
				if f, ok := exec.fluids.FluidAt(ws.ID, slot); ok {
					fluids[category][f.Kind] += f.Volume
				}
			}
		}
	}
	env["items"] = items
	env["fluids"] = fluids
	return env
}
