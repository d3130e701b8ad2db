package process

import (
	"fmt"
	"time"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// DurationPart 为工艺贡献固定时长
type DurationPart struct {
	d time.Duration
}

// NewDurationPart 创建固定时长部件
func NewDurationPart(d time.Duration) *DurationPart {
	return &DurationPart{d: d}
}

func (p *DurationPart) Kind() string { return "duration" }

func (p *DurationPart) Validate() []string {
	if p.d < 0 {
		return []string{fmt.Sprintf("duration must not be negative, got %s", p.d)}
	}
	return nil
}

func (p *DurationPart) Duration(*ExecContext) time.Duration { return p.d }

// DurationScalePart 对总时长做 total*factor+add 的修正，或者用表达式计算新的总时长（秒）
type DurationScalePart struct {
	factor  float64
	add     time.Duration
	source  string
	program *vm.Program
	err     error
}

// NewDurationScalePart 创建时长修正部件。factor 为 0 时视为 1
func NewDurationScalePart(factor float64, add time.Duration, expression string) *DurationScalePart {
	if factor == 0 {
		factor = 1
	}
	p := &DurationScalePart{factor: factor, add: add, source: expression}
	if expression != "" {
		p.program, p.err = expr.Compile(expression, expr.Env(durationEnv(nil, 0)), expr.AsFloat64())
	}
	return p
}

func (p *DurationScalePart) Kind() string { return "duration_scale" }

func (p *DurationScalePart) Validate() []string {
	var errs []string
	if p.err != nil {
		errs = append(errs, fmt.Sprintf("duration_scale expression compilation failed: %v", p.err))
	}
	if p.factor < 0 {
		errs = append(errs, "duration_scale factor must not be negative")
	}
	return errs
}

func durationEnv(exec *ExecContext, total time.Duration) map[string]any {
	env := ruleEnv(exec)
	env["total"] = total.Seconds()
	return env
}

func (p *DurationScalePart) ModifyDuration(exec *ExecContext, total time.Duration) time.Duration {
	if p.program != nil {
		out, err := expr.Run(p.program, durationEnv(exec, total))
		if err != nil {
			return total
		}
		var seconds float64
		switch v := out.(type) {
		case float64:
			seconds = v
		case int:
			seconds = float64(v)
		default:
			return total
		}
		if seconds < 0 {
			seconds = 0
		}
		return time.Duration(seconds * float64(time.Second))
	}
	return time.Duration(float64(total)*p.factor) + p.add
}
