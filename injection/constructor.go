package injection

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/gocrud/ioc/logging"
)

// Constructor 一个构造函数候选
type Constructor struct {
	// Fn 构造函数本体
	Fn any
	// Annotated 是否带自动装配标记
	Annotated bool
	// Required 是否标记为必需（仅对 Annotated 有意义）
	Required bool
}

// Name 返回构造函数的符号名，用于冲突诊断
func (c Constructor) Name() string {
	v := reflect.ValueOf(c.Fn)
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("%T", c.Fn)
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}

func (c Constructor) zeroArg() bool {
	t := reflect.TypeOf(c.Fn)
	return t != nil && t.Kind() == reflect.Func && t.NumIn() == 0
}

type ctorSelection struct {
	candidates []Constructor
	err        error
}

// DetermineCandidateConstructors 构造函数候选裁决
// 规则（按序）：
//  1. 至多一个 required 标记；出现第二个为致命错误并指明冲突双方
//  2. required 标记必须独占：已有其他标记候选时再遇 required 同样致命
//  3. 有标记候选且无 required：零参默认构造（若有）追加为兜底候选；
//     仅一个标记候选且无默认构造时记一条警告（事实上必需）但不报错
//  4. 无标记候选：唯一声明的构造函数直接采用；否则看首选构造提示；
//     首选与默认构造并存且声明总数恰为二时同时给出两者
//
// 结果按类型缓存
func (r *AutowiredResolver) DetermineCandidateConstructors(typ reflect.Type, declared []Constructor, primary *Constructor) ([]Constructor, error) {
	sel := r.ctors.Get(typ, nil, func() ctorSelection {
		cands, err := selectCandidates(declared, primary, r.logger)
		return ctorSelection{candidates: cands, err: err}
	})
	return sel.candidates, sel.err
}

func selectCandidates(declared []Constructor, primary *Constructor, logger logging.Logger) ([]Constructor, error) {
	var requiredCtor *Constructor
	var candidates []Constructor
	var defaultCtor *Constructor

	for i := range declared {
		c := declared[i]
		if c.zeroArg() && !c.Annotated {
			defaultCtor = &declared[i]
			continue
		}
		if !c.Annotated {
			continue
		}
		if requiredCtor != nil {
			return nil, fmt.Errorf(
				"injection: invalid autowire-marked constructor %s: found constructor with required marker already: %s",
				c.Name(), requiredCtor.Name())
		}
		if c.Required {
			if len(candidates) > 0 {
				return nil, fmt.Errorf(
					"injection: invalid required constructor %s: another autowire-marked constructor exists already: %s",
					c.Name(), candidates[0].Name())
			}
			requiredCtor = &declared[i]
		}
		candidates = append(candidates, c)
	}

	if len(candidates) > 0 {
		if defaultCtor != nil {
			// 默认构造作为可选兜底
			candidates = append(candidates, *defaultCtor)
		} else if len(candidates) == 1 && requiredCtor == nil {
			if logger != nil {
				logger.Warn("Autowire-marked constructor has no default fallback, treating as effectively required",
					logging.Field{Key: "constructor", Value: candidates[0].Name()})
			}
		}
		return candidates, nil
	}

	// 无标记候选
	if len(declared) == 1 {
		return []Constructor{declared[0]}, nil
	}
	if primary != nil {
		if defaultCtor != nil && len(declared) == 2 && !primary.zeroArg() {
			return []Constructor{*primary, *defaultCtor}, nil
		}
		return []Constructor{*primary}, nil
	}
	return nil, nil
}
