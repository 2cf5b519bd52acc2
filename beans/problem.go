package beans

import (
	"fmt"

	"github.com/gocrud/ioc/logging"
)

// Problem 解析期发现的一处结构性缺陷
type Problem struct {
	// Message 人可读描述
	Message string
	// Location 出问题的配置类名
	Location string
}

func (p Problem) Error() string {
	if p.Location == "" {
		return "beans: " + p.Message
	}
	return fmt.Sprintf("beans: %s (in %s)", p.Message, p.Location)
}

// ProblemReporter 汇报解析问题的策略接口
type ProblemReporter interface {
	// Report 记录一个问题
	Report(p Problem)
	// Err 返回汇总错误，无问题时为 nil
	Err() error
}

// FailFastReporter 记住第一个问题，解析结束后整体失败
type FailFastReporter struct {
	first *Problem
}

// NewFailFastReporter 创建默认的快速失败汇报器
func NewFailFastReporter() *FailFastReporter {
	return &FailFastReporter{}
}

func (r *FailFastReporter) Report(p Problem) {
	if r.first == nil {
		r.first = &p
	}
}

func (r *FailFastReporter) Err() error {
	if r.first == nil {
		return nil
	}
	return *r.first
}

// CollectingReporter 累积全部问题并逐条告警
type CollectingReporter struct {
	problems []Problem
	logger   logging.Logger
}

// NewCollectingReporter 创建累积式汇报器
func NewCollectingReporter(logger logging.Logger) *CollectingReporter {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &CollectingReporter{logger: logger}
}

func (r *CollectingReporter) Report(p Problem) {
	r.problems = append(r.problems, p)
	r.logger.Warn("configuration problem",
		logging.Field{Key: "message", Value: p.Message},
		logging.Field{Key: "location", Value: p.Location})
}

// Problems 返回问题快照
func (r *CollectingReporter) Problems() []Problem {
	out := make([]Problem, len(r.problems))
	copy(out, r.problems)
	return out
}

func (r *CollectingReporter) Err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return fmt.Errorf("beans: %d configuration problems, first: %s", len(r.problems), r.problems[0].Message)
}
