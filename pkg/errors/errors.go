// Package errors 定义引擎的错误分类。
//
// 所有分类均为非致命错误：出错后会话仍可继续接收用户操作。
package errors

import "errors"

// Kind 错误类别
type Kind int

const (
	KindUnknown         Kind = iota
	KindInputValidation      // 输入校验失败，例如需要选课时选课为空
	KindNetwork              // 课表/目录后端请求失败或返回非成功状态
	KindNormalization        // 后端响应结构无法识别或字段损坏
	KindExport               // 导出目标写出失败
)

// String 返回类别名称（用于日志字段）
func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input_validation"
	case KindNetwork:
		return "network"
	case KindNormalization:
		return "normalization"
	case KindExport:
		return "export"
	default:
		return "unknown"
	}
}

// kindError 携带类别的哨兵错误
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() Kind    { return e.kind }

// New 创建带类别的哨兵错误
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// KindOf 沿错误链查找第一个声明了类别的错误
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}
