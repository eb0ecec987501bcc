package errorcode

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a failure so that callers at the API boundary can tell what went wrong without parsing messages.
type Kind string

const (
	// KindEnrollment 表示 CA 不可达或拒绝了登记（enroll）请求。
	KindEnrollment Kind = "EnrollmentError"
	// KindRegistration 表示 CA 拒绝了注册（register）请求，通常是因为身份已存在。
	KindRegistration Kind = "RegistrationError"
	// KindConfigTranslation 表示 configtxlator 返回了非 200 或非 JSON 的结果。
	KindConfigTranslation Kind = "ConfigTranslationError"
	// KindSubprocess 表示脚本以非零状态退出。错误详情中携带 stderr。
	KindSubprocess Kind = "SubprocessError"
	// KindSubprocessTimeout 表示脚本超时被终止。
	KindSubprocessTimeout Kind = "SubprocessTimeout"
	// KindEndorsement 表示有节点的提案响应缺失或状态不为 200。
	KindEndorsement Kind = "EndorsementError"
	// KindCommit 表示排序节点返回的最终状态不为 SUCCESS。
	KindCommit Kind = "CommitError"
	// KindIdentity 表示无法读取或构造操作所需的签名身份。
	KindIdentity Kind = "IdentityError"
	// KindLedger 表示与账本网络交互时出现的其他错误。
	KindLedger Kind = "LedgerError"
	// KindFile 表示文件读写失败。
	KindFile Kind = "FileError"
	// KindBadRequest 表示参数不合法。
	KindBadRequest Kind = "BadRequest"
	// KindNotFound 表示资源未找到。
	KindNotFound Kind = "NotFound"
	// KindInternal is used for errors that carry no classification.
	KindInternal Kind = "InternalError"
)

// Error is a classified error. It may wrap an underlying cause.
type Error struct {
	Kind    Kind
	Msg     string
	Details []string
	cause   error
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies `err` and annotates it with a formatted message. It returns nil if `err` is nil.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: err}
}

// WithDetails attaches human-readable diagnostics to the error and returns it.
func (e *Error) WithDetails(details ...string) *Error {
	e.Details = append(e.Details, details...)
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if len(e.Details) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Details, "; "))
		sb.WriteString("]")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}

	return sb.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause implements the causer interface of `github.com/pkg/errors`.
func (e *Error) Cause() error {
	return e.cause
}

// As finds the first classified error in the chain of `err`.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}

	return nil, false
}

// KindOf returns the kind of the first classified error in the chain of `err`, or `KindInternal` if there's none.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}

	return KindInternal
}

// Is reports whether `err` carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
