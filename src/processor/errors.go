package processor

import (
	"errors"
	"fmt"
)

// ErrParse matches any *ParseError through errors.Is.
var ErrParse = errors.New("parse error")

// ParseError 时间字段无法解析, 整个清洗过程终止
type ParseError struct {
	Column string
	Row    int // 1-based, header excluded
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s row %d value %q: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
