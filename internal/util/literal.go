package util

import (
	"strconv"
	"strings"
)

// 字面量形态判断，比较器据此选择标量比较路径或括号表达式求值路径

func IsBracketed(s string) bool {
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") && len(s) >= 2
}

func TrimBrackets(s string) string {
	if IsBracketed(s) {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func IsDoubleQuoted(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)
}

func IsSingleQuoted(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")
}

func IsQuoted(s string) bool {
	return IsDoubleQuoted(s) || IsSingleQuoted(s)
}

func SingleToDoubleQuoted(s string) string {
	if IsSingleQuoted(s) {
		return `"` + s[1:len(s)-1] + `"`
	}
	return s
}

func IsJavaBoolean(s string) bool {
	return s == "true" || s == "false"
}

func IsPythonBoolean(s string) bool {
	return s == "True" || s == "False"
}

func IsIntLiteral(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func IsFloatLiteral(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
