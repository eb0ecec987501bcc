package controller

import (
	"strconv"
	"strings"
)

// ParameterErrorList contains a list of human-readable errors about parameters.
type ParameterErrorList []string

// AppendIfEmptyOrBlankSpaces appends the error message specified if `str` is empty or contains only blank spaces.
//
// Parameters:
//
//	the string to be checked
//	the error message to append
//
// Returns:
//
//	the trimmed string
func (pel *ParameterErrorList) AppendIfEmptyOrBlankSpaces(str string, errMsg string) string {
	if str = strings.TrimSpace(str); str == "" {
		*pel = append(*pel, errMsg)
	}

	return str
}

// AppendIfNotPort appends the error message specified if `str` is not a TCP port in [1, 65535].
//
// Returns:
//
//	the parsed port or 0 if it is invalid
func (pel *ParameterErrorList) AppendIfNotPort(str string, errMsg string) int {
	port, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil || port < 1 || port > 65535 {
		*pel = append(*pel, errMsg)
		return 0
	}

	return port
}
