package ops

import (
	"regexp"
	"strconv"

	"bundlebase.dev/bundlebase/internal/bberr"
)

var positionalParam = regexp.MustCompile(`\$([0-9]+)`)

// checkParamArity validates that sql's highest positional parameter
// ($1..$n) does not exceed len(params), matching the spec's "check
// validates arity and token shape but not row values" rule. It does not
// require every declared param to be referenced.
func checkParamArity(op, sql string, params []interface{}) error {
	if sql == "" {
		return bberr.Newf(op, bberr.Validation, "sql expression must not be empty")
	}
	var maxIndex int
	for _, match := range positionalParam.FindAllStringSubmatch(sql, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > maxIndex {
			maxIndex = n
		}
	}
	if maxIndex > len(params) {
		return bberr.Newf(op, bberr.Validation, "sql references $%d but only %d params given", maxIndex, len(params))
	}
	return nil
}
