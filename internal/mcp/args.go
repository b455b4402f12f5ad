package mcp

import (
	"fmt"

	tkberrors "tkb/internal/errors"
)

// Argument extraction for tool calls. Unknown arguments are ignored by
// construction (handlers only look up the names they declare); a
// declared argument carrying the wrong JSON type is an INVALID_PARAMETER
// error, which the dispatcher turns into an error envelope.

// stringArg returns the named string argument, or "" when absent.
func stringArg(args map[string]interface{}, name string) (string, error) {
	return stringArgDefault(args, name, "")
}

// stringArgDefault returns the named string argument, or def when the
// key is absent. An explicitly empty string stays empty.
func stringArgDefault(args map[string]interface{}, name, def string) (string, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(name, "string", v)
	}
	return s, nil
}

// requiredStringArg returns the named string argument, failing when it
// is absent or empty.
func requiredStringArg(args map[string]interface{}, name string) (string, error) {
	s, err := stringArg(args, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", tkberrors.NewInvalidParameter(name, "required")
	}
	return s, nil
}

// intArg returns the named integer argument, or def when absent.
// JSON numbers arrive as float64.
func intArg(args map[string]interface{}, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, wrongType(name, "number", v)
}

// optionalIntArg returns the named integer argument, or nil when absent.
// Used where zero is a meaningful value (issue priority).
func optionalIntArg(args map[string]interface{}, name string) (*int, error) {
	v, ok := args[name]
	if !ok {
		return nil, nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i, nil
	case int:
		i := n
		return &i, nil
	}
	return nil, wrongType(name, "number", v)
}

// boolArg returns the named boolean argument, or false when absent.
func boolArg(args map[string]interface{}, name string) (bool, error) {
	v, ok := args[name]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(name, "boolean", v)
	}
	return b, nil
}

func wrongType(name, want string, got interface{}) error {
	return tkberrors.NewInvalidParameter(name, fmt.Sprintf("expected %s, got %T", want, got))
}
