package table

import (
	"fmt"
)

// Parse parses table-file source into a Table. Malformed quoting or
// unbalanced parentheses is fatal (spec §4.1); unknown directives are
// recorded as warnings and skipped.
func Parse(src string) (*Table, error) {
	stmts, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}

	t := &Table{}
	for _, s := range stmts {
		args, err := splitArgs(s.rawArgs)
		if err != nil {
			return nil, fmt.Errorf("table: line %d: %s(...): %w", s.line, s.name, err)
		}

		a, ok, warn := toAction(s.name, args, s.line)
		if warn != "" {
			t.Warnings = append(t.Warnings, warn)
		}
		if ok {
			t.Actions = append(t.Actions, a)
		}
	}
	return t, nil
}

// ParseFile is a convenience wrapper reading path then calling Parse.
func ParseFile(path string, read func(string) ([]byte, error)) (*Table, error) {
	data, err := read(path)
	if err != nil {
		return nil, fmt.Errorf("table: read %s: %w", path, err)
	}
	t, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("table: %s: %w", path, err)
	}
	return t, nil
}

func toAction(name string, args []string, line int) (Action, bool, string) {
	switch name {
	case "setuprequired":
		prod, ver := productVersion(args)
		if prod == "" {
			return Action{}, false, fmt.Sprintf("line %d: setupRequired() missing product argument", line)
		}
		return Action{Kind: SetupRequired, Product: prod, Version: ver, Line: line}, true, ""

	case "setupoptional":
		prod, ver := productVersion(args)
		if prod == "" {
			return Action{}, false, fmt.Sprintf("line %d: setupOptional() missing product argument", line)
		}
		return Action{Kind: SetupOptional, Product: prod, Version: ver, Line: line}, true, ""

	case "envset":
		if len(args) < 1 {
			return Action{}, false, fmt.Sprintf("line %d: envSet() missing variable name", line)
		}
		val := ""
		if len(args) > 1 {
			val = args[1]
		}
		return Action{Kind: EnvSet, Var: args[0], Value: val, Line: line}, true, ""

	case "envunset":
		if len(args) < 1 {
			return Action{}, false, fmt.Sprintf("line %d: envUnset() missing variable name", line)
		}
		return Action{Kind: EnvUnset, Var: args[0], Line: line}, true, ""

	case "envprepend", "pathprepend":
		return envPrependAppend(EnvPrepend, args, line, name)

	case "envappend", "pathappend":
		return envPrependAppend(EnvAppend, args, line, name)

	case "alias":
		if len(args) < 2 {
			return Action{}, false, fmt.Sprintf("line %d: alias() requires name and body", line)
		}
		return Action{Kind: Alias, Var: args[0], Value: args[1], Line: line}, true, ""

	case "unalias":
		if len(args) < 1 {
			return Action{}, false, fmt.Sprintf("line %d: unalias() missing alias name", line)
		}
		return Action{Kind: Unalias, Var: args[0], Line: line}, true, ""

	case "sourcefile", "source":
		if len(args) < 1 {
			return Action{}, false, fmt.Sprintf("line %d: sourceFile() missing path", line)
		}
		return Action{Kind: SourceFile, Path: args[0], Line: line}, true, ""

	default:
		return Action{}, false, fmt.Sprintf("line %d: unknown directive %q, skipped", line, name)
	}
}

func envPrependAppend(kind Kind, args []string, line int, name string) (Action, bool, string) {
	if len(args) < 2 {
		return Action{}, false, fmt.Sprintf("line %d: %s() requires variable and value", line, name)
	}
	delim := ":"
	if len(args) > 2 && args[2] != "" {
		delim = args[2]
	}
	return Action{Kind: kind, Var: args[0], Value: args[1], Delim: delim, Line: line}, true, ""
}

func productVersion(args []string) (product, version string) {
	if len(args) == 0 {
		return "", ""
	}
	product = args[0]
	if len(args) > 1 {
		version = args[1]
	}
	return product, version
}
