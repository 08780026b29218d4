package analysis

import (
	language "github.com/hanpama/fieldgraph/internal/language"
)

// shouldIncludeNode checks if a node should be included based on @skip and
// @include. Only the first occurrence of each directive is consulted. An
// argument that does not resolve to a boolean (e.g. an unset variable) leaves
// the node included.
func shouldIncludeNode(directives language.DirectiveList, variableValues map[string]any) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if skipIf, ok := directiveArgument(skip, "if", variableValues).(bool); ok && skipIf {
			return false
		}
	}

	if include := directives.ForName("include"); include != nil {
		if includeIf, ok := directiveArgument(include, "if", variableValues).(bool); ok && !includeIf {
			return false
		}
	}

	return true
}

func directiveArgument(directive *language.Directive, name string, variableValues map[string]any) any {
	arg := directive.Arguments.ForName(name)
	if arg == nil {
		return nil
	}
	return language.ValueToGo(arg.Value, variableValues)
}
