package cli

import "strings"

// flags that consume the following argument as their value
var valueFlags = map[string]struct{}{
	"-a": {}, "-session": {}, "-timeout": {}, "-c": {}, "-config": {},
}

// CommandFromArgs returns the first positional argument, skipping flags and
// their values. An empty result means the REPL should start.
func CommandFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
		name := strings.TrimPrefix(arg, "-")
		name = "-" + strings.TrimPrefix(name, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if _, ok := valueFlags[name]; ok {
			i++
		}
	}
	return ""
}
