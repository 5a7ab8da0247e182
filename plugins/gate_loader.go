// Package plugins loads operator-supplied gate hooks. A gate hook is a
// plain .go file interpreted at runtime; it declares
//
//	func ReviewDraft(doc map[string]any) (bool, string)
//
// and gets a chance to veto every candidate draft before judging.
package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const gateFuncName = "ReviewDraft"

// GateHook is one loaded review function, named after its source file.
type GateHook struct {
	Name   string
	Review func(doc map[string]any) (bool, string)
}

// LoadGateDir evaluates every .go file in dir and collects its review
// hook. A missing directory is not an error; an unloadable hook file
// is, so a typo in an operator's gate never silently disables it.
func LoadGateDir(dir string) ([]GateHook, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugins: read %s: %w", trimmed, err)
	}
	var hooks []GateHook
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		hook, err := loadGateFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, hook)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Name < hooks[j].Name })
	return hooks, nil
}

func loadGateFile(path string) (GateHook, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return GateHook{}, fmt.Errorf("plugins: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return GateHook{}, fmt.Errorf("plugins: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	if _, err := i.EvalPath(path); err != nil {
		return GateHook{}, fmt.Errorf("plugins: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(gateFuncName)
	if err != nil {
		return GateHook{}, fmt.Errorf("plugins: %s must define %s(map[string]any) (bool, string): %w", path, gateFuncName, err)
	}
	review, err := wrapGateFunc(fnValue)
	if err != nil {
		return GateHook{}, fmt.Errorf("plugins: %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), ".go")
	return GateHook{Name: name, Review: review}, nil
}

func wrapGateFunc(value reflect.Value) (func(map[string]any) (bool, string), error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", gateFuncName)
	}
	t := value.Type()
	if t.NumIn() != 1 || t.NumOut() != 2 ||
		t.Out(0).Kind() != reflect.Bool || t.Out(1).Kind() != reflect.String {
		return nil, fmt.Errorf("%s must be func(map[string]any) (bool, string)", gateFuncName)
	}
	return func(doc map[string]any) (bool, string) {
		results := value.Call([]reflect.Value{reflect.ValueOf(doc)})
		return results[0].Bool(), results[1].String()
	}, nil
}
