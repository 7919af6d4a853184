// Command openapi exports the generated API document and checks revisions
// of it for backward-incompatible changes.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"uboard/internal/docs"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

type operation struct {
	Responses map[string]struct{}
}

type parsedSpec struct {
	Paths map[string]map[string]operation
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: openapi <export|compat> [flags]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "export":
		err = runExport(os.Args[2:])
	case "compat":
		err = runCompat(os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "swagger.yaml", "output path, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw, err := exportYAML(docs.SwaggerInfo.ReadDoc())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if *out == "-" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	return os.WriteFile(*out, raw, 0o600)
}

// exportYAML converts the rendered JSON document to YAML.
func exportYAML(doc string) ([]byte, error) {
	var tree map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

func runCompat(args []string) error {
	fs := flag.NewFlagSet("compat", flag.ExitOnError)
	basePath := fs.String("base", "", "base OpenAPI swagger.yaml path")
	revisionPath := fs.String("revision", "", "revision OpenAPI swagger.yaml path, defaults to the generated document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*basePath) == "" {
		return errors.New("usage: openapi compat -base <path> [-revision <path>]")
	}

	baseRaw, err := readFile(*basePath)
	if err != nil {
		return fmt.Errorf("failed to read base spec: %w", err)
	}
	baseSpec, err := parseSpec(baseRaw)
	if err != nil {
		return fmt.Errorf("failed to load base spec: %w", err)
	}

	revisionRaw := []byte(docs.SwaggerInfo.ReadDoc())
	if strings.TrimSpace(*revisionPath) != "" {
		if revisionRaw, err = readFile(*revisionPath); err != nil {
			return fmt.Errorf("failed to read revision spec: %w", err)
		}
	}
	revisionSpec, err := parseSpec(revisionRaw)
	if err != nil {
		return fmt.Errorf("failed to load revision spec: %w", err)
	}

	issues := compare(baseSpec, revisionSpec)
	if len(issues) > 0 {
		return fmt.Errorf("backward compatibility check failed:\n- %s", strings.Join(issues, "\n- "))
	}

	fmt.Println("openapi compatibility check passed")
	return nil
}

func readFile(path string) ([]byte, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	return os.ReadFile(path)
}

// parseSpec accepts YAML or JSON, since JSON is valid YAML.
func parseSpec(raw []byte) (parsedSpec, error) {
	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return parsedSpec{}, err
	}

	pathsRaw, ok := doc["paths"]
	if !ok {
		return parsedSpec{}, errors.New("missing top-level paths field")
	}
	pathsMap, ok := toMap(pathsRaw)
	if !ok {
		return parsedSpec{}, errors.New("paths is not an object")
	}

	spec := parsedSpec{Paths: make(map[string]map[string]operation)}
	for pathKey, pathEntry := range pathsMap {
		pathOpsRaw, ok := toMap(pathEntry)
		if !ok {
			continue
		}

		ops := make(map[string]operation)
		for methodKey, methodEntry := range pathOpsRaw {
			method := strings.ToLower(strings.TrimSpace(methodKey))
			if _, supported := supportedMethods[method]; !supported {
				continue
			}
			methodMap, ok := toMap(methodEntry)
			if !ok {
				continue
			}
			ops[method] = operation{Responses: responseCodes(methodMap["responses"])}
		}

		if len(ops) > 0 {
			spec.Paths[pathKey] = ops
		}
	}
	return spec, nil
}

func responseCodes(raw interface{}) map[string]struct{} {
	codes := make(map[string]struct{})
	responses, ok := toMap(raw)
	if !ok {
		return codes
	}
	for code := range responses {
		if normalized := strings.ToLower(strings.TrimSpace(code)); normalized != "" {
			codes[normalized] = struct{}{}
		}
	}
	return codes
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// compare lists every path, operation or response code present in base but
// missing from revision.
func compare(base, revision parsedSpec) []string {
	var issues []string
	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, baseOp := range baseOps {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s", strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
