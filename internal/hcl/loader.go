package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/scopyflow/internal/config"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	overrides map[string]any
	converter *Converter
}

// NewLoader creates a new HCL session loader. overrides replace the default
// of the variables they name; their values are converted to the declared
// variable type.
func NewLoader(overrides map[string]any) *Loader {
	return &Loader{overrides: overrides, converter: NewConverter()}
}

// parsedFile is one session file after the variable pass.
type parsedFile struct {
	path   string
	remain hcl.Body
}

// Load parses every .hcl file found under paths. Variables are resolved
// across all files first; the remaining blocks are then decoded with `var`
// in scope.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no .hcl session files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{Variables: make(map[string]*config.InputDefinition)}
	parser := hclparse.NewParser()

	var files []parsedFile
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root variablesRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode variables in %s: %w", file, diags)
		}
		for _, v := range root.Variables {
			if _, dup := model.Variables[v.Name]; dup {
				return nil, nil, fmt.Errorf("%s: variable %q declared twice", file, v.Name)
			}
			def, err := translateVariable(ctx, v)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Variables[v.Name] = def
		}
		files = append(files, parsedFile{path: file, remain: root.Remain})
	}

	evalCtx, err := l.evalContext(ctx, model.Variables)
	if err != nil {
		return nil, nil, err
	}
	model.EvalContext = evalCtx

	for _, f := range files {
		var root sessionRoot
		if diags := gohcl.DecodeBody(f.remain, evalCtx, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", f.path, diags)
		}
		if err := l.merge(ctx, model, &root, evalCtx); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.path, err)
		}
	}

	logger.Debug("HCL loading complete.",
		"variables", len(model.Variables),
		"devices", len(model.DeviceSources),
		"signal_paths", len(model.SignalPaths),
	)
	return model, l.converter, nil
}

// evalContext exposes the resolved variables as `var.<name>`.
func (l *Loader) evalContext(ctx context.Context, defs map[string]*config.InputDefinition) (*hcl.EvalContext, error) {
	logger := ctxlog.FromContext(ctx)
	vals := make(map[string]cty.Value, len(defs))

	for name, def := range defs {
		var val cty.Value
		switch raw, ok := l.overrides[name]; {
		case ok && raw == nil:
			return nil, fmt.Errorf("variable %q: override must not be nil", name)
		case ok:
			v, err := l.converter.ToCtyValue(raw)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			val = v
			logger.Debug("Variable overridden.", "variable", name)
		case def.Default != nil:
			val = *def.Default
		default:
			return nil, fmt.Errorf("variable %q has no default and no value was given", name)
		}

		converted, err := convert.Convert(val, def.Type)
		if err != nil {
			return nil, fmt.Errorf("variable %q: cannot use %s as %s: %w", name, val.Type().FriendlyName(), def.Type.FriendlyName(), err)
		}
		vals[name] = converted
	}

	for name := range l.overrides {
		if _, ok := defs[name]; !ok {
			return nil, fmt.Errorf("value given for undeclared variable %q", name)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(vals)},
	}, nil
}

// merge translates the blocks of one file into the model. Names must be
// unique across all files.
func (l *Loader) merge(ctx context.Context, model *config.Model, root *sessionRoot, evalCtx *hcl.EvalContext) error {
	for _, d := range root.Devices {
		for _, existing := range model.DeviceSources {
			if existing.Name == d.Name {
				return fmt.Errorf("device %q declared twice", d.Name)
			}
		}
		model.DeviceSources = append(model.DeviceSources, translateDevice(d))
	}

	for _, p := range root.Paths {
		if _, dup := model.Path(p.Name); dup {
			return fmt.Errorf("signal_path %q declared twice", p.Name)
		}
		path, err := translatePath(ctx, p, evalCtx)
		if err != nil {
			return err
		}
		model.SignalPaths = append(model.SignalPaths, path)
	}

	if root.Scan != nil {
		if model.Scan != nil {
			return fmt.Errorf("scan block declared twice")
		}
		s, err := translateScan(root.Scan)
		if err != nil {
			return err
		}
		model.Scan = s
	}

	if root.Capture != nil {
		if model.Capture != nil {
			return fmt.Errorf("capture block declared twice")
		}
		if root.Capture.Samples <= 0 {
			return fmt.Errorf("capture: samples must be positive, got %d", root.Capture.Samples)
		}
		model.Capture = &config.Capture{Samples: root.Capture.Samples}
	}
	return nil
}

func translateScan(s *scanBlock) (*config.Scan, error) {
	out := &config.Scan{Schemes: s.Schemes, Hosts: s.Hosts}
	if s.Period != "" {
		d, err := time.ParseDuration(s.Period)
		if err != nil {
			return nil, fmt.Errorf("scan: invalid period %q: %w", s.Period, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("scan: period must be positive, got %s", d)
		}
		out.Period = d
	}
	return out, nil
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of the .hcl files found. Missing paths are skipped.
func findAllHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var allFiles []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
