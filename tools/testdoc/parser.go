package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TestFunc is a single parsed test function.
type TestFunc struct {
	Name    string // function name, e.g. "TestAudit_EndToEnd"
	Doc     string // doc comment text
	Line    int    // line number in source file
	IsTable bool   // whether this looks like a table-driven test
}

// TestFile groups the test functions found in one file.
type TestFile struct {
	Name  string // file name, e.g. "audit_integration_test.go"
	Path  string // full path to file
	Tests []TestFunc
}

// TestPackage groups test files by package, e.g. "internal/correlate".
type TestPackage struct {
	Name       string // package path relative to the module root
	Files      []TestFile
	TotalTests int
}

// ParseTestFiles walks the module tree and parses every *_test.go file.
// With integrationOnly set, only *_integration_test.go files are kept,
// which is how the audit-workflow docs are generated.
func ParseTestFiles(root string, integrationOnly bool) ([]TestPackage, error) {
	packageMap := make(map[string]*TestPackage)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// vendor, hidden, and underscore dirs are not part of the module
			name := info.Name()
			if name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(info.Name(), "_test.go") {
			return nil
		}
		if integrationOnly && !strings.HasSuffix(info.Name(), "_integration_test.go") {
			return nil
		}

		testFile, err := parseTestFile(path)
		if err != nil {
			return err
		}
		if len(testFile.Tests) == 0 {
			return nil
		}

		dir := filepath.Dir(path)
		pkgPath, err := filepath.Rel(root, dir)
		if err != nil {
			pkgPath = dir
		}
		if pkgPath == "." {
			pkgPath = filepath.Base(root)
		}

		pkg, ok := packageMap[pkgPath]
		if !ok {
			pkg = &TestPackage{Name: pkgPath}
			packageMap[pkgPath] = pkg
		}
		pkg.Files = append(pkg.Files, *testFile)
		pkg.TotalTests += len(testFile.Tests)

		return nil
	})
	if err != nil {
		return nil, err
	}

	packages := make([]TestPackage, 0, len(packageMap))
	for _, pkg := range packageMap {
		sort.Slice(pkg.Files, func(i, j int) bool {
			return pkg.Files[i].Name < pkg.Files[j].Name
		})
		packages = append(packages, *pkg)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	return packages, nil
}

func parseTestFile(path string) (*TestFile, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	testFile := &TestFile{
		Name: filepath.Base(path),
		Path: path,
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !strings.HasPrefix(fn.Name.Name, "Test") {
			continue
		}

		// Helpers like setupAuditRepo take *testing.T but are not tests;
		// the Test prefix plus the signature check filters them out.
		if !isTestFunction(fn) {
			continue
		}

		testFunc := TestFunc{
			Name: fn.Name.Name,
			Line: fset.Position(fn.Pos()).Line,
		}
		if fn.Doc != nil {
			testFunc.Doc = strings.TrimSpace(fn.Doc.Text())
		}
		testFunc.IsTable = detectTableDriven(fn)

		testFile.Tests = append(testFile.Tests, testFunc)
	}

	return testFile, nil
}

// isTestFunction reports whether fn has the func(t *testing.T) or
// func(b *testing.B) shape.
func isTestFunction(fn *ast.FuncDecl) bool {
	if fn.Type.Params == nil || len(fn.Type.Params.List) != 1 {
		return false
	}

	param := fn.Type.Params.List[0]
	starExpr, ok := param.Type.(*ast.StarExpr)
	if !ok {
		return false
	}

	selExpr, ok := starExpr.X.(*ast.SelectorExpr)
	if !ok {
		return false
	}

	ident, ok := selExpr.X.(*ast.Ident)
	if !ok {
		return false
	}

	return ident.Name == "testing" && (selExpr.Sel.Name == "T" || selExpr.Sel.Name == "B")
}

// detectTableDriven looks for a range statement whose body calls t.Run,
// the shape of the extraction and classification test tables.
func detectTableDriven(fn *ast.FuncDecl) bool {
	if fn.Body == nil {
		return false
	}

	isTable := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		rangeStmt, ok := n.(*ast.RangeStmt)
		if !ok {
			return true
		}

		ast.Inspect(rangeStmt.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			if sel.Sel.Name == "Run" {
				isTable = true
				return false
			}
			return true
		})

		return !isTable
	})

	return isTable
}
