// aggregate_write_audit reports, per service method, which repositories it
// writes directly and which aggregate writes it delegates. It exits 1 when a
// method writes two or more repositories itself: such writes belong inside
// an aggregate transaction.
//
//	go run ./scripts/aggregate_write_audit.go [repo-root]
package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type methodStats struct {
	Service          string   `json:"service"`
	Method           string   `json:"method"`
	File             string   `json:"file"`
	Line             int      `json:"line"`
	RepoWrites       []string `json:"repo_writes,omitempty"`
	AggregateWrites  []string `json:"aggregate_writes,omitempty"`
	CoordinatesRepos bool     `json:"coordinates_repos"`
}

type auditReport struct {
	DirectRepoWriteCallsites   int           `json:"direct_repo_write_callsites"`
	AggregateWriteCallsites    int           `json:"aggregate_write_callsites"`
	MethodsCoordinatingRepos   []methodStats `json:"methods_coordinating_repos"`
	MethodsWithDirectWrites    []methodStats `json:"methods_with_direct_writes"`
	MethodsWithAggregateWrites int           `json:"methods_with_aggregate_writes"`
}

// Write methods of the conversation repositories.
var repoWriteMethods = map[string]bool{
	"Create":             true,
	"UpdateFields":       true,
	"Touch":              true,
	"IncrementViewCount": true,
	"Delete":             true,
	"DeleteByIDs":        true,
	"DeleteBySession":    true,
	"DeleteByNodeIDs":    true,
	"DeleteByQAPairIDs":  true,
	"DeleteByContextIDs": true,
	"DeleteTouching":     true,
	"LockByID":           true,
}

var aggregateWriteMethods = map[string]bool{
	"CreateSession":        true,
	"DeleteSession":        true,
	"CreateNode":           true,
	"UpdateNode":           true,
	"DeleteNode":           true,
	"CreateContext":        true,
	"DeleteContext":        true,
	"UpdateActiveNode":     true,
	"UpdateActiveNodeInTx": true,
	"AddNode":              true,
	"AddNodeInTx":          true,
	"RemoveNode":           true,
	"CreateQAPair":         true,
	"UpdateQAPair":         true,
	"DeleteQAPair":         true,
	"AddMessage":           true,
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	servicesDir := filepath.Join(root, "internal", "services")
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, servicesDir, func(fi os.FileInfo) bool {
		name := fi.Name()
		return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
	}, 0)
	if err != nil {
		exitf("parse dir: %v", err)
	}
	pkg, ok := pkgs["services"]
	if !ok {
		exitf("services package not found in %s", servicesDir)
	}

	aggFields := map[string]map[string]bool{}
	for _, f := range pkg.Files {
		collectAggregateFields(f, aggFields)
	}

	var methods []methodStats
	for filePath, f := range pkg.Files {
		rel, err := filepath.Rel(root, filePath)
		if err != nil {
			rel = filePath
		}
		collectMethodStats(fset, f, rel, aggFields, &methods)
	}

	report := buildReport(methods)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))
	if len(report.MethodsCoordinatingRepos) > 0 {
		os.Exit(1)
	}
}

// collectAggregateFields records struct fields typed domainagg.*Aggregate.
func collectAggregateFields(file *ast.File, out map[string]map[string]bool) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			for _, field := range st.Fields.List {
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok || len(field.Names) == 0 {
					continue
				}
				pkgIdent, ok := sel.X.(*ast.Ident)
				if !ok || pkgIdent.Name != "domainagg" || !strings.HasSuffix(sel.Sel.Name, "Aggregate") {
					continue
				}
				if out[ts.Name.Name] == nil {
					out[ts.Name.Name] = map[string]bool{}
				}
				out[ts.Name.Name][field.Names[0].Name] = true
			}
		}
	}
}

// collectMethodStats matches recv.repos.<Repo>.<Write>(...) and
// recv.<aggregate>.<Write>(...).
func collectMethodStats(fset *token.FileSet, file *ast.File, relFile string, aggFields map[string]map[string]bool, out *[]methodStats) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recvName, recvType := recvInfo(fd.Recv.List[0])
		if recvName == "" {
			continue
		}

		repos := map[string]bool{}
		aggs := map[string]bool{}
		repoCalls, aggCalls := 0, 0
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			method := fnSel.Sel.Name
			target, ok := fnSel.X.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			switch x := target.X.(type) {
			case *ast.Ident:
				if x.Name == recvName && aggFields[recvType][target.Sel.Name] && aggregateWriteMethods[method] {
					aggCalls++
					aggs[target.Sel.Name+"."+method] = true
				}
			case *ast.SelectorExpr:
				base, ok := x.X.(*ast.Ident)
				if ok && base.Name == recvName && x.Sel.Name == "repos" && repoWriteMethods[method] {
					repoCalls++
					repos[target.Sel.Name] = true
				}
			}
			return true
		})
		if repoCalls == 0 && aggCalls == 0 {
			continue
		}
		*out = append(*out, methodStats{
			Service:          recvType,
			Method:           fd.Name.Name,
			File:             filepath.ToSlash(relFile),
			Line:             fset.Position(fd.Pos()).Line,
			RepoWrites:       sortedKeys(repos),
			AggregateWrites:  sortedKeys(aggs),
			CoordinatesRepos: len(repos) >= 2,
		})
	}
}

func buildReport(methods []methodStats) auditReport {
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].File == methods[j].File {
			return methods[i].Line < methods[j].Line
		}
		return methods[i].File < methods[j].File
	})
	var report auditReport
	for _, m := range methods {
		if len(m.RepoWrites) > 0 {
			report.DirectRepoWriteCallsites += len(m.RepoWrites)
			report.MethodsWithDirectWrites = append(report.MethodsWithDirectWrites, m)
		}
		if m.CoordinatesRepos {
			report.MethodsCoordinatingRepos = append(report.MethodsCoordinatingRepos, m)
		}
		if len(m.AggregateWrites) > 0 {
			report.AggregateWriteCallsites += len(m.AggregateWrites)
			report.MethodsWithAggregateWrites++
		}
	}
	return report
}

func recvInfo(field *ast.Field) (string, string) {
	if field == nil || len(field.Names) == 0 {
		return "", ""
	}
	recvName := field.Names[0].Name
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return recvName, id.Name
		}
	case *ast.Ident:
		return recvName, t.Name
	}
	return "", ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
