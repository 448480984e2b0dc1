package localdev

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/results"
)

// Matches compiler diagnostics of the form "path/file.go:12:3: message".
var diagnosticRe = regexp.MustCompile(`^(\S+?):(\d+)(?::\d+)?:\s+(.*)$`)

func parseBuildOutput(output string, exitCode int32) host.CompileOutcome {
	outcome := host.CompileOutcome{Success: exitCode == 0}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		d := host.Diagnostic{Message: line}
		if m := diagnosticRe.FindStringSubmatch(line); m != nil {
			d.File = m[1]
			d.Line, _ = strconv.Atoi(m[2])
			d.Message = m[3]
		}

		switch {
		case strings.Contains(strings.ToLower(d.Message), "warning"):
			outcome.Warnings = append(outcome.Warnings, d)
		case !outcome.Success:
			outcome.Errors = append(outcome.Errors, d)
		}
	}

	return outcome
}

// testEvent is one line of `go test -json` output.
type testEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Output  string  `json:"Output"`
	Elapsed float64 `json:"Elapsed"`
}

// populateTree converts test2json events into the shared result tree:
// one suite node per package, one leaf per test case.
func populateTree(tree *results.Tree, output string) {
	type key struct{ pkg, test string }

	diags := make(map[key]*strings.Builder)
	suites := make(map[string]*results.Node)
	var order []string

	addLeaf := func(ev testEvent, state results.LeafState) {
		suite, found := suites[ev.Package]
		if !found {
			suite = &results.Node{Name: ev.Package, Suite: true}
			suites[ev.Package] = suite
			order = append(order, ev.Package)
		}

		leaf := &results.Node{
			Name:       ev.Test,
			State:      state,
			DurationMs: int64(ev.Elapsed * 1000),
		}
		if b, ok := diags[key{ev.Package, ev.Test}]; ok {
			leaf.Diagnostics = b.String()
		}
		suite.Children = append(suite.Children, leaf)
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev testEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Test == "" {
			continue
		}

		switch ev.Action {
		case "output":
			k := key{ev.Package, ev.Test}
			if _, ok := diags[k]; !ok {
				diags[k] = &strings.Builder{}
			}
			diags[k].WriteString(ev.Output)
		case "pass":
			addLeaf(ev, results.LeafPassed)
		case "fail":
			addLeaf(ev, results.LeafFailed)
		case "skip":
			addLeaf(ev, results.LeafIgnored)
		}
	}

	for _, pkg := range order {
		tree.AddRoot(suites[pkg])
	}
}
