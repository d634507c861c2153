package benchgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
)

// DefaultIterations is the number of timing runs when none is configured.
const DefaultIterations = 10

// Per-program artifact names written by the generated script.
const (
	searchResultsFileFormat = "SearchResults_%d.txt"
	timeResultsFileFormat   = "./time_results_%d.txt"
)

const scriptTemplateText = `#!/bin/sh
#
# Generated by benchgen. Do not edit.
#
# Options:
#   -s         only report whether the test corpus is present; exits 1 when
#              it is (run the test), 0 when it is missing (skip the test)
#   -o FILE    output file

OPTIND=1
should_skip=0

while getopts "so:" opt; do
    case "$opt" in
    s)  should_skip=1
        ;;
    o)  output_file=$OPTARG
        ;;
    esac
done
shift $((OPTIND-1))
test "$1" = "--" && shift

if test "$should_skip" = "1"; then
    if test -e "{{.corpus}}"; then
        echo "Found test corpus: {{.corpus}}"
        exit 1
    else
        echo "No test corpus: {{.corpus}}"
        exit 0
    fi
fi

echo "TEST_DESC_SHORT: {{.desc_long}}" >> "{{.results_file}}"

TEST_DATA_FS_INFO=$(get_dev_and_fs_type "{{.corpus}}")
echo "TEST_CORPUS_PATH: \"{{.corpus}}\"" >> "{{.results_file}}"
echo "TEST_CORPUS_FS_INFO: $TEST_DATA_FS_INFO" >> "{{.results_file}}"

TOP_CORPUSDIR=${top_srcdir}/${at_arg_corpusdir}/
echo "TOP_CORPUSDIR: ${TOP_CORPUSDIR} ($(readlink -f ${TOP_CORPUSDIR}))" >> "{{.results_file}}"

if test "x$NUM_ITERATIONS" = "x"; then
    NUM_ITERATIONS={{.num_iterations}}
fi

PROG_TIME="$builddir/portable_time -p"

echo "Starting performance tests, results file is '{{.results_file}}'"

{{.test_cases}}
`

const programRunTemplateText = `###
### {{.prog_id}}: {{.prog_path}}
###

if command -v {{.prog_path_quoted}} >/dev/null 2>&1; then

# Prep run: warms the disk cache and captures the matches, sorted for diffing.
echo "Timing: {{dq .cmd_line}}" >> "{{.results_file}}"
echo "Prep run for wrapped command line: '{{dq .wrapped_cmd_line}}'" > "{{.search_results_file}}"
echo "TEST_PROG_ID: {{dq .prog_id}}" >> "{{.search_results_file}}"
echo "TEST_PROG_PATH: {{dq .prog_path}}" >> "{{.search_results_file}}"
echo "END OF HEADER" >> "{{.search_results_file}}"
{{.wrapped_cmd_line}}

# Timing runs.
echo "Timing run for wrapped command line: '{{dq .wrapped_cmd_line_timing}}'" > "{{.time_results_file}}"
echo "TEST_PROG_ID: {{dq .prog_id}}" >> "{{.time_results_file}}"
echo "TEST_PROG_PATH: {{dq .prog_path}}" >> "{{.time_results_file}}"
for ITER in $(seq 0 $(expr $NUM_ITERATIONS - 1)); do
    {{.wrapped_cmd_line_timing}}
done

else
    echo "WARNING: Program \"{{dq .prog_path}}\" not found or is not executable." 1>&2
fi
`

var templateFuncs = template.FuncMap{
	"dq": escapeDoubleQuoted,
}

var (
	scriptTemplate     = template.Must(template.New("script").Funcs(templateFuncs).Option("missingkey=error").Parse(scriptTemplateText))
	programRunTemplate = template.Must(template.New("program_run").Funcs(templateFuncs).Option("missingkey=error").Parse(programRunTemplateText))
)

// Synthesize renders the benchmark script for one test case and writes it
// to w. Only rows of testCaseID are used. If there are none an
// *UnknownTestCase error is returned and nothing is written. iterations <= 0
// selects DefaultIterations.
func Synthesize(w io.Writer, testCaseID string, rows []ResolvedInvocation, resultsFile string, iterations int) error {
	if resultsFile == "" {
		return errors.New("results file name is required")
	}
	selected := rowsForTestCase(rows, testCaseID)
	if len(selected) == 0 {
		return &UnknownTestCase{TestCaseID: testCaseID}
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	fragments := make([]string, 0, len(selected))
	for i, row := range selected {
		fragment, err := renderProgramRun(i+1, row, resultsFile)
		if err != nil {
			return fmt.Errorf("failed to render program run for %s: %w", row.ProgID, err)
		}
		fragments = append(fragments, fragment)
	}

	first := selected[0]
	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, map[string]any{
		"desc_long":      escapeDoubleQuoted(first.DescLong),
		"corpus":         escapeCorpus(first.Corpus),
		"num_iterations": iterations,
		"results_file":   resultsFile,
		"test_cases":     strings.Join(fragments, "\n"),
	})
	if err != nil {
		return fmt.Errorf("failed to render script: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

func renderProgramRun(n int, row ResolvedInvocation, resultsFile string) (string, error) {
	searchResultsFile := fmt.Sprintf(searchResultsFileFormat, n)
	timeResultsFile := fmt.Sprintf(timeResultsFileFormat, n)
	cmdLine := CommandLine(row)

	var buf bytes.Buffer
	err := programRunTemplate.Execute(&buf, map[string]any{
		"prog_id":                 row.ProgID,
		"prog_path":               row.ExeName,
		"prog_path_quoted":        shellquote.Join(row.ExeName),
		"results_file":            resultsFile,
		"search_results_file":     searchResultsFile,
		"time_results_file":       timeResultsFile,
		"cmd_line":                cmdLine,
		"wrapped_cmd_line":        fmt.Sprintf(`{ %s 2>> "%s" ; } | sort >> "%s"`, cmdLine, searchResultsFile, searchResultsFile),
		"wrapped_cmd_line_timing": fmt.Sprintf(`{ %s 2>> "%s" ; } > /dev/null`, cmdLine, timeResultsFile),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CommandLine returns the timed shell command for a row. Empty option
// fields are dropped, the regex is single quoted and the corpus double
// quoted so that it may refer to shell variables such as $TOP_CORPUSDIR.
func CommandLine(row ResolvedInvocation) string {
	parts := []string{"$PROG_TIME", row.ExeName}
	for _, opt := range []string{row.PreOptions, row.OtherOptions, row.OptFiletype} {
		if opt = strings.TrimSpace(opt); opt != "" {
			parts = append(parts, opt)
		}
	}
	parts = append(parts, singleQuote(row.Regex), `"`+escapeCorpus(row.Corpus)+`"`)
	return strings.Join(parts, " ")
}

func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// escapeDoubleQuoted escapes s for use inside a double quoted shell string.
func escapeDoubleQuoted(s string) string {
	return doubleQuoteEscaper.Replace(s)
}

// corpusEscaper leaves $ alone so corpus paths can use shell variables.
var corpusEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`")

// escapeCorpus escapes a corpus path for a double quoted shell string,
// keeping parameter expansion.
func escapeCorpus(s string) string {
	return corpusEscaper.Replace(s)
}
