package ingestion_engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/markdave123-py/ParseBench/internal/core/layout"
)

// LayoutToMarkdown reconstructs markdown from a structured layout result
// so both extraction pipelines feed the chunker the same shape: a page
// marker per page, paragraphs in reading order with headings promoted to
// subsection headers, then that page's tables as markdown blocks.
// Elements without a page association are excluded.
func LayoutToMarkdown(result *layout.AnalyzeResult) string {
	if result == nil || len(result.Pages) == 0 {
		return ""
	}

	var parts []string

	for _, page := range result.Pages {
		parts = append(parts, fmt.Sprintf("\n## Page %d\n", page.PageNumber))

		for i := range result.Paragraphs {
			p := &result.Paragraphs[i]
			if p.PageNumber() != page.PageNumber {
				continue
			}
			if p.Role == layout.RoleTitle || p.Role == layout.RoleSectionHeading {
				parts = append(parts, fmt.Sprintf("\n### %s\n", p.Content))
			} else {
				parts = append(parts, p.Content+"\n")
			}
		}

		for i := range result.Tables {
			t := &result.Tables[i]
			if t.PageNumber() != page.PageNumber {
				continue
			}
			if md := tableToMarkdown(t); md != "" {
				parts = append(parts, "\n"+md+"\n")
			}
		}
	}

	return strings.Join(parts, "\n")
}

// tableToMarkdown renders a cell grid as a markdown table. Rows are
// grouped by row index and rectangularized to the maximum column index
// observed; missing cells render as empty strings. A single
// header-separator line follows the first row.
func tableToMarkdown(t *layout.Table) string {
	if len(t.Cells) == 0 {
		return ""
	}

	rowMap := make(map[int][]string)
	maxCol := 0
	for _, cell := range t.Cells {
		row := rowMap[cell.RowIndex]
		for len(row) <= cell.ColumnIndex {
			row = append(row, "")
		}
		row[cell.ColumnIndex] = cell.Content
		rowMap[cell.RowIndex] = row
		if cell.ColumnIndex > maxCol {
			maxCol = cell.ColumnIndex
		}
	}

	rowIndices := make([]int, 0, len(rowMap))
	for idx := range rowMap {
		rowIndices = append(rowIndices, idx)
	}
	sort.Ints(rowIndices)

	var lines []string
	for i, rowIdx := range rowIndices {
		row := rowMap[rowIdx]
		filled := make([]string, maxCol+1)
		copy(filled, row)

		lines = append(lines, "| "+strings.Join(filled, " | ")+" |")

		if i == 0 {
			sep := make([]string, maxCol+1)
			for c := range sep {
				sep[c] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}

	return strings.Join(lines, "\n")
}
