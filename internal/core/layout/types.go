package layout

import "encoding/json"

// AnalyzeResult is the structured layout result for one document:
// ordered pages, paragraphs in reading order, and tables with
// row/column-indexed cells.
type AnalyzeResult struct {
	Pages      []Page      `json:"pages"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Tables     []Table     `json:"tables"`
}

type Page struct {
	PageNumber int `json:"pageNumber"`
}

// BoundingRegion associates an element with a page. Elements without a
// region have no page association and are excluded from output.
type BoundingRegion struct {
	PageNumber int `json:"pageNumber"`
}

// Paragraph roles that get promoted to subsection headers.
const (
	RoleTitle          = "title"
	RoleSectionHeading = "sectionHeading"
)

type Paragraph struct {
	Content         string           `json:"content"`
	Role            string           `json:"role,omitempty"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

type Table struct {
	RowCount        int              `json:"rowCount"`
	ColumnCount     int              `json:"columnCount"`
	Cells           []Cell           `json:"cells"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

type Cell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// PageNumber returns the page the paragraph belongs to, or 0 when the
// paragraph carries no page association.
func (p *Paragraph) PageNumber() int {
	if len(p.BoundingRegions) == 0 {
		return 0
	}
	return p.BoundingRegions[0].PageNumber
}

// PageNumber returns the page the table belongs to, or 0 when the table
// carries no page association.
func (t *Table) PageNumber() int {
	if len(t.BoundingRegions) == 0 {
		return 0
	}
	return t.BoundingRegions[0].PageNumber
}

// RawJSON serializes the result for storage as opaque layout metadata.
func (r *AnalyzeResult) RawJSON() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return b
}
