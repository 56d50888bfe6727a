package export

// Table is the tabular form of a report ready for rendering.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}
