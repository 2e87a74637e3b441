package export

// Sheet is an ordered tabular payload handed to the exporters.
type Sheet struct {
	Title   string
	Columns []string
	Rows    [][]string
}
