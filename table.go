package workgen

import (
	"github.com/hhkbp2/workgen/engine"
)

// Table refers to a table of a connection by uri, e.g. "table:simple".
type Table struct {
	URI string
}

func NewTable(uri string) Table {
	return Table{URI: uri}
}

// Name returns the table name without the "table:" prefix.
func (self Table) Name() string {
	name, err := engine.ParseURI(self.URI)
	if err != nil {
		return self.URI
	}
	return name
}

func (self Table) String() string {
	return self.URI
}
