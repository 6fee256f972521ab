package workgen

import (
	"fmt"
	"io"

	"github.com/hhkbp2/workgen/engine"
)

// Show writes every row of the table to w, framed by banners, and
// returns the number of rows.
func Show(w io.Writer, session *engine.Session, uri string) (int, error) {
	cursor, err := session.OpenCursor(uri)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()
	schema := cursor.Schema()
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "<><><><> %s <><><><>\n", uri)
	rows := 0
	for cursor.Next() {
		fmt.Fprintf(w, "key: %s\n", schema.KeyFormat.Display(cursor.Key()))
		fmt.Fprintf(w, "value: %s\n", schema.ValueFormat.Display(cursor.Value()))
		rows++
	}
	fmt.Fprintln(w, "<><><><><><><><><><><><>")
	return rows, cursor.Err()
}
