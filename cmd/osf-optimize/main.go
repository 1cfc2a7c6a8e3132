// osf-optimize runs routine maintenance on the preprints SQLite database.
//
// Typically invoked from cron:
//
//	0 3 * * 0  osf-optimize --all
//	0 3 * * 1-6  osf-optimize
//
// The full-text index uses FTS4, which github.com/mattn/go-sqlite3 compiles in
// by default, so no build tags are needed.
package main

import (
	"os"

	"github.com/aziis98/osf-optimize/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
