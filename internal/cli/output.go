package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/orizon-lang/tierforge/internal/program"
)

// Output formats for programs.
const (
	FormatIR   = "ir"
	FormatJSON = "json"
)

// WriteProgram renders p in the given format. The IR listing is preceded by
// a comment header naming the program.
func WriteProgram(w io.Writer, p *program.Program, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(w, "%s\n", data)

		return err
	case FormatIR, "":
		_, err := fmt.Fprintf(w, "// id=%s template=%s seed=%d\n%s", p.ID(), p.Template(), p.Seed(), p.Format())
		return err
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatIR, FormatJSON)
	}
}
