package console

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const PictoBulb = "💡"
const PictoPlug = "🔌"
const PictoStop = "🚫"

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Errorf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}

// Reply prints a line received from the node with its CRLF made visible.
func Reply(raw string) {
	body := strings.TrimRight(raw, "\r\n")
	_, _ = fmt.Fprintf(writer, "%s %s %s\n", Cyan("<"), body, White(fmt.Sprintf("%q", raw[len(body):])))
}
