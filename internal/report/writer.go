package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/natefinch/atomic"
)

// Write writes output to path atomically, or to w when path is empty.
func Write(w io.Writer, path, output string) error {
	if path == "" {
		_, err := io.WriteString(w, output)
		return err
	}
	if err := atomic.WriteFile(path, strings.NewReader(output)); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
