package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// csvStreamer writes export rows (orders with line counts, customers or
// products) to the HTTP response, flushing every csvFlushEvery rows so a
// large download starts before the query finishes.
type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

// writeRow appends one export record.
func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

// Flush pushes buffered rows to the client. Write calls it after the last row.
func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// headerRow turns column names like default_price_usd into "Default Price Usd".
func headerRow(columns []string) []string {
	titler := cases.Title(language.English)
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = titler.String(strings.ReplaceAll(c, "_", " "))
	}
	return out
}
