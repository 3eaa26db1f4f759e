package datapush

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"NoShowInsights/src/processor"

	"github.com/go-gota/gota/dataframe"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ConsoleSink prints every row of every report table as aligned text.
type ConsoleSink struct {
	w       io.Writer
	printer *message.Printer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{
		w:       w,
		printer: message.NewPrinter(language.English),
	}
}

func (s *ConsoleSink) Push(r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "No-show appointments report: %s (%s)\n\n", r.Source, r.Generated.Format("2006-01-02 15:04:05"))
	writeFrame(&b, r.summaryFrame())
	writeFrame(&b, r.Assessment.Frame())
	if r.Assessment.AgeDescribe.Nrow() > 0 {
		writeFrame(&b, r.Assessment.AgeDescribe)
	}

	for _, sec := range r.Sections {
		fmt.Fprintf(&b, "==== %s: %s ====\n\n", sec.Title, sec.Question)
		for _, t := range sec.Tables {
			fmt.Fprintf(&b, "-- %s --\n", t.Name)
			if len(t.Rows) == 0 {
				fmt.Fprint(&b, "(empty)\n\n")
				continue
			}
			writeFrame(&b, s.formatted(t).Frame())
		}
	}

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("console sink: %w", err)
	}
	return nil
}

// writeFrame 输出全部记录; gota 的 String() 只显示前 10 行
func writeFrame(w io.Writer, df dataframe.DataFrame) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range df.Records() {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

// formatted 整数单元格加千位分隔符
func (s *ConsoleSink) formatted(t processor.Table) processor.Table {
	out := t
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if n, err := strconv.Atoi(v); err == nil && j > 0 {
				cells[j] = s.printer.Sprintf("%d", n)
			} else {
				cells[j] = v
			}
		}
		out.Rows[i] = cells
	}
	return out
}
