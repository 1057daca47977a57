package inspect

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// shownStrings interprets the content streams of the 1-based page n and
// returns the operands of the text-showing operators Tj, TJ, ' and ". Each
// TJ array yields one string with its kerning adjustments dropped.
func shownStrings(data []byte, n int) (result []string, err error) {
	// The interpreter panics on malformed content instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: page %d content: %v", ErrCorrupted, n, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	page := r.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("inspect: page %d not found", n)
	}

	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			result = interpret(contents.Index(i), result)
		}
		return result, nil
	}
	if contents.Kind() == pdf.Stream {
		result = interpret(contents, result)
	}
	return result, nil
}

func interpret(strm pdf.Value, result []string) []string {
	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "Tj", "'", "\"":
			if len(args) > 0 {
				result = append(result, args[len(args)-1].Text())
			}
		case "TJ":
			if len(args) > 0 {
				result = append(result, arrayText(args[len(args)-1]))
			}
		}
	})
	return result
}

// arrayText concatenates the strings of a TJ operand.
func arrayText(v pdf.Value) string {
	var s string
	for i := 0; i < v.Len(); i++ {
		if e := v.Index(i); e.Kind() == pdf.String {
			s += e.Text()
		}
	}
	return s
}
