package compose

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnencodableText is returned when text to be drawn contains characters
// outside the WinAnsi (Windows-1252) encoding of the standard PDF fonts.
var ErrUnencodableText = errors.New("compose: text cannot be encoded in WinAnsi")

// checkEncodable returns ErrUnencodableText naming field and the first rune
// of s the standard fonts cannot draw.
func checkEncodable(field, s string) error {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return fmt.Errorf("%w: %s contains %q (U+%04X)", ErrUnencodableText, field, r, r)
		}
	}
	return nil
}

// checkText verifies every string a run draws before any page is produced.
func (c *Composer) checkText(title string) error {
	for _, f := range []struct{ field, text string }{
		{"title", title},
		{"subtitle", c.cfg.subtitle},
		{"copyright", c.cfg.copyright},
	} {
		if err := checkEncodable(f.field, f.text); err != nil {
			return err
		}
	}
	return nil
}
