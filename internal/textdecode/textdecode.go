// Package textdecode extracts TEXT and PROC records: plain display-code
// (or ASCII-escaped) line-oriented decks with no compression and no
// modification history, unlike the OPL/UPL decks in internal/opl. It is a
// direct port of the reference extract_text.
package textdecode

import (
	"cdctape/internal/cdcrecord"
	"cdctape/internal/dcode"
	"cdctape/internal/outfile"
)

// Extract decodes one TEXT or PROC record to name.txt. When ascii is true,
// a raw 074/076 byte selects the 74-escape/76-escape string table
// (dcode.Maps.Esc74/Esc76) for the one byte that follows it, rather than
// mapping that byte through the base map.
func Extract(cd *cdcrecord.Reader, name string, m dcode.Maps, ascii bool, out *outfile.Writer) error {
	f, _, err := out.Create(name, "txt")
	if err != nil {
		cd.SkipRecord()
		return nil
	}
	defer out.Close(f)

	eol := false
	var esc byte

	for {
		cp, ok := cd.GetWord()
		if !ok {
			break
		}

		oc := 10
		for oc > 0 && cp[oc-1] == 0 {
			oc--
		}

		if eol && oc != 0 {
			f.Write([]byte{m.Base[0]})
		}
		eol = oc == 9

		for i := 0; i < oc; i++ {
			c := cp[i]
			if ascii && (c == 074 || c == 076) {
				esc = c
				continue
			}
			switch esc {
			case 074:
				f.WriteString(m.Esc74[c])
			case 076:
				f.WriteString(m.Esc76[c])
			default:
				f.Write([]byte{m.Base[c]})
			}
			esc = 0
		}

		if oc < 9 {
			if esc != 0 {
				f.Write([]byte{m.Base[esc]})
			}
			esc = 0
			f.Write([]byte{'\n'})
		}
	}

	if esc != 0 {
		f.Write([]byte{m.Base[esc]})
	}
	if eol {
		f.Write([]byte{m.Base[0]})
	}

	return nil
}
