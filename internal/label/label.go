// Package label recognizes and formats ANSI magnetic tape labels (VOL1,
// HDR1/2, EOV1/2, EOF1/2), the 80-byte fixed-format records that bound ANSI
// volumes and files.
package label

import "fmt"

// Label is a recognized 80-byte ANSI label.
type Label struct {
	Kind string // "VOL", "HDR", "EOV", or "EOF"
	buf  []byte // the 80 bytes used for field extraction (possibly EBCDIC-translated)
}

// Detect reports whether block is an 80-byte ANSI label. If the plain bytes
// don't match but the high bit of byte 0 is set, it trial-translates the
// block through an EBCDIC code page and retests; a label recognized only
// after translation still reports its Kind from the translated copy, but
// the original block is otherwise unaffected for any further structural
// decision the caller makes.
func Detect(block []byte) (*Label, bool) {
	if len(block) != 80 {
		return nil, false
	}
	if kind, ok := matchKind(block); ok {
		return &Label{Kind: kind, buf: block}, true
	}
	if block[0]&0x80 != 0 {
		translated := translateEBCDIC(block)
		if kind, ok := matchKind(translated); ok {
			return &Label{Kind: kind, buf: translated}, true
		}
	}
	return nil, false
}

func matchKind(buf []byte) (string, bool) {
	for _, kind := range []string{"VOL", "HDR", "EOV", "EOF"} {
		if string(buf[:3]) == kind {
			return kind, true
		}
	}
	return "", false
}

// String renders the label as a single summary line: label id and number,
// then type-specific fields (VOL1's owner/os, or the file identifier,
// set/section/generation/version numbers, block length, creation/expiry
// dates, and operating system id for the others).
func (l *Label) String() string {
	s := lfieldPrefix("", l.buf, 0, 3)
	if l.buf[0] == 'V' {
		s += lfieldPrefix(" ", l.buf, 4, 9)
		s += lfieldPrefix(" l", l.buf, 79, 79)
		s += lfieldPrefix(" owner=", l.buf, 37, 50)
		s += lfieldPrefix(" os=", l.buf, 24, 36)
		return s
	}

	s += lfieldPrefix(" ", l.buf, 4, 20)
	s += lfieldPrefix(" s", l.buf, 31, 34)
	s += lfieldPrefix(" g", l.buf, 35, 38)
	s += lfieldPrefix(" v", l.buf, 39, 40)
	s += lfieldPrefix(" b", l.buf, 54, 59)
	s += jdate(" cre=", l.buf, 41)
	s += jdate(" exp=", l.buf, 47)
	s += lfieldPrefix(" os=", l.buf, 60, 72)
	return s
}

// lfieldPrefix trims leading/trailing spaces from buf[lo:hi+1], compresses
// interior runs of spaces to one, masks non-printable bytes as '~', and
// prefixes txt if anything remains. It mirrors the reference print_lfield.
func lfieldPrefix(txt string, buf []byte, lo, hi int) string {
	for lo <= hi && buf[lo] == ' ' {
		lo++
	}
	for hi >= lo && buf[hi] == ' ' {
		hi--
	}
	if lo > hi {
		return ""
	}

	out := make([]byte, 0, hi-lo+2)
	var prev byte
	for i := lo; i <= hi; i++ {
		c := buf[i]
		if prev != ' ' || c != ' ' {
			if c >= 32 && c < 127 {
				out = append(out, c)
			} else {
				out = append(out, '~')
			}
		}
		prev = c
	}
	return txt + string(out)
}

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// jdate parses a 6-byte Julian date field ("[Cc]YYDDD") at buf[at:at+6]
// into a calendar date, falling back to the raw field text if the shape
// doesn't hold. It mirrors the reference print_jdate.
func jdate(txt string, buf []byte, at int) string {
	sp := buf[at : at+6]

	i := 5
	for i >= 0 && isDigit(sp[i]) {
		i--
	}
	if i > 0 || (i == 0 && sp[0] != ' ') {
		return lfieldPrefix(txt, buf, at, at+5)
	}

	var yr int
	if sp[0] == ' ' {
		yr = 1900
	} else {
		yr = 2000 + 100*int(sp[0]-'0')
	}
	yr += 10*int(sp[1]-'0') + int(sp[2]-'0')

	days := daysInMonth
	if yr%4 == 0 {
		days[1] = 29
	}

	jday := 100*int(sp[3]-'0') + 10*int(sp[4]-'0') + int(sp[5]-'0')
	month := 0
	for month < 12 {
		if jday-days[month] <= 0 {
			break
		}
		jday -= days[month]
		month++
	}
	if month == 12 {
		return lfieldPrefix(txt, buf, at, at+5)
	}

	return fmt.Sprintf("%s%04d/%02d/%02d", txt, yr, month+1, jday)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
