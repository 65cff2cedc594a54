// Package dcode implements CDC display code: the 6-bit character set used
// throughout CDC 6000/Cyber tape records, and the escape sequences (74xx,
// 76xx) layered on top of it for full ASCII representation.
package dcode

// Flags for Copy, selecting how a display-code run is terminated.
const (
	All   = 0 // copy the entire buffer
	Alnum = 7 // stop on first non-alphanumeric code, null-terminate
	NoSpc = 6 // stop on space or null
	NoNul = 4 // stop on null
	// Text additionally honors the CDC end-of-line convention: a run of
	// nulls padding out to the next word boundary collapses to two spaces
	// rather than terminating the copy.
	Text = 8
)

// Maps holds the three CDC display-code tables in effect for a run: the base
// 64-character set, and the 74xx/76xx escape-prefixed extensions that widen
// it to full ASCII. A Maps value is built once by New and never mutated
// afterward; the -3/--charset63 flag only changes which table New builds.
type Maps struct {
	Base  [64]byte
	Esc74 [64]string
	Esc76 [64]string
}

var baseMap = [64]byte{
	':', 'A', 'B', 'C', 'D', 'E', 'F', 'G',
	'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W',
	'X', 'Y', 'Z', '0', '1', '2', '3', '4',
	'5', '6', '7', '8', '9', '+', '-', '*',
	'/', '(', ')', '$', '=', ' ', ',', '.',
	'#', '[', ']', '%', '"', '_', '!', '&',
	'\'', '?', '<', '>', '@', '\\', '^', ';',
}

var esc74Map = [64]string{
	"@:", "@", "^", "@C", ":", "@E", "@F", "`",
	"@H", "@I", "@J", "@K", "@L", "@M", "@N", "@O",
	"@P", "@Q", "@R", "@S", "@T", "@U", "@V", "@W",
	"@X", "@Y", "@Z", "@0", "@1", "@2", "@3", "@4",
	"@5", "@6", "@7", "@8", "@9", "@+", "@-", "@*",
	"@/", "@(", "@)", "@$", "@=", "@ ", "@,", "@.",
	"@#", "@[", "@]", "@%", "@\"", "@_", "@!", "@&",
	"@'", "@?", "@<", "@>", "@@", "@\\", "@^", "@;",
}

var esc76Map = [64]string{
	"^:", "a", "b", "c", "d", "e", "f", "g",
	"h", "i", "j", "k", "l", "m", "n", "o",
	"p", "q", "r", "s", "t", "u", "v", "w",
	"x", "y", "z", "{", "|", "}", "~", "\177",
	"\000", "\001", "\002", "\003", "\004", "\005", "\006", "\007",
	"\010", "\011", "\012", "\013", "\014", "\015", "\016", "\017",
	"\020", "\021", "\022", "\023", "\024", "\025", "\026", "\027",
	"\030", "\031", "\032", "\033", "\034", "\035", "\036", "\037",
}

// New builds the display-code maps in effect for a run. When charset63 is
// true (the -3/--charset63 flag), the base map's code 0o63 and the 74-escape
// map's code 0o04 swap their default meanings of ':' and '%', matching the
// CDC 63-character-set convention.
func New(charset63 bool) Maps {
	m := Maps{
		Base:  baseMap,
		Esc74: esc74Map,
		Esc76: esc76Map,
	}
	if charset63 {
		m.Base[063] = ':'
		m.Esc74[04] = "%"
	}
	return m
}

// Copy translates up to max display-code bytes from src using flags,
// returning the translated string. It mirrors the reference copy_dc: EOL
// collapsing (Text), alphanumeric/space/null termination.
func (m Maps) Copy(src []byte, max int, flags int) string {
	if max > len(src) {
		max = len(src)
	}
	dst := make([]byte, 0, max)
	for i := 0; i < max; i++ {
		c := src[i]
		if flags&Text != 0 && c == 0 {
			j := (i / 10) * 10
			if i-j == 9 {
				j += 10
			}
			j += 10
			if j > max {
				j = max
			}
			k := i + 1
			for k < j && src[k] == 0 {
				k++
			}
			if k == j {
				if j+2 < max {
					dst = append(dst, ' ', ' ')
				}
				i = j - 1
				continue
			}
		}
		if flags&1 != 0 && c > 36 {
			break
		}
		if flags&2 != 0 && c == 055 {
			break
		}
		if flags&4 != 0 && c == 0 {
			break
		}
		dst = append(dst, m.Base[c])
	}
	return string(dst)
}

// FormatWords renders up to two consecutive decoded words (20 six-bit
// characters) as one raw-dump line: the octal value of every character,
// then the same characters run through the base map, mirroring the
// reference dump_dword.
func (m Maps) FormatWords(chars []byte) string {
	buf := make([]byte, 0, 64)
	for i := 0; i < 20; i++ {
		if i < len(chars) {
			buf = append(buf, octal2(chars[i])...)
		} else {
			buf = append(buf, ' ', ' ')
		}
		if i%10 == 9 {
			buf = append(buf, ' ')
		}
	}
	for i := 0; i < 20; i++ {
		if i < len(chars) {
			buf = append(buf, m.Base[chars[i]])
		} else {
			buf = append(buf, ' ')
		}
	}
	return string(buf)
}

func octal2(b byte) []byte {
	hi := (b >> 3) & 07
	lo := b & 07
	return []byte{'0' + hi, '0' + lo}
}

// IsTimestamp reports whether sp holds a "yy/mm/dd." or "hh.mm.ss." shaped
// run of display-code digits with separator sep, tolerating one leading
// space code.
func IsTimestamp(sp []byte, sep byte) bool {
	if len(sp) > 0 && sp[0] == 055 {
		sp = sp[1:]
	}
	if len(sp) < 9 {
		return false
	}
	if sp[2] != sep || sp[5] != sep || sp[8] != 057 {
		return false
	}
	digit := func(c byte) bool { return c > 26 && c <= 36 }
	return digit(sp[0]) && digit(sp[1]) && digit(sp[3]) &&
		digit(sp[4]) && digit(sp[6]) && digit(sp[7])
}
