// Package opl decompresses MODIFY/UPDATE program-library source decks:
// the shared line-decompression engine, modification-history chains, and
// the three deck formats (MODIFY OPL/OPLC, UPDATE sequential UPL, UPDATE
// random UPL) that all build on it. It is a direct port of the reference
// read_hist/expand_text/extract_opl/extract_upl/extract_uplr.
package opl

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"cdctape/internal/cdcrecord"
	"cdctape/internal/dcode"
	"cdctape/internal/outfile"
)

// MaxLine is the maximum expanded line length; exceeding it is an error.
const MaxLine = 160

// Flags controlling ExpandText's character mapping.
const (
	FlagIs64     = 1 << iota // 00 01 expands to ':' (64-character-set OPL)
	Flag63IsColon            // raw code 063 maps to ':' rather than through Base (MODIFY OPL only)
)

// ReadHistory walks a chain of 18-bit modification-history entries starting
// at character index idx within the already-fetched word cp, pulling
// further words from cd as the chain continues. lastmask selects which bit
// of a word's first byte marks it as the chain's last word (0 for MODIFY
// OPL, 040 for UPDATE PL). It returns the last mod number that activated
// the line, -1 if none did, or -2 on a premature end of record.
func ReadHistory(cd *cdcrecord.Reader, cp []byte, idx int, lastmask byte) int {
	rv := -1
	for {
		hist := (int(cp[idx]) << 12) | (int(cp[idx+1]) << 6) | int(cp[idx+2])
		if hist == 0 {
			break
		}
		if hist&0200000 != 0 {
			rv = hist & 0177777
		}
		idx += 3
		if idx > 9 {
			if cp[0]&lastmask != 0 {
				break
			}
			next, ok := cd.GetWord()
			if !ok {
				return -2
			}
			cp = next
			idx = 1
		}
	}
	return rv
}

// ExpandText decompresses wc words of compressed text through the shared
// line state machine (default / saw-00 / saw-0077 / saw-007700), returning
// the decompressed line, remaining unconsumed word count (0 on a clean
// end-of-line), -1 for "line too long", or -2 for a premature end of
// record.
func ExpandText(cd *cdcrecord.Reader, wc int, flags int) (line string, remaining int) {
	const (
		stateDefault = iota
		stateSaw00
		stateSaw0077
		stateSaw007700
	)
	state := stateDefault
	obuf := make([]byte, 0, MaxLine+16)
	m := dcode.New(false)

	for ; wc > 0; wc-- {
		if len(obuf) > MaxLine {
			return "", -1
		}
		cp, ok := cd.GetWord()
		if !ok {
			return "", -2
		}
		eol := false
		for i := 0; i < 10; i++ {
			c := cp[i]
			if c == 0 {
				if state == stateSaw00 {
					eol = true
					break
				}
				if state == stateSaw0077 {
					state = stateSaw007700
					continue
				}
				// 00770000 is invalid; treat as a single 00.
				state = stateSaw00
				continue
			}

			if state == stateSaw00 && c == 1 && flags&FlagIs64 != 0 {
				obuf = append(obuf, m.Base[0])
				state = stateDefault
				continue
			}

			if state == stateSaw00 || state == stateSaw007700 {
				state = stateDefault
				if len(obuf)+int(c) > MaxLine {
					return "", -1
				}
				for j := 0; j < int(c)+1; j++ {
					obuf = append(obuf, ' ')
				}
				if c == 077 {
					state = stateSaw0077
				}
				continue
			}

			state = stateDefault
			if c == 063 && flags&Flag63IsColon != 0 {
				obuf = append(obuf, ':')
			} else {
				obuf = append(obuf, m.Base[c])
			}
		}
		if eol {
			wc--
			break
		}
	}
	return string(obuf), wc
}

// ModName resolves a mod number to a display name, given the mod name
// table built by the caller (nil for decoders, like UPLR, with no
// directory available).
func ModName(mods []string, modnum int) string {
	if modnum < 0 {
		return "unknown"
	}
	if modnum >= len(mods) {
		return "invalid"
	}
	return mods[modnum]
}

func parseCDCDate(s string) (time.Time, bool) {
	// "yy/mm/dd." display-code date, as produced elsewhere in this package.
	var yy, mm, dd int
	if _, err := fmt.Sscanf(s, "%2d/%2d/%2d.", &yy, &mm, &dd); err != nil {
		return time.Time{}, false
	}
	year := yy
	if year < 60 {
		year += 2000
	} else {
		year += 1900
	}
	return time.Date(year, time.Month(mm), dd, 12, 0, 0, 0, time.UTC), true
}

// ExtractOPL decompresses one MODIFY OPL or OPLC deck into a text file,
// following the 7700 header table, the 7001/7002 mod-name table, then each
// text line's active flag, word count, sequence number, and modification
// history.
func ExtractOPL(cd *cdcrecord.Reader, name string, out *outfile.Writer, verbose bool) error {
	m := dcode.New(false)

	cp, ok := cd.GetWord()
	if !ok || cp[0] != 077 || cp[1] != 0 {
		return errors.New("opl: no 7700 table")
	}
	length := (int(cp[2]) << 6) | int(cp[3])

	cp, ok = cd.GetWord()
	if !ok {
		return errors.New("opl: short 7700 table")
	}
	nread := 1

	var mdate string
	if length >= 3 {
		cp, ok = cd.GetWord()
		if !ok {
			return errors.New("opl: EOR reading cdate from 7700 table")
		}
		mdate = m.Copy(cp, 10, dcode.NoNul)
		cp, ok = cd.GetWord()
		if !ok {
			return errors.New("opl: EOR reading mdate from 7700 table")
		}
		if cp[0] != 0 {
			mdate = m.Copy(cp, 10, dcode.NoNul)
		}
		nread = 3
	}

	flags := Flag63IsColon
	isASCII := false
	if length >= 14 {
		if _, ok := cd.SkipWords(13 - nread); !ok {
			return errors.New("opl: EOR reading 7700 table")
		}
		cp, ok = cd.GetWord()
		if !ok {
			return errors.New("opl: EOR reading charset from 7700 table")
		}
		if cp[8] <= 1 && cp[9] == 064 {
			flags = FlagIs64
		}
		if cp[8] == 1 && (cp[9] == 0 || cp[9] == 064) {
			isASCII = true
		}
		nread = 14
	}
	_ = isASCII

	if length-nread > 0 {
		if _, ok := cd.SkipWords(length - nread); !ok {
			return errors.New("opl: EOR skipping over 7700 table")
		}
	}

	cp, ok = cd.GetWord()
	if !ok || cp[0] != 070 || (cp[1] != 1 && cp[1] != 2) {
		return errors.New("opl: no 700x table")
	}
	nmods := ((int(cp[8]) << 6) | int(cp[9])) + 1
	mods := make([]string, nmods)
	mods[0] = name
	for i := 1; i < nmods; i++ {
		cp, ok = cd.GetWord()
		if !ok {
			return errors.New("opl: 700x table too short")
		}
		mods[i] = m.Copy(cp, 7, dcode.Alnum)
	}

	f, fname, err := out.Create(name, "txt")
	if err != nil {
		cd.SkipRecord()
		return nil
	}
	defer out.Close(f)

	for {
		cp, ok = cd.GetWord()
		if !ok {
			break
		}
		active := cp[0]&040 != 0
		wc := int(cp[0] & 037)
		seq := (int(cp[1]) << 12) | (int(cp[2]) << 6) | int(cp[3])

		modnum := ReadHistory(cd, cp, 4, 0)
		if modnum == -2 {
			return errors.New("opl: EOR reading modification history")
		}
		modname := "unknown"
		if modnum >= 0 {
			modname = ModName(mods, modnum)
		}

		if !active {
			if wc > 0 {
				if _, ok := cd.SkipWords(wc); !ok {
					break
				}
			}
			continue
		}

		line, rem := ExpandText(cd, wc, flags)
		if rem == -2 {
			return errors.New("opl: EOR reading compressed text")
		}
		if rem == -1 {
			return errors.New("opl: line too long in compressed text")
		}
		if rem != 0 {
			return errors.New("opl: missing EOL in compressed text")
		}

		if verbose {
			fmt.Fprintf(f, "%-72s%-7s%6d\n", line, modname, seq)
		} else {
			fmt.Fprintf(f, "%s\n", line)
		}
	}

	if t, ok := parseCDCDate(mdate); ok {
		out.SetMTime(fname, t)
	}
	return nil
}

// ExtractUPL decompresses one UPDATE sequential program-library deck: an
// OLDPL header beginning with display-code "CHECK", an id/deck-count
// directory, then text lines terminated by a checksum word whose first five
// characters are zero.
func ExtractUPL(cd *cdcrecord.Reader, name string, mtime time.Time, out *outfile.Writer, verbose bool) error {
	m := dcode.New(false)

	cp, ok := cd.GetWord()
	if !ok || !equalPrefix(cp, []byte{003, 010, 005, 003, 013}) || cp[5]&076 != 0 {
		return errors.New("opl: invalid OLDPL header")
	}
	flags := 0
	if cp[6] != 036 {
		flags = FlagIs64
	}

	cp, ok = cd.GetWord()
	if !ok {
		return errors.New("opl: short OLDPL header")
	}
	idcnt := (int(cp[4]) << 12) | (int(cp[5]) << 6) | int(cp[6])
	deckcnt := (int(cp[7]) << 12) | (int(cp[8]) << 6) | int(cp[9])

	ids := make([]string, idcnt)
	for i := 0; i < idcnt; i++ {
		cp, ok = cd.GetWord()
		if !ok {
			return errors.New("opl: OLDPL directory too short")
		}
		ids[i] = m.Copy(cp, 9, dcode.Alnum)
	}

	if deckcnt > 0 {
		if _, ok := cd.SkipWords(deckcnt); !ok {
			return errors.New("opl: EOR skipping over OLDPL deck list")
		}
	}

	f, fname, err := out.Create(name, "txt")
	if err != nil {
		cd.SkipRecord()
		return nil
	}
	defer out.Close(f)

	for {
		cp, ok = cd.GetWord()
		if !ok {
			break
		}
		if allZero5(cp) {
			break
		}
		active := cp[0]&020 != 0
		wc := (int(cp[1]) << 12) | (int(cp[2]) << 6) | int(cp[3])
		seq := (int(cp[4]) << 12) | (int(cp[5]) << 6) | int(cp[6])

		modnum := ReadHistory(cd, cp, 7, 040)
		if modnum == -2 {
			return errors.New("opl: EOR reading modification history")
		}
		modname := "unknown"
		if modnum > 0 {
			if modnum <= idcnt {
				modname = ids[modnum-1]
			} else {
				modname = "invalid"
			}
		}

		if !active {
			if wc > 0 {
				if _, ok := cd.SkipWords(wc); !ok {
					break
				}
			}
			continue
		}

		line, rem := ExpandText(cd, wc, flags)
		if rem == -2 {
			return errors.New("opl: EOR reading compressed text")
		}
		if rem == -1 {
			return errors.New("opl: line too long in compressed text")
		}
		if rem != 0 {
			return errors.New("opl: missing EOL in compressed text")
		}

		if verbose {
			fmt.Fprintf(f, "%-72s%s.%d\n", line, modname, seq)
		} else {
			fmt.Fprintf(f, "%s\n", line)
		}
	}

	out.SetMTime(fname, mtime)
	return nil
}

// ExtractUPLR decompresses one UPDATE random program-library deck. Unlike
// ExtractUPL, the identifier directory lives in a separate record this
// decoder cannot see, so each line's modification author is rendered as
// "d<octal mod number>".
func ExtractUPLR(cd *cdcrecord.Reader, name string, mtime time.Time, out *outfile.Writer, flags int, verbose bool) error {
	f, fname, err := out.Create(name, "txt")
	if err != nil {
		cd.SkipRecord()
		return nil
	}
	defer out.Close(f)

	for {
		cp, ok := cd.GetWord()
		if !ok {
			break
		}
		active := cp[0]&020 != 0
		wc := (int(cp[1]) << 12) | (int(cp[2]) << 6) | int(cp[3])
		seq := (int(cp[4]) << 12) | (int(cp[5]) << 6) | int(cp[6])

		modnum := ReadHistory(cd, cp, 7, 040)
		if modnum == -2 {
			return errors.New("opl: EOR reading modification history")
		}

		if !active {
			if wc > 0 {
				if _, ok := cd.SkipWords(wc); !ok {
					break
				}
			}
			continue
		}

		line, rem := ExpandText(cd, wc, flags)
		if rem == -2 {
			return errors.New("opl: EOR reading compressed text")
		}
		if rem == -1 {
			return errors.New("opl: line too long in compressed text")
		}
		if rem != 0 {
			return errors.New("opl: missing EOL in compressed text")
		}

		if verbose {
			fmt.Fprintf(f, "%-72sd%06o.%d\n", line, modnum, seq)
		} else {
			fmt.Fprintf(f, "%s\n", line)
		}
	}

	out.SetMTime(fname, mtime)
	return nil
}

func equalPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i, c := range prefix {
		if buf[i] != c {
			return false
		}
	}
	return true
}

func allZero5(buf []byte) bool {
	for i := 0; i < 5; i++ {
		if buf[i] != 0 {
			return false
		}
	}
	return true
}
