// Package scan implements the four tape-wide operations the CLI exposes —
// raw block dump, catalog, PFDUMP structure dump, and extract — each
// walking the outer SIMH tape block by block, classifying data blocks
// through internal/rectype, and (for extract) dispatching to the decoder
// that owns the identified record kind. It is a direct port of the
// reference do_ropt/do_topt/do_dopt/do_xopt driver loops.
package scan

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cdctape/internal/cdcrecord"
	"cdctape/internal/dcode"
	"cdctape/internal/label"
	"cdctape/internal/opl"
	"cdctape/internal/outfile"
	"cdctape/internal/pfdump"
	"cdctape/internal/rectype"
	"cdctape/internal/result"
	"cdctape/internal/simh"
	"cdctape/internal/sixbit"
	"cdctape/internal/textdecode"
)

// Options carries the CLI's modifier flags through every operation.
type Options struct {
	Maps          dcode.Maps
	ASCII         bool // -a: escape-decode 074/076 in TEXT/PROC output
	ListLibraries bool // -l: don't suppress ULIB member records in catalog
	Verbose       int  // -v, repeatable
	Out           *outfile.Writer
	Log           *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// readNext wraps Reader.ReadBlock, classifying its result for the scan
// loops below: mark=true on a tape mark (block is nil), done=true on a
// clean end of medium, and err non-nil only for a fatal framing error. An
// error mark is not fatal: it comes back as a normal block plus a logged
// warning.
func readNext(tap *simh.Reader, log *slog.Logger) (block []byte, mark, done bool, err error) {
	block, rerr := tap.ReadBlock()
	switch rerr {
	case nil:
		return block, false, false, nil
	case io.EOF:
		return nil, false, true, nil
	case simh.ErrTapeMark:
		return nil, true, false, nil
	case simh.ErrErrorMark:
		if log != nil {
			log.Warn("error mark on tape", "length", len(block))
		}
		return block, false, false, nil
	default:
		return nil, false, false, rerr
	}
}

// Raw prints every tape block's raw structure: length, label text if the
// block is an ANSI label, else its decoded display-code dump.
func Raw(tap *simh.Reader, w io.Writer, m dcode.Maps) error {
	for {
		block, mark, done, err := readNext(tap, nil)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if mark {
			fmt.Fprintln(w, "  --mark--")
			continue
		}

		fmt.Fprintf(w, "%5d ", len(block))
		if lbl, ok := label.Detect(block); ok {
			fmt.Fprintln(w, lbl.String())
			continue
		}

		chars := sixbit.Unpack(block)
		printData(w, m, chars, 0)
	}
}

func printData(w io.Writer, m dcode.Maps, chars []byte, verbose int) {
	lim := len(chars)
	switch verbose {
	case 0:
		lim = 20
	case 1:
		lim = 160
	}
	if lim > len(chars) {
		lim = len(chars)
	}

	for i := 0; i < lim; i += 20 {
		if i != 0 {
			fmt.Fprint(w, "      ")
		}
		hi := i + 20
		if hi > lim {
			hi = lim
		}
		fmt.Fprint(w, m.FormatWords(chars[i:hi]))
		if i == 0 {
			fmt.Fprintf(w, " [%d]", len(chars))
		} else if i%80 == 0 {
			fmt.Fprintf(w, " 0%o", i/10)
		}
		fmt.Fprintln(w)
	}
}

// Catalog prints one line (or, at -v, a richer multi-field line) per
// record on the tape, grouping ANSI volume/file labels into header text
// and, unless listLibraries is set, suppressing the member records of a
// ULIB between its own header and its closing OPLD trailer.
func Catalog(tap *simh.Reader, w io.Writer, opts Options) error {
	inULIB := false
	col := 0

	for {
		block, mark, done, err := readNext(tap, opts.logger())
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if mark {
			fmt.Fprintln(w, "  --mark--")
			continue
		}

		if lbl, ok := label.Detect(block); ok {
			printCatalogLabel(w, lbl)
			continue
		}

		cd := cdcrecord.NewReader(tap, block)
		r := rectype.Identify(opts.Maps, cd.InitialChars(), false)
		reclen := cd.SkipRecord()

		if !opts.ListLibraries {
			if inULIB {
				if r.Kind == rectype.OPLD {
					inULIB = false
				}
				continue
			}
			if r.Kind == rectype.ULIB {
				inULIB = true
			}
		}

		if opts.Verbose > 0 {
			printCatalogVerbose(w, r, reclen, opts.Verbose)
			continue
		}

		col = printCatalogTerse(w, r, col)
	}
}

func printCatalogLabel(w io.Writer, lbl *label.Label) {
	switch lbl.Kind {
	case "VOL":
		fmt.Fprint(w, lbl.String())
	case "HDR":
		fmt.Fprintln(w)
		fmt.Fprint(w, lbl.String())
	}
	fmt.Fprintln(w)
}

func printCatalogVerbose(w io.Writer, r rectype.Result, reclen int, verbose int) {
	date := trimDate(r.Date)
	extra := r.Extra
	if verbose < 2 && len(extra) > 48 {
		extra = extra[:48]
	}
	if r.Kind.IsRecord() {
		fmt.Fprintf(w, "%-7s %-6s %7d %8s %s\n", r.Name, r.Kind, reclen, date, extra)
	} else {
		fmt.Fprintf(w, "%-7s %-6s %s\n", r.Name, r.Kind, extra)
	}
}

func trimDate(date string) string {
	for len(date) > 7 {
		last := date[len(date)-1]
		if last == ' ' || last == '.' {
			date = date[:len(date)-1]
			continue
		}
		break
	}
	if len(date) > 0 && date[0] == ' ' {
		date = date[1:]
	}
	return date
}

func printCatalogTerse(w io.Writer, r rectype.Result, col int) int {
	switch r.Kind {
	case rectype.EOF, rectype.Empty:
		fmt.Fprintf(w, "%8s%6s", r.Kind, "")
	default:
		fmt.Fprintf(w, "%6s/%-7s", r.Kind, r.Name)
	}
	col++
	if col > 4 {
		fmt.Fprintln(w)
		return 0
	}
	fmt.Fprint(w, " ")
	return col
}

// matchAny tests every candidate pattern against name/ui, returning the
// matched display name and pattern index, or ok=false if none match.
func matchAny(patterns []string, name string, ui int) (matched string, idx int, ok bool) {
	for i, pat := range patterns {
		if m, found := outfile.MatchName(pat, name, ui, lookupUI); found {
			return m, i, true
		}
	}
	return "", -1, false
}

func lookupUI(un string) (int, bool) {
	return pfdump.UNToUI(un)
}

// reportUnmatched appends a not-found failure to c for every pattern that
// never matched a record during the scan.
func reportUnmatched(c *result.Collector, patterns []string, found []bool) {
	for i, pat := range patterns {
		if !found[i] {
			c.Addf("%s not found", pat)
		}
	}
}

// dumpTypes and dumpFlags mirror analyze_pfdump's control-word decoration
// tables: the low 3 bits of byte 7 name the sub-record's block type, the
// next 3 bits of byte 8 its flag.
var dumpTypes = [8]string{
	"label", "catalog", "permits", "data", "reelend", "catimage", "type 6", "end",
}

var dumpFlags = [8]string{
	"", " EOR", " EOF", " EOI", " syssect", " flag 5", " flag 6", " dump",
}

// DumpStructure prints the PFDUMP sub-record structure (control word, type,
// flag, and a bounded hex/display dump of its data) for every record on the
// tape matching one of names, mirroring do_dopt/analyze_pfdump. verbose
// selects how many data words of each sub-record are dumped: 0 none, 1 up
// to 8, 2+ up to 512.
func DumpStructure(tap *simh.Reader, w io.Writer, names []string, verbose int, m dcode.Maps) error {
	c := &result.Collector{}
	found := make([]bool, len(names))

	for {
		block, mark, done, err := readNext(tap, nil)
		if err != nil {
			return err
		}
		if done {
			break
		}
		if mark {
			continue
		}
		if _, ok := label.Detect(block); ok {
			continue
		}

		cd := cdcrecord.NewReader(tap, block)
		r := rectype.Identify(m, cd.InitialChars(), false)
		name := r.Name
		if name == "" {
			name = "noname"
		}

		matched, idx, ok := matchAny(names, name, r.UI)
		if !ok {
			cd.SkipRecord()
			continue
		}
		found[idx] = true

		if r.Kind == rectype.PFDump {
			analyzePFDump(cd, w, m, verbose)
		} else {
			fmt.Fprintf(os.Stderr, "Not dumping %s/%s\n", r.Kind, matched)
			cd.SkipRecord()
		}
	}

	reportUnmatched(c, names, found)
	if c.Failed() {
		return c
	}
	return nil
}

// analyzePFDump prints every control word of a PFDUMP record and, within
// the verbose-selected limit, its following data words.
func analyzePFDump(cd *cdcrecord.Reader, w io.Writer, m dcode.Maps, verbose int) {
	lim := 0
	switch {
	case verbose == 1:
		lim = 8
	case verbose >= 2:
		lim = 512
	}

	for {
		cp, ok := cd.GetWord()
		if !ok {
			return
		}
		cname := m.Copy(cp, 7, dcode.Alnum)
		btype := dumpTypes[cp[7]&07]
		flag := dumpFlags[(cp[8]>>3)&07]
		length := (int(cp[8]&07) << 6) | int(cp[9])

		fmt.Fprintf(w, "%-7s %3d ", cname, length)
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, "%02o", cp[i])
		}
		fmt.Fprintf(w, " %s%s\n", btype, flag)

		max := length
		if lim < max {
			max = lim
		}
		i := 0
		brokeEarly := false
		for i < max {
			dword := make([]byte, 20)
			first, ok := cd.GetWord()
			if !ok {
				brokeEarly = true
				break
			}
			copy(dword, first)
			nread := 1
			if i+1 < max {
				if second, ok := cd.GetWord(); ok {
					copy(dword[10:], second)
					nread = 2
				}
			}

			fmt.Fprint(w, "            ")
			fmt.Fprint(w, m.FormatWords(dword[:nread*10]))
			if i%8 == 0 {
				fmt.Fprintf(w, " 0%o", i)
			}
			fmt.Fprintln(w)
			i += nread
		}
		if brokeEarly {
			return
		}

		if length-i > 0 {
			if _, ok := cd.SkipWords(length - i); !ok {
				return
			}
		}
	}
}

// Extract decodes and writes out every record matching one of names,
// dispatching to the decoder that owns its identified kind. It mirrors
// do_xopt. Failures on individual records are collected and reported
// together; Extract keeps scanning past them.
func Extract(tap *simh.Reader, names []string, opts Options) error {
	c := &result.Collector{}
	found := make([]bool, len(names))

	uplrFlags := 0
	if opts.Maps.Base[063] != ':' {
		uplrFlags = opl.FlagIs64
	}

	for {
		block, mark, done, err := readNext(tap, opts.logger())
		if err != nil {
			return err
		}
		if done {
			break
		}
		if mark {
			continue
		}
		if _, ok := label.Detect(block); ok {
			continue
		}

		cd := cdcrecord.NewReader(tap, block)
		r := rectype.Identify(opts.Maps, cd.InitialChars(), false)
		name := r.Name
		if name == "" {
			name = "noname"
		}

		matched, idx, ok := matchAny(names, name, r.UI)
		if !ok {
			cd.SkipRecord()
			continue
		}
		found[idx] = true

		var derr error
		switch r.Kind {
		case rectype.Text, rectype.Proc:
			derr = textdecode.Extract(cd, matched, opts.Maps, opts.ASCII, opts.Out)
		case rectype.OPL, rectype.OPLC:
			derr = opl.ExtractOPL(cd, matched, opts.Out, opts.Verbose > 0)
		case rectype.UPL:
			derr = opl.ExtractUPL(cd, matched, time.Time{}, opts.Out, opts.Verbose > 0)
		case rectype.UPLR:
			derr = opl.ExtractUPLR(cd, matched, time.Time{}, opts.Out, uplrFlags, opts.Verbose > 0)
		case rectype.DumpPF:
			derr = pfdump.ExtractDumpPF(cd, matched, opts.Out.Dir)
		case rectype.PFDump:
			derr = pfdump.ExtractPFDump(cd, matched, opts.Out.Dir)
		default:
			if r.Kind.IsRecord() {
				c.Addf("%s/%s: not extracting", r.Kind, name)
			}
			cd.SkipRecord()
		}
		if derr != nil {
			c.Addf("%s/%s: %s", r.Kind, name, derr)
		}
	}

	reportUnmatched(c, names, found)
	if c.Failed() {
		return c
	}
	return nil
}
