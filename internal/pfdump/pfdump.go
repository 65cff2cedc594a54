// Package pfdump extracts permanent-file catalog entries out of PFDUMP and
// DUMPPF records, each of which packs one or more files into a single
// logical tape record framed by control words. Extraction opens a nested
// SIMH tape per catalog entry and streams its data through a record writer
// exclusively owned by that entry, mirroring the reference extract_pfdump
// (extract_dumppf has no surviving reference implementation; it follows
// the control-word layout directly).
package pfdump

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"cdctape/internal/cdcrecord"
	"cdctape/internal/dcode"
	"cdctape/internal/outfile"
	"cdctape/internal/simh"
)

// validuz is the built-in ui <-> un mapping, transcribed from MECC's
// VALIDUZ catalog.
var validuz = []struct {
	un string
	ui int
}{
	{"UTILITY", 0524},
	{"SYSLIB", 0377701},
	{"SYSPROC", 0377702},
	{"MULTI", 0377703},
	{"CALLPRG", 0377704},
	{"WRITEUP", 0377705},
	{"CHARGE", 0377706},
	{"LIBRARY", 0377776},
	{"SYSTEMX", 0377777},
}

// UIToUN renders ui as its canonical user name, or its octal literal if ui
// isn't one of the nine built-in entries.
func UIToUN(ui int) string {
	for _, v := range validuz {
		if v.ui == ui {
			return v.un
		}
	}
	return strconv.FormatInt(int64(ui), 8)
}

// UNToUI resolves un (case-insensitive, any "/..." suffix ignored) back to
// its numeric ui. It reports ok=false if un isn't one of the built-ins.
func UNToUI(un string) (int, bool) {
	for i, c := range un {
		if c == '/' {
			un = un[:i]
			break
		}
	}
	for _, v := range validuz {
		if len(un) == len(v.un) && equalFold(un, v.un) {
			return v.ui, true
		}
	}
	return 0, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func subdirName(ui int) string {
	if un := UIToUN(ui); un != strconv.FormatInt(int64(ui), 8) {
		return un
	}
	return strconv.FormatInt(int64(ui), 8)
}

func mtimeFromWord(cp []byte) time.Time {
	year := int(cp[4]) + 1970
	month := time.Month(int(cp[5]))
	day := int(cp[6])
	hour, min, sec := int(cp[7]), int(cp[8]), int(cp[9])
	if month < 1 {
		month = 1
	}
	if day < 1 {
		return time.Time{}
	}
	return time.Date(year, month, day, hour, min, sec, 0, time.Local)
}

// ExtractPFDump extracts every catalog entry in one PFDUMP logical record
// under baseDir, naming each file name (the record's display name, used
// verbatim unless a second catalog entry collides, in which case the
// colliding entry's own catalog name is substituted).
func ExtractPFDump(cd *cdcrecord.Reader, name, baseDir string) error {
	var inner *simh.Writer
	var icw *cdcrecord.Writer
	var fname string
	var mtime time.Time
	np := name

	closeInner := func() {
		if icw != nil {
			icw.WriteEOF()
			icw = nil
		}
		if inner != nil {
			inner.Close()
			inner = nil
		}
	}

	for {
		cp, ok := cd.GetWord()
		if !ok {
			closeInner()
			cd.SkipRecord()
			return errors.New("pfdump: EOR while extracting PFDUMP")
		}

		btype := cp[7] & 07
		flag := (cp[8] >> 3) & 07
		length := (int(cp[8]&07) << 6) | int(cp[9])

		switch btype {
		case 1: // catalog entry
			cp, ok = cd.GetWord()
			if !ok {
				closeInner()
				return errors.New("pfdump: EOR while extracting PFDUMP")
			}
			if inner != nil {
				closeInner()
				m := dcode.New(false)
				cname := m.Copy(cp, 7, dcode.Alnum)
				fmt.Fprintf(os.Stderr,
					"%s: multiple PFDUMP catalog entries, found entry for %s\n",
					name, cname)
				np = cname
			}
			ui := (int(cp[7]) << 12) | (int(cp[8]) << 6) | int(cp[9])

			if _, ok := cd.SkipWords(2); !ok {
				return errors.New("pfdump: EOR while extracting PFDUMP")
			}

			cp, ok = cd.GetWord()
			if !ok {
				return errors.New("pfdump: EOR while extracting PFDUMP")
			}
			mtime = mtimeFromWord(cp)

			sub := filepath.Join(baseDir, subdirName(ui))
			if err := os.MkdirAll(sub, 0777); err != nil {
				return errors.Wrapf(err, "pfdump: %s: mkdir", np)
			}

			var err error
			fname = filepath.Join(sub, np)
			inner, err = simh.NewWriter(fname)
			if err != nil {
				cd.SkipRecord()
				return errors.Wrapf(err, "pfdump: %s: open", fname)
			}
			icw = cdcrecord.NewWriter(inner)

			length -= 4

		case 3: // data
			if flag > 3 {
				break
			}
			for i := 0; i < length; i++ {
				cp, ok = cd.GetWord()
				if !ok {
					closeInner()
					return errors.New("pfdump: EOR while extracting PFDUMP")
				}
				if icw != nil {
					if err := icw.PutWord(cp); err != nil {
						closeInner()
						return errors.Wrap(err, "pfdump: inner write")
					}
				}
			}
			if flag == 1 && icw != nil {
				icw.WriteEOR()
			}
			if flag == 2 && icw != nil {
				icw.WriteEOF()
			}
			continue

		case 7: // end
			closeInner()
			if fname == "" {
				return errors.New("pfdump: no catalog entry in PFDUMP record")
			}
			outfile.SetMTime(fname, mtime)
			return nil

		default:
			// skip over other block types
		}

		if _, ok := cd.SkipWords(length); length > 0 && !ok {
			closeInner()
			return errors.New("pfdump: EOR while extracting PFDUMP")
		}
	}
}

const pruWords = 5 // CDC words per PRU chunk in DUMPPF data runs

// ExtractDumpPF extracts a DUMPPF-format record: a leading 7700 date
// table, a 7400 catalog table naming the single file, then PRU-chunked
// data runs each closed by a control-word trailer.
func ExtractDumpPF(cd *cdcrecord.Reader, name, baseDir string) error {
	cp, ok := cd.GetWord()
	if !ok || cp[0] != 077 || cp[1] != 0 {
		return errors.New("dumppf: no 7700 table")
	}
	length7700 := (int(cp[2]) << 6) | int(cp[3])
	if _, ok := cd.SkipWords(length7700); !ok {
		return errors.New("dumppf: EOR skipping 7700 table")
	}

	cp, ok = cd.GetWord()
	if !ok || cp[0] != 074 || cp[1] != 0 {
		return errors.New("dumppf: no 7400 table")
	}
	length7400 := (int(cp[2]) << 6) | int(cp[3])
	if length7400 < 16 {
		return errors.New("dumppf: 7400 table too short for a catalog entry")
	}

	if _, ok := cd.SkipWords(7); !ok {
		return errors.New("dumppf: EOR skipping to catalog entry")
	}
	cp, ok = cd.GetWord()
	if !ok {
		return errors.New("dumppf: EOR reading ui word")
	}
	ui := (int(cp[7]) << 12) | (int(cp[8]) << 6) | int(cp[9])

	if _, ok := cd.SkipWords(2); !ok {
		return errors.New("dumppf: EOR skipping to mtime word")
	}
	cp, ok = cd.GetWord()
	if !ok {
		return errors.New("dumppf: EOR reading mtime word")
	}
	mtime := mtimeFromWord(cp)

	if _, ok := cd.SkipWords(length7400 - 16); length7400 > 16 && !ok {
		return errors.New("dumppf: EOR skipping remainder of 7400 table")
	}

	sub := filepath.Join(baseDir, subdirName(ui))
	if err := os.MkdirAll(sub, 0777); err != nil {
		return errors.Wrapf(err, "dumppf: %s: mkdir", name)
	}
	fname := filepath.Join(sub, name)
	inner, err := simh.NewWriter(fname)
	if err != nil {
		cd.SkipRecord()
		return errors.Wrapf(err, "dumppf: %s: open", fname)
	}
	icw := cdcrecord.NewWriter(inner)
	defer inner.Close()

	for {
		cp, ok = cd.GetWord()
		if !ok {
			return errors.New("dumppf: EOR while extracting DUMPPF")
		}
		if cp[0] == 0 && cp[1] == 017 {
			icw.WriteEOF()
			break
		}

		pruSize := (int(cp[1]) << 12) | (int(cp[2]) << 6) | int(cp[3])
		wordCount := (int(cp[6]) << 12) | (int(cp[7]) << 6) | int(cp[8])
		_ = cp[9]

		got := 0
		for got < wordCount {
			chunk := pruWords
			if wordCount-got < chunk {
				chunk = wordCount - got
			}
			for i := 0; i < chunk; i++ {
				dw, ok := cd.GetWord()
				if !ok {
					return errors.New("dumppf: EOR mid data run")
				}
				if err := icw.PutWord(dw); err != nil {
					return errors.Wrap(err, "dumppf: inner write")
				}
			}
			got += chunk
		}

		trailer, ok := cd.GetWord()
		if !ok {
			return errors.New("dumppf: EOR reading data-run trailer")
		}
		if trailer[0] == 0 && trailer[1] == 017 {
			icw.WriteEOF()
			break
		}
		if wordCount < pruSize*pruWords {
			icw.WriteEOR()
		}
	}

	outfile.SetMTime(fname, mtime)
	return nil
}
