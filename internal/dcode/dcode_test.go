package dcode

import "testing"

func TestNewCharset63Swap(t *testing.T) {
	base := New(false)
	if base.Base[063] != '%' {
		t.Fatalf("default base[063] = %q, want %%", base.Base[063])
	}
	if base.Esc74[04] != ":" {
		t.Fatalf("default esc74[04] = %q, want :", base.Esc74[04])
	}

	alt := New(true)
	if alt.Base[063] != ':' {
		t.Fatalf("charset63 base[063] = %q, want :", alt.Base[063])
	}
	if alt.Esc74[04] != "%" {
		t.Fatalf("charset63 esc74[04] = %q, want %%", alt.Esc74[04])
	}
	// New must not mutate the package-level tables for later callers.
	if base2 := New(false); base2.Base[063] != '%' {
		t.Fatalf("New(false) mutated shared state: got %q", base2.Base[063])
	}
}

func TestCopyAlnumStopsOnNonAlnum(t *testing.T) {
	m := New(false)
	// codes: 1='A', 2='B', 45=' ' (non-alnum, code>36)
	src := []byte{1, 2, 45, 3}
	got := m.Copy(src, len(src), Alnum)
	if got != "AB" {
		t.Fatalf("Copy = %q, want AB", got)
	}
}

func TestCopyTextCollapsesEOL(t *testing.T) {
	m := New(false)
	// one word (10 codes): "AB" then all-null padding to word boundary.
	src := make([]byte, 20)
	src[0], src[1] = 1, 2
	src[10], src[11] = 1, 1
	got := m.Copy(src, 20, Text)
	if got != "AB  AA" {
		t.Fatalf("Copy Text = %q, want %q", got, "AB  AA")
	}
}

func TestFormatWordsPadsShortInput(t *testing.T) {
	m := New(false)
	got := m.FormatWords([]byte{1, 2, 3})
	if len(got) == 0 {
		t.Fatalf("FormatWords returned empty string")
	}
	// octal section for 3 real chars (2 digits each) plus 17 blank pairs,
	// plus a space every 10th char, then the 20-char display-code section.
	wantLen := 20*2 + 2 + 20
	if len(got) != wantLen {
		t.Fatalf("len(FormatWords) = %d, want %d (%q)", len(got), wantLen, got)
	}
}

func TestIsTimestamp(t *testing.T) {
	// "12/03/04." in display code: digit codes are 27..36 for '0'..'9',
	// and separators are display-code values (050='/' , 057='.').
	const slash, dot byte = 050, 057
	d := func(n int) byte { return byte(27 + n) }
	ts := []byte{d(1), d(2), slash, d(0), d(3), slash, d(0), d(4), dot}
	if !IsTimestamp(ts, slash) {
		t.Fatalf("expected IsTimestamp true")
	}
	if IsTimestamp(ts, dot) {
		t.Fatalf("expected IsTimestamp false for wrong separator")
	}
}
