package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/testutil"
)

type testEntry struct {
	name    string
	data    []byte
	comment string
}

// writeArchive creates path with the given entries and closes it
func writeArchive(t *testing.T, path string, mode WriteMode, level int, password, comment string, entries ...testEntry) {
	t.Helper()
	w, err := OpenWriter(path, mode, level)
	if err != nil {
		t.Fatalf("OpenWriter(%s): %v", path, err)
	}
	for _, e := range entries {
		if err := w.Append(e.data, e.name, password, e.comment); err != nil {
			t.Fatalf("Append(%s): %v", e.name, err)
		}
	}
	if err := w.Close(comment); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func openReader(t *testing.T, path string) *Reader {
	t.Helper()
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader(%s): %v", path, err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// readAll returns every entry's content keyed by name
func readAll(t *testing.T, r *Reader, password string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	var err error
	for err = r.LocateFirst(); err == nil; err = r.LocateNext() {
		info, ierr := r.Current()
		if ierr != nil {
			t.Fatalf("Current: %v", ierr)
		}
		data, rerr := r.ReadCurrent(password)
		if rerr != nil {
			t.Fatalf("ReadCurrent(%s): %v", info.Name, rerr)
		}
		out[info.Name] = data
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("iteration ended with %v", err)
	}
	return out
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// TestWriterReaderRoundTrip tests plain and encrypted entries at several levels
func TestWriterReaderRoundTrip(t *testing.T) {
	entries := []testEntry{
		{name: "main.sym", data: []byte("print('hello')\n")},
		{name: "lib/util.sym", data: bytes.Repeat([]byte("local x = 1\n"), 500), comment: "helpers"},
		{name: "資料/檔案.txt", data: []byte("unicode name")},
		{name: "empty.txt", data: nil},
		{name: "blob.bin", data: randomBytes(8192, 1)},
	}

	tests := []struct {
		name     string
		level    int
		password string
	}{
		{"stored", 0, ""},
		{"fast", 1, ""},
		{"best", 9, ""},
		{"encrypted stored", 0, "pw"},
		{"encrypted best", 9, "correct horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.zip")
			writeArchive(t, path, ModeCreate, tt.level, tt.password, "global comment", entries...)

			r := openReader(t, path)
			if r.Entries() != len(entries) {
				t.Fatalf("Entries() = %d, want %d", r.Entries(), len(entries))
			}
			if r.Comment() != "global comment" {
				t.Errorf("Comment() = %q", r.Comment())
			}

			got := readAll(t, r, tt.password)
			for _, e := range entries {
				if !bytes.Equal(got[e.name], e.data) {
					t.Errorf("entry %s: content mismatch", e.name)
				}
			}
		})
	}
}

// TestEntryInfoFields tests metadata recorded for each entry
func TestEntryInfoFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.zip")
	stamp := time.Date(2024, time.March, 15, 10, 30, 44, 0, time.Local)

	w, err := OpenWriter(path, ModeCreate, 9)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	w.now = func() time.Time { return stamp }

	compressible := bytes.Repeat([]byte("abcd"), 1000)
	noise := randomBytes(4096, 2)
	if err := w.Append(compressible, "text.txt", "", "a comment"); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(noise, "noise.bin", "secret", ""); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(""); err != nil {
		t.Fatal(err)
	}

	r := openReader(t, path)

	info, err := r.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if info.Method != domain.MethodDeflate {
		t.Errorf("compressible entry method = %v, want deflate", info.Method)
	}
	if info.CompressedSize >= info.Size || info.Size != uint64(len(compressible)) {
		t.Errorf("sizes compressed=%d size=%d", info.CompressedSize, info.Size)
	}
	if !info.IsUTF8() || info.IsEncrypted() {
		t.Errorf("flags = %#x", info.Flags)
	}
	if info.VersionMadeBy != 36 || info.VersionNeeded != 20 {
		t.Errorf("versions = %d/%d", info.VersionMadeBy, info.VersionNeeded)
	}
	if !info.ModTime.Equal(stamp) {
		t.Errorf("ModTime = %v, want %v", info.ModTime, stamp)
	}
	if info.Comment != "a comment" || info.CommentSize != len("a comment") {
		t.Errorf("comment = %q (%d)", info.Comment, info.CommentSize)
	}

	if err := r.LocateNext(); err != nil {
		t.Fatalf("LocateNext: %v", err)
	}
	info, err = r.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if info.Method != domain.MethodStore {
		t.Errorf("incompressible entry method = %v, want store", info.Method)
	}
	if !info.IsEncrypted() {
		t.Error("entry written with a password should be encrypted")
	}
	if info.CompressedSize != uint64(len(noise))+encryptionHeaderLen {
		t.Errorf("CompressedSize = %d, want %d", info.CompressedSize, len(noise)+encryptionHeaderLen)
	}
}

// TestInfoTwoCall tests sizing buffers with a first empty call
func TestInfoTwoCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.zip")
	writeArchive(t, path, ModeCreate, 6, "", "", testEntry{name: "dir/long-name.txt", data: []byte("x"), comment: "note"})

	r := openReader(t, path)

	info, err := r.Info(nil, nil)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "" || info.NameSize != len("dir/long-name.txt") || info.CommentSize != 4 {
		t.Fatalf("first call = %+v", info)
	}

	info, err = r.Info(make([]byte, info.NameSize), make([]byte, info.CommentSize))
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "dir/long-name.txt" || info.Comment != "note" {
		t.Errorf("second call name=%q comment=%q", info.Name, info.Comment)
	}

	info, _ = r.Info(make([]byte, 3), nil)
	if info.Name != "dir" || info.NameSize != len("dir/long-name.txt") {
		t.Errorf("short buffer name=%q size=%d", info.Name, info.NameSize)
	}
}

// TestContentBufferTooSmall tests that Content refuses a short buffer
func TestContentBufferTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.zip")
	writeArchive(t, path, ModeCreate, 9, "", "", testEntry{name: "a", data: []byte("hello")})

	r := openReader(t, path)
	if err := r.Content(make([]byte, 4), ""); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Content(short) = %v, want ErrBufferTooSmall", err)
	}
	buf := make([]byte, 16)
	if err := r.Content(buf, ""); err != nil {
		t.Fatalf("Content: %v", err)
	}
	if string(buf[:5]) != "hello" {
		t.Errorf("content = %q", buf[:5])
	}
}

// TestPasswords tests missing and wrong passwords
func TestPasswords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enc.zip")
	data := bytes.Repeat([]byte("secret data "), 100)
	writeArchive(t, path, ModeCreate, 9, "right", "", testEntry{name: "s.txt", data: data})

	r := openReader(t, path)

	if _, err := r.ReadCurrent(""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("no password: %v, want ErrPasswordRequired", err)
	}
	if _, err := r.ReadCurrent("wrong"); !errors.Is(err, domain.ErrArchiveFormat) {
		t.Errorf("wrong password: %v, want ErrArchiveFormat", err)
	}
	got, err := r.ReadCurrent("right")
	if err != nil {
		t.Fatalf("right password: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("decrypted content mismatch")
	}
}

// TestNavigation tests LocateName, Pos and Locate
func TestNavigation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.zip")
	writeArchive(t, path, ModeCreate, 9, "", "",
		testEntry{name: "a.txt", data: []byte("a")},
		testEntry{name: `sub\b.txt`, data: []byte("b")},
		testEntry{name: "sub/C.txt", data: []byte("c")},
	)

	r := openReader(t, path)

	if err := r.LocateName(`sub\b.txt`); err != nil {
		t.Fatalf("LocateName with backslash: %v", err)
	}
	info, _ := r.Current()
	if info.Name != "sub/b.txt" {
		t.Errorf("stored name = %q, want sub/b.txt", info.Name)
	}
	pos, err := r.Pos()
	if err != nil {
		t.Fatalf("Pos: %v", err)
	}
	if r.Offset() != pos.DirOffset || pos.FileIndex != 1 {
		t.Errorf("Pos = %+v, Offset = %d", pos, r.Offset())
	}

	err = r.LocateName("sub/c.txt")
	if !errors.Is(err, ErrEntryNotFound) || !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("case-sensitive miss = %v", err)
	}
	if info, _ := r.Current(); info.Name != "sub/b.txt" {
		t.Errorf("cursor moved on miss to %q", info.Name)
	}

	if err := r.LocateFirst(); err != nil {
		t.Fatal(err)
	}
	if err := r.Locate(pos); err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if data, _ := r.ReadCurrent(""); string(data) != "b" {
		t.Errorf("after Locate content = %q", data)
	}

	bad := pos
	bad.DirOffset++
	if err := r.Locate(bad); err == nil {
		t.Error("Locate accepted a stale position")
	}

	// past the end
	r.LocateName("sub/C.txt")
	if err := r.LocateNext(); !errors.Is(err, io.EOF) {
		t.Errorf("LocateNext at end = %v", err)
	}
	if _, err := r.Current(); !errors.Is(err, ErrNoCurrentEntry) {
		t.Errorf("Current past end = %v", err)
	}
	if r.Offset() != 0 {
		t.Errorf("Offset past end = %d", r.Offset())
	}
}

// TestReaderClose tests that closing twice is harmless and blocks use
func TestReaderClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.zip")
	writeArchive(t, path, ModeCreate, 9, "", "", testEntry{name: "a", data: []byte("a")})

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := r.LocateFirst(); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("LocateFirst after Close = %v", err)
	}
	if _, err := r.ReadCurrent(""); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("ReadCurrent after Close = %v", err)
	}
}

// TestWriterClose tests idempotent Close and use after Close
func TestWriterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.zip")
	w, err := OpenWriter(path, ModeCreate, 9)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(""); err != nil {
		t.Fatal(err)
	}
	if err := w.Close("ignored"); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Append([]byte("x"), "x", "", ""); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Append after Close = %v", err)
	}
}

// TestOpenWriterValidation tests level and mode checks
func TestOpenWriterValidation(t *testing.T) {
	dir := t.TempDir()

	for _, level := range []int{-1, 10} {
		path := filepath.Join(dir, "bad.zip")
		if _, err := OpenWriter(path, ModeCreate, level); !errors.Is(err, ErrInvalidLevel) {
			t.Errorf("level %d: %v", level, err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("level %d created the file", level)
		}
	}

	if _, err := OpenWriter(filepath.Join(dir, "m.zip"), WriteMode(7), 5); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("bad mode: %v", err)
	}
	if _, err := OpenWriter(filepath.Join(dir, "missing.zip"), ModeAppend, 5); err == nil {
		t.Error("append to a missing archive should fail")
	}

	w, err := OpenWriter(filepath.Join(dir, "n.zip"), ModeCreate, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close("")
	if err := w.Append([]byte("x"), "", "", ""); !errors.Is(err, domain.ErrArchiveFormat) {
		t.Errorf("empty name: %v", err)
	}
	if err := w.Append([]byte("x"), strings.Repeat("n", 70000), "", ""); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("long name: %v", err)
	}
}

// TestParseWriteMode tests the mode strings
func TestParseWriteMode(t *testing.T) {
	tests := []struct {
		in      string
		want    WriteMode
		wantErr bool
	}{
		{"w", ModeCreate, false},
		{"", ModeCreate, false},
		{"w+", ModeCreateAfter, false},
		{"a", ModeAppend, false},
		{"r", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWriteMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWriteMode(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseWriteMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && tt.in != "" && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

// TestAppendMode tests adding entries to an existing archive
func TestAppendMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.zip")
	writeArchive(t, path, ModeCreate, 9, "", "first comment",
		testEntry{name: "one.txt", data: []byte("one")},
		testEntry{name: "two.txt", data: bytes.Repeat([]byte("two"), 300)},
	)

	w, err := OpenWriter(path, ModeAppend, 9)
	if err != nil {
		t.Fatalf("OpenWriter(append): %v", err)
	}
	if w.Entries() != 2 {
		t.Errorf("Entries() after open = %d, want 2", w.Entries())
	}
	if err := w.Append([]byte("three"), "three.txt", "pw", ""); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(""); err != nil {
		t.Fatal(err)
	}

	r := openReader(t, path)
	if r.Entries() != 3 {
		t.Fatalf("Entries() = %d, want 3", r.Entries())
	}
	if r.Comment() != "first comment" {
		t.Errorf("comment not kept: %q", r.Comment())
	}
	if r.PayloadSize() != r.Size() {
		t.Errorf("PayloadSize = %d, size = %d", r.PayloadSize(), r.Size())
	}

	if err := r.LocateName("two.txt"); err != nil {
		t.Fatal(err)
	}
	if data, err := r.ReadCurrent(""); err != nil || !bytes.Equal(data, bytes.Repeat([]byte("two"), 300)) {
		t.Errorf("two.txt after append: %v", err)
	}
	if err := r.LocateName("three.txt"); err != nil {
		t.Fatal(err)
	}
	if data, err := r.ReadCurrent("pw"); err != nil || string(data) != "three" {
		t.Errorf("three.txt = %q, %v", data, err)
	}
}

// TestEmptyArchive tests an archive with no entries
func TestEmptyArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	writeArchive(t, path, ModeCreate, 9, "", "")

	r := openReader(t, path)
	if r.Entries() != 0 {
		t.Errorf("Entries() = %d", r.Entries())
	}
	if err := r.LocateFirst(); !errors.Is(err, io.EOF) {
		t.Errorf("LocateFirst = %v, want io.EOF", err)
	}
	if r.PayloadSize() != endRecordLen {
		t.Errorf("PayloadSize = %d, want %d", r.PayloadSize(), endRecordLen)
	}
}

// TestOpenReaderNotArchive tests files without an end record
func TestOpenReaderNotArchive(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	for name, content := range map[string][]byte{
		"tiny.bin":  []byte("PK"),
		"plain.txt": bytes.Repeat([]byte("not a zip "), 100),
	} {
		path := testutil.CreateTestFile(t, dir, name, content)
		_, err := OpenReader(path)
		if !errors.Is(err, ErrNoArchive) || !errors.Is(err, domain.ErrArchiveFormat) {
			t.Errorf("%s: %v, want ErrNoArchive", name, err)
		}
	}

	if _, err := OpenReader(filepath.Join(dir, "missing.zip")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing file: %v", err)
	}
}

// TestCorruptedEntry tests CRC verification
func TestCorruptedEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	writeArchive(t, path, ModeCreate, 0, "", "", testEntry{name: "a.txt", data: []byte("abcdefgh")})

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// stored data starts right after the 30-byte header and 5-byte name
	raw[localHeaderLen+5] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	r := openReader(t, path)
	if _, err := r.ReadCurrent(""); !errors.Is(err, ErrChecksum) {
		t.Errorf("ReadCurrent = %v, want ErrChecksum", err)
	}
}

// TestReadableByArchiveZip tests that archive/zip accepts our output
func TestReadableByArchiveZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "std.zip")
	entries := []testEntry{
		{name: "main.sym", data: bytes.Repeat([]byte("return 1\n"), 50)},
		{name: "é/ü.txt", data: []byte("accents")},
		{name: "noise", data: randomBytes(1000, 3)},
	}
	writeArchive(t, path, ModeCreate, 9, "", "std", entries...)

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("zip.OpenReader: %v", err)
	}
	defer zr.Close()

	if zr.Comment != "std" || len(zr.File) != len(entries) {
		t.Fatalf("comment=%q files=%d", zr.Comment, len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != entries[i].name || f.NonUTF8 {
			t.Errorf("file %d name=%q nonUTF8=%v", i, f.Name, f.NonUTF8)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if !bytes.Equal(data, entries[i].data) {
			t.Errorf("%s: content mismatch", f.Name)
		}
	}
}

// TestReadsArchiveZipOutput tests reading an archive written by archive/zip
func TestReadsArchiveZipOutput(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{"x/one.txt": "one", "two.txt": strings.Repeat("two ", 100)} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(f, body)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "fromstd.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	r := openReader(t, path)
	got := readAll(t, r, "")
	if string(got["x/one.txt"]) != "one" || string(got["two.txt"]) != strings.Repeat("two ", 100) {
		t.Errorf("unexpected contents: %v", got)
	}
}

// TestDecodeText tests legacy code page names
func TestDecodeText(t *testing.T) {
	tests := []struct {
		raw   []byte
		flags uint16
		want  string
	}{
		{[]byte("plain"), 0, "plain"},
		{[]byte{0x82, 't', 0x82}, 0, "été"},
		{[]byte{0x81, 'b', 'e', 'r'}, 0, "über"},
		{[]byte("é"), flagUTF8, "é"},
	}
	for _, tt := range tests {
		if got := decodeText(tt.raw, tt.flags); got != tt.want {
			t.Errorf("decodeText(%q, %#x) = %q, want %q", tt.raw, tt.flags, got, tt.want)
		}
	}
}

// TestDosDateTime tests the packed DOS timestamp fields
func TestDosDateTime(t *testing.T) {
	stamp := time.Date(2024, time.March, 15, 10, 30, 44, 0, time.Local)
	date, tm := DosDateTime(stamp)

	if want := uint16(44<<9 | 3<<5 | 15); date != want {
		t.Errorf("DosDate = %#x, want %#x", date, want)
	}
	if want := uint16(10<<11 | 30<<5 | 22); tm != want {
		t.Errorf("DosTime = %#x, want %#x", tm, want)
	}
	if got := ParseDosDateTime(date, tm); !got.Equal(stamp) {
		t.Errorf("ParseDosDateTime = %v, want %v", got, stamp)
	}

	// odd seconds lose their low bit
	odd := time.Date(2000, time.January, 1, 0, 0, 59, 0, time.Local)
	if got := ParseDosDateTime(DosDateTime(odd)); got.Second() != 58 {
		t.Errorf("odd second round-trip = %d", got.Second())
	}

	old := time.Date(1970, time.January, 1, 12, 0, 0, 0, time.Local)
	if d, tm := DosDateTime(old); d != 1<<5|1 || tm != 0 {
		t.Errorf("pre-1980 = %#x %#x", d, tm)
	}

	for _, year := range []int{2107, 2108, 2200} {
		d, tm := DosDateTime(time.Date(year, time.June, 1, 8, 0, 0, 0, time.Local))
		got := ParseDosDateTime(d, tm)
		if got.Year() != 2107 {
			t.Errorf("year %d packed as %d", year, got.Year())
		}
		if year > 2107 && (got.Month() != time.December || got.Day() != 31 || got.Hour() != 23) {
			t.Errorf("year %d clamped to %v, want 2107-12-31 23:59:58", year, got)
		}
	}
}

// TestZipCipherSymmetry tests that sealing then opening restores the payload
func TestZipCipherSymmetry(t *testing.T) {
	plain := []byte("the quick brown fox")
	data := append([]byte(nil), plain...)

	header, err := sealEntry(data, "pw", 0xAB)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(data, plain) {
		t.Fatal("payload was not encrypted")
	}

	sealed := append(header, data...)
	got, err := openEntry(append([]byte(nil), sealed...), "pw", 0xAB)
	if err != nil {
		t.Fatalf("openEntry: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("openEntry = %q", got)
	}

	if _, err := openEntry([]byte("short"), "pw", 0xAB); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("short data: %v", err)
	}
}
