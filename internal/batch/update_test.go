package batch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/fmkit/internal/frontmatter"
	"github.com/starford/fmkit/internal/pathmeta"
	"github.com/starford/fmkit/internal/testutil"
)

func readHeader(t *testing.T, path string) frontmatter.Value {
	t.Helper()
	doc, err := frontmatter.Open(testutil.NewRecordingStore(), path)
	if err != nil {
		t.Fatalf("Open %s: %v", path, err)
	}
	return doc.Header()
}

func updateOpts(paths ...string) UpdateOptions {
	return UpdateOptions{
		Paths:    paths,
		Defaults: DefaultFields(),
		Logger:   testutil.Logger(),
	}
}

func TestUpdate_AllTransformations(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDoc(t, dir, "2023-08-30-diy-consensus.md",
		"---\ntitle: DIY Consensus\ncategories: podcasts\ndraft: true\n---\nBody stays.\n")

	res, err := Update(testutil.NewRecordingStore(), updateOpts(dir))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if diff := cmp.Diff(&UpdateResult{Processed: 1, Written: 1}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	want := frontmatter.Mapping()
	want.Set("title", frontmatter.String("DIY Consensus"))
	want.Set("categories", frontmatter.String("podcasts"))
	want.Set("draft", frontmatter.Bool(false))
	want.Set("showtoc", frontmatter.Bool(false))
	want.Set("slug", frontmatter.String("diy-consensus"))
	want.Set("aliases", frontmatter.Strings("/podcasts/2023/08/30/diy-consensus.html"))
	got := readHeader(t, path)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"title", "categories", "draft", "showtoc", "slug", "aliases"}, got.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(testutil.ReadDoc(t, path), "---\nBody stays.\n") {
		t.Errorf("body not preserved:\n%s", testutil.ReadDoc(t, path))
	}
}

func TestUpdate_SkipsMissingCategoryAndContinues(t *testing.T) {
	dir := t.TempDir()
	noCat := "---\ntitle: A\n---\nA\n"
	a := testutil.WriteDoc(t, dir, "2023-01-01-a.md", noCat)
	b := testutil.WriteDoc(t, dir, "2023-01-02-b.md", "---\ntitle: B\ncategories: blog\n---\nB\n")
	store := testutil.NewRecordingStore()
	logger, logs := testutil.CaptureLogger()

	opts := updateOpts(dir)
	opts.Logger = logger
	res, err := Update(store, opts)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if diff := cmp.Diff(&UpdateResult{Processed: 1, Written: 1, Skipped: 1}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ReadDoc(t, a); got != noCat {
		t.Errorf("skipped document was written: %q", got)
	}
	if diff := cmp.Diff([]string{b}, store.Writes()); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	if n := strings.Count(logs.String(), "level=WARN"); n != 1 {
		t.Errorf("warnings = %d, want 1:\n%s", n, logs.String())
	}
	if !strings.Contains(logs.String(), "unhandled category") {
		t.Errorf("diagnostic should name the reason:\n%s", logs.String())
	}
}

func TestUpdate_CategoryFromMergeKey(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDoc(t, dir, "2023-08-30-merged.md",
		"---\nshared: &shared\n  categories: podcasts\n<<: *shared\ntitle: Merged\n---\n")

	if _, err := UpdateDocument(testutil.NewRecordingStore(), path, updateOpts()); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	aliases, ok := readHeader(t, path).Get(KeyAliases)
	if !ok || !aliases.Equal(frontmatter.Strings("/podcasts/2023/08/30/merged.html")) {
		t.Errorf("aliases = %v", aliases.Items())
	}
}

func TestUpdate_CategoryMustBeSingleString(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDoc(t, dir, "2023-01-01-a.md", "---\ncategories: [a, b]\n---\n")

	_, err := UpdateDocument(testutil.NewRecordingStore(), path, updateOpts())
	if err == nil || !strings.Contains(err.Error(), "unhandled category") {
		t.Errorf("err = %v", err)
	}
}

func TestUpdate_NoPathMeta(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDoc(t, dir, "about.md", "---\ntitle: About\n---\n")

	res, err := Update(testutil.NewRecordingStore(), updateOpts(path))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Skipped != 1 || res.Written != 0 {
		t.Errorf("result = %+v", res)
	}

	// Defaults alone do not need a dated filename.
	opts := updateOpts(path)
	opts.SkipSlug, opts.SkipAlias = true, true
	res, err = Update(testutil.NewRecordingStore(), opts)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Written != 1 {
		t.Errorf("result = %+v", res)
	}
	if got, _ := readHeader(t, path).Get("draft"); !got.Equal(frontmatter.Bool(false)) {
		t.Errorf("draft = %v", got)
	}
}

func TestUpdate_SkipFlags(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDoc(t, dir, "2023-01-01-a.md", "---\ncategories: blog\n---\n")

	opts := updateOpts(path)
	opts.SkipDefaults = true
	opts.SkipAlias = true
	if _, err := Update(testutil.NewRecordingStore(), opts); err != nil {
		t.Fatal(err)
	}
	got := readHeader(t, path)
	if diff := cmp.Diff([]string{"categories", "slug"}, got.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_IdempotentSecondRun(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDoc(t, dir, "2023-01-01-a.md", "---\ncategories: blog\n---\nbody\n")

	if _, err := Update(testutil.NewRecordingStore(), updateOpts(dir)); err != nil {
		t.Fatal(err)
	}
	store := testutil.NewRecordingStore()
	res, err := Update(store, updateOpts(dir))
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Written != 0 || len(store.Writes()) != 0 {
		t.Errorf("second run result = %+v, writes = %v", res, store.Writes())
	}
}

func TestUpdate_OutDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "rewritten")
	src := testutil.WriteDoc(t, dir, "2023-01-01-a.md", "---\ncategories: blog\n---\n")
	testutil.WriteDoc(t, dir, "2023-01-02-b.md", "---\ncategories: blog\nshowtoc: false\ndraft: false\nslug: b\naliases:\n  - /blog/2023/01/02/b.html\n---\n")

	opts := updateOpts(dir)
	opts.OutDir = out
	res, err := Update(testutil.NewRecordingStore(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Written != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := testutil.ReadDoc(t, src); got != "---\ncategories: blog\n---\n" {
		t.Errorf("source modified: %q", got)
	}
	if got, _ := readHeader(t, filepath.Join(out, "2023-01-01-a.md")).Get("slug"); !got.Equal(frontmatter.String("a")) {
		t.Errorf("slug = %v", got)
	}
	if _, err := os.Stat(filepath.Join(out, "2023-01-02-b.md")); !errors.Is(err, os.ErrNotExist) {
		t.Error("unchanged document must not be copied to the output directory")
	}
}

func TestUpdate_NonMappingHeaderSkipped(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDoc(t, dir, "2023-01-01-a.md", "---\njust a string\n---\n")
	res, err := Update(testutil.NewRecordingStore(), updateOpts(dir))
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestUpdate_FatalErrorsAbort(t *testing.T) {
	t.Run("impossible date", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteDoc(t, dir, "2023-13-40-bad-date.md", "---\ncategories: blog\n---\n")
		_, err := Update(testutil.NewRecordingStore(), updateOpts(dir))
		if !errors.Is(err, pathmeta.ErrInvalidDate) {
			t.Errorf("err = %v, want ErrInvalidDate", err)
		}
	})
	t.Run("malformed header", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteDoc(t, dir, "2023-01-01-a.md", "---\ncategories: [blog\n---\n")
		testutil.WriteDoc(t, dir, "2023-01-02-b.md", "---\ncategories: blog\n---\n")
		store := testutil.NewRecordingStore()
		_, err := Update(store, updateOpts(dir))
		if !errors.Is(err, frontmatter.ErrMalformedHeader) {
			t.Errorf("err = %v, want ErrMalformedHeader", err)
		}
		if len(store.Writes()) != 0 {
			t.Errorf("run should stop before later documents, writes = %v", store.Writes())
		}
	})
}
