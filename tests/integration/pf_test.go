// Package integration provides integration tests for pf commands.
package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	pfBinary     string
	pfBinaryOnce sync.Once
	pfBinaryErr  error
)

// getPFBinary builds the pf binary once and returns its path.
func getPFBinary(t *testing.T) string {
	t.Helper()
	pfBinaryOnce.Do(func() {
		// Get module root directory
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			pfBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		// Build pf to a temp location
		tmpDir, err := os.MkdirTemp("", "pf-test-*")
		if err != nil {
			pfBinaryErr = err
			return
		}
		pfBinary = filepath.Join(tmpDir, "pf")

		cmd := exec.Command("go", "build", "-o", pfBinary, "./cmd/pf")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			pfBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if pfBinaryErr != nil {
		t.Fatalf("failed to build pf: %v", pfBinaryErr)
	}
	return pfBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// setupTestHome creates temp config and data directories with the given
// config body. Returns the directory to use as XDG_CONFIG_HOME and the
// data directory.
func setupTestHome(t *testing.T, configBody string) (configHome, dataDir string) {
	t.Helper()
	tmpDir := t.TempDir()
	configHome = filepath.Join(tmpDir, "config")
	dataDir = filepath.Join(tmpDir, "data")

	cfgDir := filepath.Join(configHome, "paperfeed")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	body := "data_dir: " + dataDir + "\n" + configBody
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return configHome, dataDir
}

// runPF executes pf with the given args against a test config home.
func runPF(t *testing.T, configHome string, args ...string) (string, error) {
	t.Helper()
	pf := getPFBinary(t)
	cmd := exec.Command(pf, args...)
	cmd.Dir = t.TempDir() // keep any stray .env out of reach
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+configHome,
		"ZOTERO_API_KEY=",
		"ZOTERO_LIBRARY_ID=",
	)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Evolutionary dynamics of test populations</title>
      <link>https://example.org/papers/1</link>
      <guid>https://doi.org/10.1234/testpaper.1</guid>
      <description>A study of populations.</description>
      <pubDate>Mon, 03 Mar 2025 00:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Retraction notice</title>
      <link>https://example.org/papers/2</link>
      <guid>https://doi.org/10.1234/testpaper.2</guid>
      <description>Retraction of an earlier study.</description>
    </item>
  </channel>
</rss>`

func TestFetchAndList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	configHome, _ := setupTestHome(t, `feeds:
  - name: Test Feed
    url: `+server.URL+`
filters:
  exclude:
    - retraction
`)

	out, err := runPF(t, configHome, "fetch")
	if err != nil {
		t.Fatalf("fetch failed: %v\n%s", err, out)
	}

	var result struct {
		Items    int `json:"items"`
		New      int `json:"new"`
		Filtered int `json:"filtered"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("parsing fetch output: %v\n%s", err, out)
	}
	if result.Items != 2 || result.New != 1 || result.Filtered != 1 {
		t.Errorf("fetch result = %+v, want 2 items, 1 new, 1 filtered", result)
	}

	// A second fetch must not re-collect anything.
	out, err = runPF(t, configHome, "fetch")
	if err != nil {
		t.Fatalf("second fetch failed: %v\n%s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatal(err)
	}
	if result.New != 0 {
		t.Errorf("second fetch collected %d new items, want 0", result.New)
	}

	out, err = runPF(t, configHome, "list")
	if err != nil {
		t.Fatalf("list failed: %v\n%s", err, out)
	}
	var papers []map[string]any
	if err := json.Unmarshal([]byte(out), &papers); err != nil {
		t.Fatalf("parsing list output: %v\n%s", err, out)
	}
	if len(papers) != 1 {
		t.Fatalf("list returned %d papers, want 1", len(papers))
	}
	if papers[0]["doi"] != "10.1234/testpaper.1" {
		t.Errorf("doi = %v, want 10.1234/testpaper.1", papers[0]["doi"])
	}
}

func TestFetchNoFeedsConfigured(t *testing.T) {
	configHome, _ := setupTestHome(t, "")

	out, err := runPF(t, configHome, "fetch")
	if err == nil {
		t.Fatalf("fetch should fail without feeds, got:\n%s", out)
	}
	if !strings.Contains(out, "no feeds configured") {
		t.Errorf("output should mention missing feeds:\n%s", out)
	}
}

func TestImportAndExportBibtex(t *testing.T) {
	configHome, dataDir := setupTestHome(t, "")

	exportFile := filepath.Join(t.TempDir(), "paperpile.json")
	exportJSON := `[{
		"_id": "pp1",
		"citekey": "Smith2024-ab",
		"doi": "10.5555/imported.1",
		"title": "An Imported Paper",
		"journal": "Journal of Imports",
		"published": {"year": "2024", "month": "6"},
		"author": [{"first": "Ann", "last": "Smith"}]
	}]`
	if err := os.WriteFile(exportFile, []byte(exportJSON), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runPF(t, configHome, "import", "paperpile", exportFile)
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}
	var imported struct {
		Imported   int `json:"imported"`
		Duplicates int `json:"duplicates"`
	}
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatal(err)
	}
	if imported.Imported != 1 {
		t.Errorf("imported = %d, want 1", imported.Imported)
	}

	// Importing again must detect the duplicate by DOI.
	out, err = runPF(t, configHome, "import", "paperpile", exportFile)
	if err != nil {
		t.Fatalf("second import failed: %v\n%s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatal(err)
	}
	if imported.Imported != 0 || imported.Duplicates != 1 {
		t.Errorf("second import = %+v, want 0 imported, 1 duplicate", imported)
	}

	out, err = runPF(t, configHome, "export", "bibtex")
	if err != nil {
		t.Fatalf("export bibtex failed: %v\n%s", err, out)
	}
	var bib struct {
		Appended int    `json:"appended"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal([]byte(out), &bib); err != nil {
		t.Fatal(err)
	}
	if bib.Appended != 1 {
		t.Errorf("appended = %d, want 1", bib.Appended)
	}

	content, err := os.ReadFile(filepath.Join(dataDir, "papers.bib"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "@article{Smith2024-ab,") {
		t.Errorf("bib file missing entry:\n%s", content)
	}

	// A second export must skip the existing entry.
	out, err = runPF(t, configHome, "export", "bibtex")
	if err != nil {
		t.Fatalf("second export failed: %v\n%s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &bib); err != nil {
		t.Fatal(err)
	}
	if bib.Appended != 0 {
		t.Errorf("second export appended %d entries, want 0", bib.Appended)
	}
}

func TestFilterAndExportJSON(t *testing.T) {
	configHome, _ := setupTestHome(t, "")

	exportFile := filepath.Join(t.TempDir(), "paperpile.json")
	exportJSON := `[
		{"title": "Recent Paper", "author": [{"last": "A"}], "published": {"year": 2025}},
		{"title": "Old Paper", "author": [{"last": "B"}], "published": {"year": 2019}}
	]`
	if err := os.WriteFile(exportFile, []byte(exportJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if out, err := runPF(t, configHome, "import", "paperpile", exportFile); err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}

	out, err := runPF(t, configHome, "filter", "--min-date", "2024")
	if err != nil {
		t.Fatalf("filter failed: %v\n%s", err, out)
	}
	var stats struct {
		Input  int `json:"input"`
		Kept   int `json:"kept"`
		TooOld int `json:"too_old"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("parsing filter output: %v\n%s", err, out)
	}
	if stats.Input != 2 || stats.Kept != 1 || stats.TooOld != 1 {
		t.Errorf("filter stats = %+v, want 2 input, 1 kept, 1 too old", stats)
	}

	out, err = runPF(t, configHome, "export", "json")
	if err != nil {
		t.Fatalf("export json failed: %v\n%s", err, out)
	}
	var papers []map[string]any
	if err := json.Unmarshal([]byte(out), &papers); err != nil {
		t.Fatalf("parsing export json output: %v\n%s", err, out)
	}
	if len(papers) != 1 || papers[0]["title"] != "Recent Paper" {
		t.Errorf("export json = %v, want only the recent paper", papers)
	}
}

func TestFilterInvalidMinDate(t *testing.T) {
	configHome, _ := setupTestHome(t, "")

	out, err := runPF(t, configHome, "filter", "--min-date", "yesterday")
	if err == nil {
		t.Fatalf("filter should reject an unparseable min-date, got:\n%s", out)
	}
	if !strings.Contains(out, "min_date") {
		t.Errorf("output should mention the invalid min_date:\n%s", out)
	}
}

func TestExportZoteroWithoutLibrary(t *testing.T) {
	configHome, _ := setupTestHome(t, "")

	out, err := runPF(t, configHome, "export", "zotero")
	if err == nil {
		t.Fatalf("export zotero should fail without a library, got:\n%s", out)
	}
	if !strings.Contains(out, "library_id") {
		t.Errorf("output should mention the missing library:\n%s", out)
	}
}

func TestHistoryEmpty(t *testing.T) {
	configHome, dataDir := setupTestHome(t, "")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	out, err := runPF(t, configHome, "history")
	if err != nil {
		t.Fatalf("history failed: %v\n%s", err, out)
	}
	var runs []map[string]any
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("parsing history output: %v\n%s", err, out)
	}
	if len(runs) != 0 {
		t.Errorf("history = %v, want empty", runs)
	}
}
