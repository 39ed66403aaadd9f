package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadReport_PlainText(t *testing.T) {
	path := writeReport(t, "report.txt", "No acute intracranial hemorrhage.")

	text, err := ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport() error: %v", err)
	}
	if text != "No acute intracranial hemorrhage." {
		t.Errorf("ReadReport() = %q", text)
	}
}

func TestReadReport_HTMLExtractsVisibleText(t *testing.T) {
	html := `<html><head><title>Report</title><style>p{color:red}</style></head>
<body><script>alert(1)</script><p>No acute hemorrhage.</p><p>Midline shift is seen.</p></body></html>`
	path := writeReport(t, "report.html", html)

	text, err := ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport() error: %v", err)
	}

	if !strings.Contains(text, "No acute hemorrhage.") || !strings.Contains(text, "Midline shift is seen.") {
		t.Errorf("visible text missing from %q", text)
	}
	for _, hidden := range []string{"alert(1)", "color:red", "Report"} {
		if strings.Contains(text, hidden) {
			t.Errorf("non-content text %q leaked into %q", hidden, text)
		}
	}
}

func TestReadReport_MissingFile(t *testing.T) {
	if _, err := ReadReport("/does/not/exist.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}
