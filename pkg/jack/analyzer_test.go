package jack_test

import (
	"strings"
	"testing"

	"its-hmny.dev/nand2tetris/pkg/jack"
)

func TestAnalyzeTokens(t *testing.T) {
	analyzer := jack.NewAnalyzer(strings.NewReader("let x = 1;"))

	xml, err := analyzer.AnalyzeTokens()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "<tokens>\n" +
		"  <keyword> let </keyword>\n" +
		"  <identifier> x </identifier>\n" +
		"  <symbol> = </symbol>\n" +
		"  <integerConstant> 1 </integerConstant>\n" +
		"  <symbol> ; </symbol>\n" +
		"</tokens>\n"

	if xml != expected {
		t.Errorf("unexpected token dump\n--- got ---\n%s\n--- want ---\n%s", xml, expected)
	}
}

func TestAnalyzeClassTree(t *testing.T) {
	source := `class Main {
		function void main() {
			return;
		}
	}`

	analyzer := jack.NewAnalyzer(strings.NewReader(source))
	xml, err := analyzer.Analyze()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tag := range []string{
		"<class>", "</class>",
		"<subroutineDec>", "</subroutineDec>",
		"<parameterList>\n", "</parameterList>", // empty parameter list still wraps
		"<subroutineBody>", "</subroutineBody>",
		"<statements>", "</statements>",
		"<returnStatement>", "</returnStatement>",
	} {
		if !strings.Contains(xml, tag) {
			t.Errorf("expected output to contain %q, got:\n%s", tag, xml)
		}
	}
}

func TestAnalyzeIfWithoutElseClosesTag(t *testing.T) {
	source := `class Main {
		function void main() {
			if (true) {
				let x = 1;
			}
			return;
		}
	}`

	analyzer := jack.NewAnalyzer(strings.NewReader(source))
	xml, err := analyzer.Analyze()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opens := strings.Count(xml, "<ifStatement>")
	closes := strings.Count(xml, "</ifStatement>")
	if opens != 1 || closes != 1 {
		t.Fatalf("expected exactly one open/close pair for the one-armed if, got %d/%d\n%s", opens, closes, xml)
	}

	// The closing tag must appear after the then-block's own closing '</statements>', i.e. it
	// isn't emitted early just because there's no 'else' branch to follow.
	openIdx := strings.Index(xml, "<ifStatement>")
	closeIdx := strings.Index(xml, "</ifStatement>")
	stmtsCloseIdx := strings.Index(xml, "</statements>")
	if stmtsCloseIdx < openIdx || stmtsCloseIdx > closeIdx {
		t.Fatalf("expected '</statements>' to fall between <ifStatement> and </ifStatement>")
	}
}

func TestAnalyzeEscapesSpecialChars(t *testing.T) {
	source := `class Main {
		function void main() {
			do Output.printString("a < b & c > d");
			return;
		}
	}`

	analyzer := jack.NewAnalyzer(strings.NewReader(source))
	xml, err := analyzer.Analyze()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(xml, "&lt;") || !strings.Contains(xml, "&gt;") || !strings.Contains(xml, "&amp;") {
		t.Errorf("expected escaped entities in string constant, got:\n%s", xml)
	}
}
