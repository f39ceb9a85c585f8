package providers

import "testing"

func TestNormalizeCLIModelArg(t *testing.T) {
	cases := []struct {
		provider string
		model    string
		want     string
	}{
		{"codex-cli", "codex", ""},
		{"gemini-cli", "gemini", ""},
		{"claude-cli", "claude", ""},
		{"codex-cli", "auto", ""},
		{"codex-cli", "default", ""},
		{"codex-cli", "  ", ""},
		{"codex-cli", "gpt-5-codex", "gpt-5-codex"},
		{"claude-cli", "opus", "opus"},
	}
	for _, c := range cases {
		if got := normalizeCLIModelArg(c.provider, c.model); got != c.want {
			t.Errorf("normalizeCLIModelArg(%q, %q) = %q, want %q", c.provider, c.model, got, c.want)
		}
	}
}

func TestIsCLIModelError(t *testing.T) {
	cases := []struct {
		stdout, stderr string
		want           bool
	}{
		{"", "inaccessible model: gpt-5.3-codex", true},
		{"", "this is not a supported model for codex", true},
		{"", "invalid model", true},
		{"", "the model does not exist", true},
		{"", "network error", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := isCLIModelError(c.stdout, c.stderr); got != c.want {
			t.Errorf("isCLIModelError(%q, %q) = %v, want %v", c.stdout, c.stderr, got, c.want)
		}
	}
}

func TestParseCLIOutputTextUnwrapsKnownKeys(t *testing.T) {
	for _, key := range []string{"result", "response", "output", "answer", "text", "message"} {
		stdout := `{"` + key + `": "hello from ` + key + `"}`
		got := parseCLIOutputText(stdout)
		want := "hello from " + key
		if got != want {
			t.Errorf("key %s: parseCLIOutputText(%q) = %q, want %q", key, stdout, got, want)
		}
	}
}

func TestParseCLIOutputTextUnwrapsContentArray(t *testing.T) {
	stdout := `{"content": [{"type": "text", "text": "first"}, {"text": "second"}]}`
	got := parseCLIOutputText(stdout)
	want := "first\nsecond"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseCLIOutputTextFallsBackToRawText(t *testing.T) {
	got := parseCLIOutputText("  plain transcript line  ")
	if got != "plain transcript line" {
		t.Errorf("got %q", got)
	}
}

func TestParseCLIOutputTextEmptyStdout(t *testing.T) {
	if got := parseCLIOutputText("   "); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestClampInt(t *testing.T) {
	if got := clampInt(5, 10, 180); got != 10 {
		t.Errorf("expected floor 10, got %d", got)
	}
	if got := clampInt(500, 10, 180); got != 180 {
		t.Errorf("expected ceiling 180, got %d", got)
	}
	if got := clampInt(60, 10, 180); got != 60 {
		t.Errorf("expected passthrough 60, got %d", got)
	}
}

func TestBuildCodexCLIArgsIncludesModel(t *testing.T) {
	inv := buildCodexCLIArgs("gpt-5-codex", "hello")
	if inv.outputFile == "" {
		t.Fatal("expected codex invocation to set an output file")
	}
	found := false
	for i, a := range inv.args {
		if a == "--model" && i+1 < len(inv.args) && inv.args[i+1] == "gpt-5-codex" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected --model gpt-5-codex in args, got %v", inv.args)
	}
}

func TestBuildGeminiCLIArgsOmitsModelWhenBlank(t *testing.T) {
	inv := buildGeminiCLIArgs("", "hello")
	for _, a := range inv.args {
		if a == "--model" {
			t.Errorf("expected no --model flag, got %v", inv.args)
		}
	}
}

func TestBuildClaudeCLIArgsAppendsPromptLast(t *testing.T) {
	inv := buildClaudeCLIArgs("opus", "hello world")
	if inv.args[len(inv.args)-1] != "hello world" {
		t.Errorf("expected prompt last, got %v", inv.args)
	}
}
