package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// cliInvocation is what a provider's buildArgs produces: the argv, an
// optional stdin payload, and an optional output file codex writes its last
// message to (stdout is transcript noise for codex).
type cliInvocation struct {
	args         []string
	stdinPayload *string
	outputFile   string
}

// cliProviderConfig binds a CLI provider's command, argument shape, output
// parser, and failure-hint generator, mirroring the teacher's per-provider
// transport split (claude.go vs gemini.go) generalized to a table.
type cliProviderConfig struct {
	id             string
	command        string
	buildArgs      func(model, prompt string) cliInvocation
	parseOutput    func(stdout, outputText string) string
	failureHint    func(stdout, stderr string) string
	modelFallbacks []string
}

var codexModelFallbacks = []string{"gpt-5-codex", "o3", "o4-mini"}

var codexCLIConfig = cliProviderConfig{
	id:             "codex-cli",
	command:        "codex",
	buildArgs:      buildCodexCLIArgs,
	parseOutput:    parseCodexCLIOutput,
	failureHint:    codexCLIFailureHint,
	modelFallbacks: codexModelFallbacks,
}

var geminiCLIConfig = cliProviderConfig{
	id:          "gemini-cli",
	command:      "gemini",
	buildArgs:   buildGeminiCLIArgs,
	parseOutput: parseJSONStdoutOutput,
	failureHint: geminiCLIFailureHint,
}

var claudeCLIConfig = cliProviderConfig{
	id:          "claude-cli",
	command:      "claude",
	buildArgs:   buildClaudeCLIArgs,
	parseOutput: parseJSONStdoutOutput,
	failureHint: claudeCLIFailureHint,
}

func buildCodexCLIArgs(model, prompt string) cliInvocation {
	outputPath := filepath.Join(os.TempDir(), fmt.Sprintf("kofnote_codex_debate_%d_%d.txt", os.Getpid(), time.Now().UnixNano()))

	args := []string{
		"exec", "-",
		"-c", `model_reasoning_effort="high"`,
		"--skip-git-repo-check",
		"--sandbox", "read-only",
		"--output-last-message", outputPath,
		"--color", "never",
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	payload := prompt
	return cliInvocation{args: args, stdinPayload: &payload, outputFile: outputPath}
}

func buildGeminiCLIArgs(model, prompt string) cliInvocation {
	args := []string{prompt, "--output-format", "json"}
	if model != "" {
		args = append(args, "--model", model)
	}
	return cliInvocation{args: args}
}

func buildClaudeCLIArgs(model, prompt string) cliInvocation {
	args := []string{"--print", "--output-format", "json"}
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, prompt)
	return cliInvocation{args: args}
}

// normalizeCLIModelArg drops a model argument that merely names the
// provider's own default alias ("codex", "auto", "default", ...), matching
// the CLI's own "use the default model" convention.
func normalizeCLIModelArg(providerID, model string) string {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if lower == "auto" || lower == "default" {
		return ""
	}
	switch providerID {
	case "codex-cli":
		if lower == "codex" {
			return ""
		}
	case "gemini-cli":
		if lower == "gemini" {
			return ""
		}
	case "claude-cli":
		if lower == "claude" {
			return ""
		}
	}
	return trimmed
}

func isCLIModelError(stdout, stderr string) bool {
	combined := strings.ToLower(stdout) + "\n" + strings.ToLower(stderr)
	if strings.Contains(combined, "invalid model") ||
		strings.Contains(combined, "unknown model") ||
		strings.Contains(combined, "unsupported model") ||
		strings.Contains(combined, "not a supported model") ||
		strings.Contains(combined, "inaccessible model") {
		return true
	}
	if strings.Contains(combined, "model") {
		for _, phrase := range []string{"does not exist", "do not have access", "not available", "not found"} {
			if strings.Contains(combined, phrase) {
				return true
			}
		}
	}
	return false
}

func extractCLIJSONText(value any) string {
	if s, ok := value.(string); ok {
		if clean := strings.TrimSpace(s); clean != "" {
			return clean
		}
		return ""
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"result", "response", "output", "answer", "text", "message"} {
		if s, ok := obj[key].(string); ok {
			if clean := strings.TrimSpace(s); clean != "" {
				return clean
			}
		}
	}
	if content, ok := obj["content"].([]any); ok {
		var chunks []string
		for _, item := range content {
			if itemStr, ok := item.(string); ok {
				chunks = append(chunks, itemStr)
				continue
			}
			if itemObj, ok := item.(map[string]any); ok {
				if t, ok := itemObj["text"].(string); ok {
					chunks = append(chunks, t)
				}
			}
		}
		joined := strings.TrimSpace(strings.Join(chunks, "\n"))
		if joined != "" {
			return joined
		}
	}
	return ""
}

// parseCLIOutputText unwraps a known text-bearing key from a JSON document
// on stdout, falling back to the raw trimmed stream if it isn't JSON.
func parseCLIOutputText(stdout string) string {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return ""
	}
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err == nil {
		if text := extractCLIJSONText(value); text != "" {
			return text
		}
	}
	return trimmed
}

func parseCodexCLIOutput(stdout, outputText string) string {
	if strings.TrimSpace(outputText) != "" {
		return parseCLIOutputText(outputText)
	}
	return parseCLIOutputText(stdout)
}

func parseJSONStdoutOutput(_, outputText string) string {
	return parseCLIOutputText(outputText)
}

func codexCLIFailureHint(stdout, stderr string) string {
	combined := strings.ToLower(stdout) + "\n" + strings.ToLower(stderr)
	switch {
	case isCLIModelError(stdout, stderr):
		return "Model is not available for codex-cli. Leave model blank (auto) or choose a codex-supported model."
	case strings.Contains(combined, "cannot access session files") ||
		(strings.Contains(combined, ".codex/sessions") && strings.Contains(combined, "permission denied")):
		return "Codex session directory permission denied. Fix with: sudo chown -R $(whoami) ~/.codex"
	case strings.Contains(combined, "login") && strings.Contains(combined, "codex"):
		return "Codex may not be authenticated. Run `codex login` in terminal first."
	case strings.Contains(combined, "error sending request for url") ||
		strings.Contains(combined, "stream disconnected") ||
		strings.Contains(combined, "network error"):
		return "Codex network/API call failed. Check network and model access."
	default:
		return "Check `codex exec` manually in terminal to inspect full error output."
	}
}

func geminiCLIFailureHint(stdout, stderr string) string {
	combined := strings.ToLower(stdout) + "\n" + strings.ToLower(stderr)
	switch {
	case isCLIModelError(stdout, stderr):
		return "Model is not available for gemini-cli. Leave model blank (auto) or choose a Gemini CLI supported model."
	case strings.Contains(combined, "login") || strings.Contains(combined, "auth"):
		return "Gemini CLI may not be authenticated. Run `gemini` once to complete login/auth."
	case strings.Contains(combined, "api key"):
		return "Gemini CLI requires API key/auth setup. Check your Gemini CLI auth configuration."
	case strings.Contains(combined, "network error") || strings.Contains(combined, "connection"):
		return "Gemini CLI network/API call failed. Check network and CLI status."
	default:
		return "Check `gemini` command manually in terminal to inspect full error output."
	}
}

func claudeCLIFailureHint(stdout, stderr string) string {
	combined := strings.ToLower(stdout) + "\n" + strings.ToLower(stderr)
	switch {
	case isCLIModelError(stdout, stderr):
		return "Model is not available for claude-cli. Leave model blank (auto) or choose a Claude CLI supported model."
	case strings.Contains(combined, "login") || strings.Contains(combined, "auth"):
		return "Claude CLI may not be authenticated. Run `claude` once to complete login/auth."
	case strings.Contains(combined, "api key"):
		return "Claude CLI requires API key/auth setup. Check your Claude CLI auth configuration."
	case strings.Contains(combined, "network error") || strings.Contains(combined, "connection"):
		return "Claude CLI network/API call failed. Check network and CLI status."
	default:
		return "Check `claude` command manually in terminal to inspect full error output."
	}
}

// runCLICommand spawns command with args, optionally piping stdinPayload,
// and waits up to timeout via exec.CommandContext under a context deadline,
// which kills the process when the deadline expires. Stdout/stderr are
// drained on reader goroutines, matching the
// teacher's claude.go/gemini.go stream-capture idiom.
func runCLICommand(ctx context.Context, command string, args []string, stdinPayload *string, timeout time.Duration) (exitErr error, stdout, stderr string, err error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, command, args...)

	if stdinPayload != nil {
		cmd.Stdin = strings.NewReader(*stdinPayload)
	}

	var outBuf, errBuf bytes.Buffer
	stdoutPipe, perr := cmd.StdoutPipe()
	if perr != nil {
		return nil, "", "", fmt.Errorf("stdout pipe: %w", perr)
	}
	stderrPipe, perr := cmd.StderrPipe()
	if perr != nil {
		return nil, "", "", fmt.Errorf("stderr pipe: %w", perr)
	}

	if startErr := cmd.Start(); startErr != nil {
		return nil, "", "", fmt.Errorf("failed to start `%s`: %w", command, startErr)
	}

	done := make(chan struct{}, 2)
	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			outBuf.WriteString(scanner.Text())
			outBuf.WriteByte('\n')
		}
		done <- struct{}{}
	}()
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			errBuf.WriteString(scanner.Text())
			errBuf.WriteByte('\n')
		}
		done <- struct{}{}
	}()
	<-done
	<-done

	waitErr := cmd.Wait()
	if cmdCtx.Err() != nil {
		return nil, outBuf.String(), errBuf.String(), fmt.Errorf("`%s` timed out after %s", command, timeout)
	}
	return waitErr, outBuf.String(), errBuf.String(), nil
}

func readAndCleanupOutputFile(path string) string {
	data, _ := os.ReadFile(path)
	_ = os.Remove(path)
	return string(data)
}

func runCLIProviderOnce(ctx context.Context, cfg cliProviderConfig, model, prompt string, timeout time.Duration) (ok bool, stdout, stderr, outputText string, err error) {
	invocation := cfg.buildArgs(model, prompt)

	exitErr, stdoutText, stderrText, runErr := runCLICommand(ctx, cfg.command, invocation.args, invocation.stdinPayload, timeout)
	if runErr != nil {
		if invocation.outputFile != "" {
			_ = os.Remove(invocation.outputFile)
		}
		return false, "", "", "", runErr
	}

	output := stdoutText
	if invocation.outputFile != "" {
		output = readAndCleanupOutputFile(invocation.outputFile)
	}

	return exitErr == nil, stdoutText, stderrText, output, nil
}

// runCLIProvider drives a CLI provider: one attempt with the requested
// model, then (only on a detected model-unsupported signature) a
// no-model-argument retry followed by a walk of the provider's fallback
// model list.
func runCLIProvider(ctx context.Context, cfg cliProviderConfig, model, prompt string, deadlineSeconds, _ int) (string, error) {
	timeout := time.Duration(clampInt(deadlineSeconds, 10, 180)) * time.Second
	modelOverride := normalizeCLIModelArg(cfg.id, model)

	var attempts []string

	success, stdout, stderr, output, err := runCLIProviderOnce(ctx, cfg, modelOverride, prompt, timeout)
	if err != nil {
		return "", err
	}
	if success {
		if text := cfg.parseOutput(stdout, output); text != "" {
			return text, nil
		}
		hint := cfg.failureHint(stdout, stderr)
		return "", fmt.Errorf("`%s` returned empty output. %s stderr=%s", cfg.command, hint, stderr)
	}
	attempts = append(attempts, describeAttempt(modelOverride, stderr))

	var retryModels []string
	if isCLIModelError(stdout, stderr) {
		if modelOverride != "" {
			retryModels = append(retryModels, "")
		}
		for _, fallback := range cfg.modelFallbacks {
			if fallback == modelOverride {
				continue
			}
			retryModels = append(retryModels, fallback)
		}
	}

	for _, retryModel := range retryModels {
		rsuccess, rstdout, rstderr, routput, rerr := runCLIProviderOnce(ctx, cfg, retryModel, prompt, timeout)
		if rerr != nil {
			return "", rerr
		}
		if rsuccess {
			if text := cfg.parseOutput(rstdout, routput); text != "" {
				return text, nil
			}
			label := retryModel
			if label == "" {
				label = "auto"
			}
			return "", fmt.Errorf("`%s` retry succeeded but returned empty output. model=%s stderr=%s", cfg.command, label, rstderr)
		}
		attempts = append(attempts, describeAttempt(retryModel, rstderr))
		stdout, stderr = rstdout, rstderr
		if !isCLIModelError(stdout, stderr) {
			break
		}
	}

	hint := cfg.failureHint(stdout, stderr)
	return "", fmt.Errorf("`%s` failed after retries. %s attempts=%s", cfg.command, hint, strings.Join(attempts, " || "))
}

func describeAttempt(model, stderr string) string {
	label := "model:auto"
	if model != "" {
		label = "model:" + model
	}
	return fmt.Sprintf("%s: stderr=%s", label, strings.TrimSpace(stderr))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
