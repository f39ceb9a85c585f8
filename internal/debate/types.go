// Package debate implements the Debate Engine: a fixed-role, fixed-round,
// state-machine-driven multi-agent deliberation that fans work out to the
// provider façade, tolerates per-turn provider failures, and produces a
// strictly-validated Final Packet persisted as a replayable artifact tree
// and indexed into the search catalog's debate tables.
package debate

import "fmt"

// Role is one of the five fixed debate participants.
type Role string

const (
	RoleProponent  Role = "Proponent"
	RoleCritic     Role = "Critic"
	RoleAnalyst    Role = "Analyst"
	RoleSynthesizer Role = "Synthesizer"
	RoleJudge      Role = "Judge"
)

// Roles is the fixed participant order used for turn execution,
// participant normalization, and packet assembly.
var Roles = []Role{RoleProponent, RoleCritic, RoleAnalyst, RoleSynthesizer, RoleJudge}

// Round is one of the three fixed debate rounds.
type Round string

const (
	Round1 Round = "round1"
	Round2 Round = "round2"
	Round3 Round = "round3"
)

// Rounds is the fixed round order.
var Rounds = []Round{Round1, Round2, Round3}

// roundArtifactName maps a round to its artifact file stem under rounds/.
func roundArtifactName(r Round) string {
	switch r {
	case Round1:
		return "round-1"
	case Round2:
		return "round-2"
	case Round3:
		return "round-3"
	default:
		return string(r)
	}
}

// roundNumber maps a round to its 1-based ordinal, used by the debate
// catalog's round_number column.
func roundNumber(r Round) int {
	switch r {
	case Round1:
		return 1
	case Round2:
		return 2
	case Round3:
		return 3
	default:
		return 0
	}
}

// State is one of the eight fixed debate states, traversed strictly in
// order.
type State string

const (
	StateNone      State = ""
	StateIntake    State = "Intake"
	StateRound1    State = "Round1"
	StateRound2    State = "Round2"
	StateRound3    State = "Round3"
	StateConsensus State = "Consensus"
	StateJudge     State = "Judge"
	StatePacketize State = "Packetize"
	StateWriteback State = "Writeback"
)

// allowedTransitions is the complete set of legal (from, to) state pairs.
var allowedTransitions = map[State]State{
	StateNone:      StateIntake,
	StateIntake:    StateRound1,
	StateRound1:    StateRound2,
	StateRound2:    StateRound3,
	StateRound3:    StateConsensus,
	StateConsensus: StateJudge,
	StateJudge:     StatePacketize,
	StatePacketize: StateWriteback,
}

// OutputType is one of the five enumerated Final Packet output types.
type OutputType string

const (
	OutputDecision     OutputType = "decision"
	OutputWriting      OutputType = "writing"
	OutputArchitecture OutputType = "architecture"
	OutputPlanning     OutputType = "planning"
	OutputEvaluation   OutputType = "evaluation"
)

func validOutputType(v string) (OutputType, bool) {
	switch OutputType(v) {
	case OutputDecision, OutputWriting, OutputArchitecture, OutputPlanning, OutputEvaluation:
		return OutputType(v), true
	}
	return "", false
}

// Error codes over the boundary, per spec.md §6.5.
const (
	ErrInput            = "DEBATE_ERR_INPUT"
	ErrState            = "DEBATE_ERR_STATE"
	ErrPacket           = "DEBATE_ERR_PACKET"
	ErrAllTurnsFailed   = "DEBATE_ERR_ALL_TURNS_FAILED"
	ErrNotFound         = "DEBATE_ERR_NOT_FOUND"
	ErrProviderOpenAI   = "DEBATE_ERR_PROVIDER_OPENAI"
	ErrProviderGemini   = "DEBATE_ERR_PROVIDER_GEMINI"
	ErrProviderClaude   = "DEBATE_ERR_PROVIDER_CLAUDE"
	ErrProviderCodexCLI = "DEBATE_ERR_PROVIDER_CODEX_CLI"
	ErrProviderGeminiCLI = "DEBATE_ERR_PROVIDER_GEMINI_CLI"
	ErrProviderClaudeCLI = "DEBATE_ERR_PROVIDER_CLAUDE_CLI"
	ErrProviderUnsupported = "DEBATE_ERR_PROVIDER_UNSUPPORTED"

	WarnProviderNormalized              = "DEBATE_WARN_PROVIDER_NORMALIZED"
	WarnProviderDisabledFallbackLocal   = "DEBATE_WARN_PROVIDER_DISABLED_FALLBACK_LOCAL"
	WarnProviderUnknownFallbackLocal    = "DEBATE_WARN_PROVIDER_UNKNOWN_FALLBACK_LOCAL"
	WarnUnknownRoleIgnored              = "DEBATE_WARN_UNKNOWN_ROLE_IGNORED"
)

// CodedError formats an error code and message as "<CODE>: <message>", the
// fixed shape every debate failure crosses the boundary with.
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newErr(code, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func providerErrorCode(providerID string) string {
	switch providerID {
	case "openai":
		return ErrProviderOpenAI
	case "gemini":
		return ErrProviderGemini
	case "claude":
		return ErrProviderClaude
	case "codex-cli":
		return ErrProviderCodexCLI
	case "gemini-cli":
		return ErrProviderGeminiCLI
	case "claude-cli":
		return ErrProviderClaudeCLI
	default:
		return ErrProviderUnsupported
	}
}

// Participant binds a role to the provider/model that will voice it.
type Participant struct {
	Role           Role   `json:"role"`
	ModelProvider  string `json:"model_provider"`
	ModelName      string `json:"model_name"`
}

// InputParticipant is the caller-supplied, not-yet-normalized shape.
type InputParticipant struct {
	Role          string `json:"role"`
	ModelProvider string `json:"model_provider"`
	ModelName     string `json:"model_name"`
}

// Request is the caller-supplied, not-yet-normalized debate request.
type Request struct {
	Problem            string             `json:"problem"`
	Constraints        []string           `json:"constraints"`
	OutputType         string             `json:"output_type"`
	Participants       []InputParticipant `json:"participants"`
	MaxTurnSeconds     int                `json:"max_turn_seconds"`
	MaxTurnTokens      int                `json:"max_turn_tokens"`
	WritebackRecordType string            `json:"writeback_record_type"`
	// DueOverrides is a supplement (SPEC_FULL.md §4.8): free-form natural
	// language due-date phrases, matched positionally against A1/A2/A3.
	DueOverrides []string `json:"due_overrides,omitempty"`
}

// NormalizedRequest is the Intake-normalized request written to
// request.json.
type NormalizedRequest struct {
	Problem             string        `json:"problem"`
	Constraints         []string      `json:"constraints"`
	OutputType          OutputType    `json:"output_type"`
	Participants        []Participant `json:"participants"`
	MaxTurnSeconds       int          `json:"max_turn_seconds"`
	MaxTurnTokens        int          `json:"max_turn_tokens"`
	WritebackRecordType  string       `json:"writeback_record_type,omitempty"`
	DueOverrides         []string     `json:"due_overrides,omitempty"`
}

const (
	defaultMaxTurnSeconds = 35
	minMaxTurnSeconds     = 5
	maxMaxTurnSeconds     = 120

	defaultMaxTurnTokens = 900
	minMaxTurnTokens     = 128
	maxMaxTurnTokens     = 4096
)

// Challenge is a Round2 cross-examination exchange.
type Challenge struct {
	SourceRole Role   `json:"source_role"`
	TargetRole Role   `json:"target_role"`
	Question   string `json:"question"`
	Response   string `json:"response"`
}

// Turn records one participant's contribution to one round.
type Turn struct {
	Role         Role        `json:"role"`
	Round        Round       `json:"round"`
	Provider     string      `json:"provider"`
	Model        string      `json:"model"`
	Status       string      `json:"status"` // "ok" | "failed"
	Claim        string      `json:"claim"`
	Rationale    string      `json:"rationale"`
	Risks        []string    `json:"risks"`
	Challenges   []Challenge `json:"challenges,omitempty"`
	Revisions    []string    `json:"revisions,omitempty"`
	TargetRole   Role        `json:"target_role,omitempty"`
	DurationMs   int64       `json:"duration_ms"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	StartedAt    string      `json:"started_at"`
	FinishedAt   string      `json:"finished_at"`
}

// RoundArtifact aggregates every participant's turn for one round.
type RoundArtifact struct {
	Round Round  `json:"round"`
	Turns []Turn `json:"turns"`
}

// Consensus is the packet's consensus sub-object.
type Consensus struct {
	ConsensusScore  float64  `json:"consensus_score"`
	ConfidenceScore float64  `json:"confidence_score"`
	Agreements      []string `json:"key_agreements"`
	Disagreements   []string `json:"key_disagreements"`
}

// RejectedOption is one rejected alternative with its reason.
type RejectedOption struct {
	Option string `json:"option"`
	Reason string `json:"reason"`
}

// Decision is the packet's decision sub-object.
type Decision struct {
	SelectedOption   string           `json:"selected_option"`
	WhySelected      []string         `json:"why_selected"`
	RejectedOptions  []RejectedOption `json:"rejected_options"`
}

// Risk is one risk entry with severity and mitigation.
type Risk struct {
	Risk       string `json:"risk"`
	Severity   string `json:"severity"` // low | medium | high
	Mitigation string `json:"mitigation"`
}

// Action is one next-action entry.
type Action struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Owner  string `json:"owner"`
	Due    string `json:"due"`
}

// Trace is the packet's evidence/round-reference trail.
type Trace struct {
	RoundRefs    []string `json:"round_refs"`
	EvidenceRefs []string `json:"evidence_refs"`
}

// Timestamps brackets a run's wall-clock span.
type Timestamps struct {
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// FinalPacket is the frozen-shape deliverable of a debate run.
type FinalPacket struct {
	RunID        string        `json:"run_id"`
	Mode         string        `json:"mode"`
	Problem      string        `json:"problem"`
	OutputType   OutputType    `json:"output_type"`
	Participants []Participant `json:"participants"`
	Consensus    Consensus     `json:"consensus"`
	Decision     Decision      `json:"decision"`
	Risks        []Risk        `json:"risks"`
	NextActions  []Action      `json:"next_actions"`
	Trace        Trace         `json:"trace"`
	Timestamps   Timestamps    `json:"timestamps"`
}

// PacketMode is the fixed mode tag every packet carries.
const PacketMode = "debate-v0.1"

// Response is the top-level result returned to the caller of Run.
type Response struct {
	RunID             string       `json:"run_id"`
	State             State        `json:"state"`
	Degraded          bool         `json:"degraded"`
	ErrorCodes        []string     `json:"error_codes"`
	ArtifactsRoot     string       `json:"artifacts_root"`
	FinalPacket       *FinalPacket `json:"final_packet,omitempty"`
	WritebackJSONPath string       `json:"writeback_json_path,omitempty"`
}

// roleIndex returns the fixed role->slot ordering index, used
// whenever fixed-order iteration over the five roles is required.
func roleIndex(r Role) int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return -1
}
