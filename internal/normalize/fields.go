package normalize

import "github.com/agenticgokit/agtrace/internal/trace"

// Candidate field names, in priority order. These tables are read-only.
var (
	idFields        = []string{"id", "step_id", "node_id", "nodeId", "uuid", "event_id", "eventId", "message_id", "run_id"}
	typeLikeFields  = []string{"type", "step_type", "stepType", "event_type", "eventType", "kind", "category", "run_type", "runType", "event", "node_type"}
	timestampFields = []string{"timestamp", "time", "created_at", "createdAt", "start_time", "startTime", "datetime", "date", "ts", "event_time", "logged_at"}
	confidenceField = []string{"confidence", "score", "probability", "certainty", "weight"}
	parentFields    = []string{"parentId", "parent_id", "parent", "parentNodeId", "source", "from", "prev"}

	contentFields = []string{
		"content", "text", "message", "prompt", "tool_input", "input", "args", "arguments",
		"observation", "result", "response", "output", "tool_output", "return_value",
		"data", "value", "answer", "final_answer", "completion",
	}
	// Content taken from these fields is prefixed with the tool name.
	inputFields = map[string]bool{"tool_input": true, "input": true, "args": true, "arguments": true}

	toolNameFields = []string{"tool", "tool_name", "toolName"}
	toolArgFields  = []string{"tool_input", "action_input", "input", "args", "arguments"}

	startTimeFields = []string{"start_time", "startTime", "started_at", "startedAt", "start"}
	endTimeFields   = []string{"end_time", "endTime", "ended_at", "endedAt", "completed_at", "completedAt", "end"}
	durationFields  = []string{"duration_ms", "durationMs", "duration", "latency_ms", "latencyMs", "latency", "elapsed_ms", "elapsed"}
	usageFields     = []string{"usage", "token_usage", "tokenUsage", "usage_metadata", "usageMetadata"}
	promptTokens    = []string{"prompt_tokens", "input_tokens", "promptTokens", "inputTokens", "prompt_token_count"}
	completionToks  = []string{"completion_tokens", "output_tokens", "completionTokens", "outputTokens", "candidates_token_count"}
	totalTokens     = []string{"total_tokens", "totalTokens", "total_token_count"}
	modelFields     = []string{"model", "model_name", "modelName", "llm", "engine", "deployment"}
	errorFields     = []string{"error", "exception", "failure", "error_message", "errorMessage"}

	// Fields never rendered in the leftover-field content dump.
	metaOnlyFields = map[string]bool{
		"id": true, "step_id": true, "node_id": true, "nodeId": true, "uuid": true, "event_id": true,
		"eventId": true, "message_id": true, "run_id": true, "type": true, "step_type": true,
		"stepType": true, "event_type": true, "eventType": true, "kind": true, "category": true,
		"run_type": true, "runType": true, "node_type": true, "role": true,
		"timestamp": true, "time": true, "created_at": true, "createdAt": true, "start_time": true,
		"startTime": true, "end_time": true, "endTime": true, "datetime": true, "date": true, "ts": true,
		"event_time": true, "logged_at": true, "duration": true, "duration_ms": true, "durationMs": true,
		"latency": true, "latency_ms": true, "parentId": true, "parent_id": true, "parent": true,
		"parentNodeId": true, "prev": true, "confidence": true, "score": true, "probability": true,
		"certainty": true, "weight": true, "usage": true, "token_usage": true, "model": true,
		"model_name": true, "status": true, "tags": true, "metadata": true,
	}
)

// Composite sub-keys in the fixed order records are exploded.
var compositeKeys = []string{"thought", "action", "observation", "output", "final_answer", "result", "tool_call", "tool_result"}

var compositeKeyTypes = map[string]trace.NodeType{
	"thought":      trace.NodeThought,
	"action":       trace.NodeAction,
	"tool_call":    trace.NodeAction,
	"observation":  trace.NodeObservation,
	"result":       trace.NodeObservation,
	"tool_result":  trace.NodeObservation,
	"output":       trace.NodeOutput,
	"final_answer": trace.NodeOutput,
}

// Step array candidates.
var (
	genericStepKeys = []string{
		"steps", "trace", "events", "messages", "nodes", "intermediate_steps", "tool_calls", "runs",
		"actions", "history", "data", "records", "items", "results", "logs", "entries",
	}
	stepKeySubstrings = []string{"step", "trace", "event", "message"}
	nestedSearchDepth = 3
)
