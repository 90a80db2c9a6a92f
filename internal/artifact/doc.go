// Package artifact contains pure parsers for the file types tracked by the
// stride pipeline: the orchestration state document (JSON), the task list
// and roadmap documents (Markdown with a constrained task-line grammar),
// and agent session transcripts (JSONL).
//
// Parsers perform no I/O and hold no state. Malformed units inside a
// document (an unparseable task line, a truncated transcript line) are
// skipped rather than failing the whole parse; only a document that cannot
// be interpreted at all yields an error.
package artifact
