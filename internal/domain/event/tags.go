package event

import "strings"

// DerivedTags produces the categorical tags attached to a timeline entry for
// this event. Tags feed the retrieval index alongside the payload text, so
// they favor words people use when asking about a session.
func (e Event) DerivedTags() []string {
	tags := []string{string(e.Type)}
	switch p := e.Payload.(type) {
	case SessionStarted:
		tags = append(tags, "session", "start", "begin")
		if p.Proctored {
			tags = append(tags, "proctored")
		}
	case SessionEnded:
		tags = append(tags, "session", "end", "finish")
	case EditorCommand:
		tags = append(tags, "editor", "command")
		if p.Shortcut {
			tags = append(tags, "shortcut")
		}
		if c := strings.TrimSpace(p.Command); c != "" {
			tags = append(tags, strings.ToLower(c))
		}
	case CodeChanged:
		tags = append(tags, "code", "edit", "change", "write")
	case RunAttempted:
		tags = append(tags, "run", "execute", "attempt")
		if p.Passed() {
			tags = append(tags, "pass", "success")
		} else {
			tags = append(tags, "fail", "failure")
		}
	case ErrorEmitted:
		tags = append(tags, "error", "bug", "problem")
		if p.ErrorType != "" {
			tags = append(tags, strings.ToLower(p.ErrorType))
		}
		if p.IsRepeat {
			tags = append(tags, "repeat", "recurring")
		}
	case FixApplied:
		tags = append(tags, "fix", "resolve", "debug", "repair")
	case RefactorApplied:
		tags = append(tags, "refactor", "cleanup", "improve")
	case TestAdded:
		tags = append(tags, "test", "tests", "testing", "tdd")
	case PasteBurst:
		tags = append(tags, "paste", "copy", "burst", "integrity")
	case TaskSubmitted:
		tags = append(tags, "submit", "submission", "complete", "done")
	case CameraHeartbeat:
		tags = append(tags, "camera", "proctoring", "heartbeat")
	}
	return tags
}
