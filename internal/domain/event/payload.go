package event

// Payload is the typed variant attached to an Event. Exactly one concrete
// payload type corresponds to each event Type; event types without
// interesting fields share EmptyPayload.
type Payload interface {
	payloadType() Type
}

// SessionStarted opens a session and carries its static attributes.
type SessionStarted struct {
	TaskID       string
	TaskCategory string
	Difficulty   string
	VideoID      string
	Proctored    bool
}

func (SessionStarted) payloadType() Type { return TypeSessionStarted }

// SessionEnded closes and freezes a session.
type SessionEnded struct {
	Reason string // "submitted", "timeout", "abandoned"
}

func (SessionEnded) payloadType() Type { return TypeSessionEnded }

// EditorCommand records a single editor action.
type EditorCommand struct {
	Command  string
	Shortcut bool // keyboard shortcut vs menu selection
}

func (EditorCommand) payloadType() Type { return TypeEditorCommand }

// CodeChanged summarizes an edit burst.
type CodeChanged struct {
	LinesAdded   int
	LinesRemoved int
}

func (CodeChanged) payloadType() Type { return TypeCodeChanged }

// RunAttempted records one execution of the candidate's code.
type RunAttempted struct {
	Result      string // "pass" or "fail"
	RuntimeMS   int64
	TestsPassed int
	TestsTotal  int
}

func (RunAttempted) payloadType() Type { return TypeRunAttempted }

// Passed reports whether the run succeeded.
func (r RunAttempted) Passed() bool { return r.Result == "pass" }

// ErrorEmitted records a runtime or compile error surfaced to the candidate.
type ErrorEmitted struct {
	ErrorType  string
	StackDepth int // optional; zero when absent
	IsRepeat   bool
}

func (ErrorEmitted) payloadType() Type { return TypeErrorEmitted }

// FixApplied records resolution of a previously emitted error.
type FixApplied struct {
	ErrorType string // optional; links the fix to an error type
}

func (FixApplied) payloadType() Type { return TypeFixApplied }

// RefactorApplied records a structural code improvement.
type RefactorApplied struct {
	Kind string // e.g. "rename", "extract_function"
}

func (RefactorApplied) payloadType() Type { return TypeRefactorApplied }

// TestAdded records the candidate authoring a test.
type TestAdded struct {
	TestName string
}

func (TestAdded) payloadType() Type { return TypeTestAdded }

// PasteBurst records a large paste detected by the capture layer.
type PasteBurst struct {
	CharsPasted int
	BurstMS     int64
}

func (PasteBurst) payloadType() Type { return TypePasteBurstDetected }

// TaskSubmitted records final submission of the task solution.
type TaskSubmitted struct {
	TaskID string
}

func (TaskSubmitted) payloadType() Type { return TypeTaskSubmitted }

// CameraHeartbeat is the periodic proctoring liveness signal.
type CameraHeartbeat struct{}

func (CameraHeartbeat) payloadType() Type { return TypeCameraHeartbeat }

// DecodePayload builds the typed payload for t from an open properties map.
// Fields not consumed by the typed payload are returned as residual extras,
// preserving forward compatibility. Unknown t yields ErrUnknownEventType.
func DecodePayload(t Type, props map[string]any) (Payload, map[string]any, error) {
	if !t.Known() {
		return nil, nil, ErrUnknownEventType
	}

	consumed := map[string]struct{}{}
	str := func(key string) string {
		if v, ok := props[key].(string); ok {
			consumed[key] = struct{}{}
			return v
		}
		return ""
	}
	num := func(key string) int64 {
		switch v := props[key].(type) {
		case float64:
			consumed[key] = struct{}{}
			return int64(v)
		case int:
			consumed[key] = struct{}{}
			return int64(v)
		case int64:
			consumed[key] = struct{}{}
			return v
		}
		return 0
	}
	boolean := func(key string) bool {
		if v, ok := props[key].(bool); ok {
			consumed[key] = struct{}{}
			return v
		}
		return false
	}

	var p Payload
	switch t {
	case TypeSessionStarted:
		p = SessionStarted{
			TaskID:       str("task_id"),
			TaskCategory: str("task_category"),
			Difficulty:   str("difficulty"),
			VideoID:      str("video_id"),
			Proctored:    boolean("proctored"),
		}
	case TypeSessionEnded:
		p = SessionEnded{Reason: str("reason")}
	case TypeEditorCommand:
		p = EditorCommand{Command: str("command"), Shortcut: boolean("shortcut")}
	case TypeCodeChanged:
		p = CodeChanged{LinesAdded: int(num("lines_added")), LinesRemoved: int(num("lines_removed"))}
	case TypeRunAttempted:
		p = RunAttempted{
			Result:      str("result"),
			RuntimeMS:   num("runtime_ms"),
			TestsPassed: int(num("tests_passed")),
			TestsTotal:  int(num("tests_total")),
		}
	case TypeErrorEmitted:
		p = ErrorEmitted{
			ErrorType:  str("error_type"),
			StackDepth: int(num("stack_depth")),
			IsRepeat:   boolean("is_repeat"),
		}
	case TypeFixApplied:
		p = FixApplied{ErrorType: str("error_type")}
	case TypeRefactorApplied:
		p = RefactorApplied{Kind: str("kind")}
	case TypeTestAdded:
		p = TestAdded{TestName: str("test_name")}
	case TypePasteBurstDetected:
		p = PasteBurst{CharsPasted: int(num("chars_pasted")), BurstMS: num("burst_ms")}
	case TypeTaskSubmitted:
		p = TaskSubmitted{TaskID: str("task_id")}
	case TypeCameraHeartbeat:
		p = CameraHeartbeat{}
	}

	var extra map[string]any
	for k, v := range props {
		if _, ok := consumed[k]; ok {
			continue
		}
		if extra == nil {
			extra = map[string]any{}
		}
		extra[k] = v
	}
	return p, extra, nil
}

// EncodePayload flattens a typed payload back into the wire properties
// shape. It is the inverse of DecodePayload over the fields each payload
// consumes, used when archiving timelines.
func EncodePayload(p Payload) map[string]any {
	switch v := p.(type) {
	case SessionStarted:
		return map[string]any{
			"task_id":       v.TaskID,
			"task_category": v.TaskCategory,
			"difficulty":    v.Difficulty,
			"video_id":      v.VideoID,
			"proctored":     v.Proctored,
		}
	case SessionEnded:
		return map[string]any{"reason": v.Reason}
	case EditorCommand:
		return map[string]any{"command": v.Command, "shortcut": v.Shortcut}
	case CodeChanged:
		return map[string]any{"lines_added": v.LinesAdded, "lines_removed": v.LinesRemoved}
	case RunAttempted:
		return map[string]any{
			"result":       v.Result,
			"runtime_ms":   v.RuntimeMS,
			"tests_passed": v.TestsPassed,
			"tests_total":  v.TestsTotal,
		}
	case ErrorEmitted:
		return map[string]any{
			"error_type":  v.ErrorType,
			"stack_depth": v.StackDepth,
			"is_repeat":   v.IsRepeat,
		}
	case FixApplied:
		return map[string]any{"error_type": v.ErrorType}
	case RefactorApplied:
		return map[string]any{"kind": v.Kind}
	case TestAdded:
		return map[string]any{"test_name": v.TestName}
	case PasteBurst:
		return map[string]any{"chars_pasted": v.CharsPasted, "burst_ms": v.BurstMS}
	case TaskSubmitted:
		return map[string]any{"task_id": v.TaskID}
	case CameraHeartbeat:
		return map[string]any{}
	}
	return nil
}
