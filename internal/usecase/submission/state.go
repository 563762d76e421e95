package submission

// FormState はフォームの観測可能な状態のすべて。
// Response と Error は同時に値を持たない。nil は「無し」。
type FormState struct {
	Input    string
	Response *string
	Error    *string
	Pending  bool
}

// Phase は FormState を状態機械の状態として見たもの。
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Phase returns the lifecycle phase the state is in.
func (s FormState) Phase() Phase {
	switch {
	case s.Pending:
		return PhasePending
	case s.Error != nil:
		return PhaseError
	case s.Response != nil:
		return PhaseSuccess
	default:
		return PhaseIdle
	}
}

// ResponseText は Response を文字列で返す（無ければ ""）。
func (s FormState) ResponseText() string {
	if s.Response == nil {
		return ""
	}
	return *s.Response
}

// ErrorText は Error を文字列で返す（無ければ ""）。
func (s FormState) ErrorText() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

// clone は呼び出し側に渡すコピーを作る（ポインタ先を共有しない）。
func (s FormState) clone() FormState {
	out := s
	if s.Response != nil {
		v := *s.Response
		out.Response = &v
	}
	if s.Error != nil {
		v := *s.Error
		out.Error = &v
	}
	return out
}
