package scripts

type OutcomeKind int

const (
	Continued OutcomeKind = iota
	Stopped
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Continued:
		return "continued"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of running one block.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
	// Result is the display form of an expression block's value
	Result string
}

func Continue(result string) Outcome {
	return Outcome{
		Kind:   Continued,
		Result: result,
	}
}

func Stop(reason string) Outcome {
	return Outcome{
		Kind:   Stopped,
		Reason: reason,
	}
}

func Fail(err error) Outcome {
	return Outcome{
		Kind: Failed,
		Err:  err,
	}
}
