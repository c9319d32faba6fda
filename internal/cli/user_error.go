package cli

// userError is an operator-facing failure with an optional remediation hint.
// Execute prints it without a stack of wrapped context.
type userError struct {
	msg  string
	hint string
}

func (e *userError) Error() string { return e.msg }

func (e *userError) Hint() string { return e.hint }
