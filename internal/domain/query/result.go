package query

// ErrorDescriptor is the portable form of an execution failure.
type ErrorDescriptor struct {
	Message string `json:"message"`
}

// ExecutionResult is either result documents or an error descriptor.
// Documents never contain driver-native identifier types.
type ExecutionResult struct {
	Documents []Document       `json:"documents"`
	Error     *ErrorDescriptor `json:"error,omitempty"`
}

// Failed reports whether the execution produced an error descriptor.
func (r ExecutionResult) Failed() bool { return r.Error != nil }

// Failure builds an error result.
func Failure(msg string) ExecutionResult {
	return ExecutionResult{Documents: []Document{}, Error: &ErrorDescriptor{Message: msg}}
}
