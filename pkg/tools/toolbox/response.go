package toolbox

// Status is the outcome of a dispatch.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Response is what Dispatch hands back to a transport adapter. Text is the
// rendered result on success and the error message on failure.
type Response struct {
	Tool   string
	Status Status
	Text   string
	Value  any
	Err    error
}
