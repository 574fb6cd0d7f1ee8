package viz

import "fmt"

// Kind partitions stage failures. Retrieval is the only non-fatal
// kind; it is handled per endpoint and never surfaces as a StageError
// from the pipeline.
type Kind string

const (
	KindClassification Kind = "classification"
	KindPlanning       Kind = "planning"
	KindQueryRejected  Kind = "query_rejected"
	KindRetrieval      Kind = "retrieval"
	KindSynthesis      Kind = "synthesis"
)

// StageError is a pipeline stage failure. Fatal kinds abort the run;
// the caller receives an empty result either way.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(kind Kind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

func stageErrf(kind Kind, stage, format string, args ...any) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}
