package diagnostics

import "fmt"

// ProgressUpdate is a step lifecycle event sent while a run is in flight.
//
// Result is set once the step has finished (Success or Failure).
type ProgressUpdate struct {
	Step    StepName
	Index   int // 1-based position of Step
	Total   int
	Status  Status
	Message string
	Result  *StepResult
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func startedUpdate(index, total int, name StepName) ProgressUpdate {
	return ProgressUpdate{
		Step:    name,
		Index:   index,
		Total:   total,
		Status:  Running,
		Message: fmt.Sprintf("Running %s...", name),
	}
}

func finishedUpdate(index, total int, result StepResult) ProgressUpdate {
	return ProgressUpdate{
		Step:    result.Name,
		Index:   index,
		Total:   total,
		Status:  result.Status,
		Message: result.Message,
		Result:  &result,
	}
}

func skippedUpdate(index, total int, name StepName) ProgressUpdate {
	return ProgressUpdate{
		Step:    name,
		Index:   index,
		Total:   total,
		Status:  Skipped,
		Message: "skipped after a required step failed",
	}
}
