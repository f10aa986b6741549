package provisioner

// Outcome is the result of one unit of work. Exactly one of Data or Error is
// meaningful, selected by Success.
type Outcome[T any] struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a success record.
func Succeeded[T any](id string, data T) Outcome[T] {
	return Outcome[T]{ID: id, Success: true, Data: data}
}

// Failed builds a failure record from err.
func Failed[T any](id string, err error) Outcome[T] {
	o := Outcome[T]{ID: id}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Record builds a success or failure record depending on err.
func Record[T any](id string, data T, err error) Outcome[T] {
	if err != nil {
		return Failed[T](id, err)
	}
	return Succeeded(id, data)
}

// SucceededIDs returns the identifiers of the successful records, in order.
func SucceededIDs[T any](outcomes []Outcome[T]) []string {
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Success {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Index maps each identifier to its record. Later records win on duplicate IDs.
func Index[T any](outcomes []Outcome[T]) map[string]Outcome[T] {
	m := make(map[string]Outcome[T], len(outcomes))
	for _, o := range outcomes {
		m[o.ID] = o
	}
	return m
}

// AllSucceeded reports whether every record is a success. An empty slice counts as
// success.
func AllSucceeded[T any](outcomes []Outcome[T]) bool {
	for _, o := range outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}
