package stage

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Readier is implemented by generator clients that can validate their own
// configuration without a network call.
type Readier interface {
	Ready() error
}

// CheckReady reports the readiness of a collaborator that may implement Readier.
func CheckReady(name string, collaborator any) Health {
	if collaborator == nil {
		return Unhealthy(name, "generator not configured")
	}
	if r, ok := collaborator.(Readier); ok {
		if err := r.Ready(); err != nil {
			return Unhealthy(name, err.Error())
		}
	}
	return Healthy(name)
}
