package monitor

import "time"

type ServiceStatus struct {
	Online   bool `json:"online"`
	Required bool `json:"required"`
}

type Status struct {
	Services   map[string]ServiceStatus `json:"services"`
	Buffer     bool                     `json:"buffer"`
	BufferSize int                      `json:"bufferSize"`
	LastCheck  time.Time                `json:"lastCheck"`
}

// Healthy reports whether every required service is online. A status that was
// never refreshed is not healthy.
func (s Status) Healthy() bool {
	if s.LastCheck.IsZero() {
		return false
	}
	for _, svc := range s.Services {
		if svc.Required && !svc.Online {
			return false
		}
	}
	return true
}

func (s Status) clone() Status {
	services := make(map[string]ServiceStatus, len(s.Services))
	for name, svc := range s.Services {
		services[name] = svc
	}
	s.Services = services
	return s
}
