// Package alert carries user-facing notifications out of the topology core.
//
// The core never keeps notification state of its own: it pushes to a Sink
// that the caller injects and inspects after the request.
package alert

import (
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/ixtopo/pkg/util"
)

// Severity of a notification
type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Warning Severity = "warning"
	Danger  Severity = "danger"
)

// Alert is one queued notification
type Alert struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Sink receives notifications. Push is fire-and-forget.
type Sink interface {
	Push(message string, severity Severity)
}

// Container queues alerts in push order.
type Container struct {
	alerts []Alert
}

// NewContainer creates an empty container
func NewContainer() *Container {
	return &Container{}
}

// Push queues an alert
func (c *Container) Push(message string, severity Severity) {
	c.alerts = append(c.alerts, Alert{Message: message, Severity: severity})
}

// Alerts returns the queued alerts
func (c *Container) Alerts() []Alert {
	return c.alerts
}

// Has returns true if any queued alert has the given severity
func (c *Container) Has(severity Severity) bool {
	for _, a := range c.alerts {
		if a.Severity == severity {
			return true
		}
	}
	return false
}

// Len returns the number of queued alerts
func (c *Container) Len() int {
	return len(c.alerts)
}

// Drain returns the queued alerts and empties the container
func (c *Container) Drain() []Alert {
	out := c.alerts
	c.alerts = nil
	return out
}

// Logging forwards alerts to another sink and records them in the log.
type Logging struct {
	Next Sink
}

// NewLogging wraps next with logging
func NewLogging(next Sink) *Logging {
	return &Logging{Next: next}
}

// Push logs the alert at the matching level and forwards it
func (l *Logging) Push(message string, severity Severity) {
	util.WithField("severity", string(severity)).Log(severity.level(), message)
	if l.Next != nil {
		l.Next.Push(message, severity)
	}
}

func (s Severity) level() logrus.Level {
	switch s {
	case Danger:
		return logrus.ErrorLevel
	case Warning:
		return logrus.WarnLevel
	case Info:
		return logrus.InfoLevel
	}
	return logrus.DebugLevel
}
