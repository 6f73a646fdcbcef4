package events

import (
	"go.uber.org/zap"
)

// LoggingObserver logs all events.
type LoggingObserver struct {
	name    string
	logger  *zap.Logger
	verbose bool
}

// NewLoggingObserver creates a new observer that logs events. Verbose
// observers include the payload.
func NewLoggingObserver(logger *zap.Logger, verbose bool) *LoggingObserver {
	if logger == nil {
		logger = zap.L()
	}
	return &LoggingObserver{
		name:    "LoggingObserver",
		logger:  logger,
		verbose: verbose,
	}
}

// OnEvent logs the event details.
func (o *LoggingObserver) OnEvent(event Event) error {
	fields := []zap.Field{zap.String("event", event.Type)}
	if event.DeckID != "" {
		fields = append(fields, zap.String("deck_id", event.DeckID))
	}
	if o.verbose {
		fields = append(fields, zap.Any("data", event.Data))
	}
	o.logger.Info("event", fields...)
	return nil
}

// GetName returns the observer's name.
func (o *LoggingObserver) GetName() string {
	return o.name
}

// ShouldHandle returns true for all events.
func (o *LoggingObserver) ShouldHandle(string) bool {
	return true
}

// FuncObserver adapts a function to the Observer interface.
type FuncObserver struct {
	Name  string
	Types []string // Empty means all types
	Fn    func(Event) error
}

// OnEvent calls the function.
func (o *FuncObserver) OnEvent(event Event) error {
	return o.Fn(event)
}

// GetName returns the observer's name.
func (o *FuncObserver) GetName() string {
	return o.Name
}

// ShouldHandle reports whether eventType is one of Types.
func (o *FuncObserver) ShouldHandle(eventType string) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, t := range o.Types {
		if t == eventType {
			return true
		}
	}
	return false
}
