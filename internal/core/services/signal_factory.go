package services

import (
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// SignalFactory builds complete signals.
type SignalFactory struct{}

var _ ports.SignalFactory = (*SignalFactory)(nil)

func NewSignalFactory() *SignalFactory {
	return &SignalFactory{}
}

// Build resolves target and subject into a signal. A subject whose kind
// differs from the type's subject kind is a caller error.
func (f *SignalFactory) Build(signalType domain.SignalType, target domain.Target, subject domain.Subject, detail string) (*domain.Signal, error) {
	signal, err := domain.NewSignal(signalType, target)
	if err != nil {
		return nil, err
	}
	if err := signal.SetSubject(subject); err != nil {
		return nil, err
	}
	if detail != "" {
		if err := signal.SetDetail(detail); err != nil {
			return nil, err
		}
	}
	return signal, nil
}
