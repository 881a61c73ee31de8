package events

import (
	"github.com/skekre98/observers/observer"
)

// Description is the JSON view of an observer method.
type Description struct {
	BeanClass        string                    `json:"beanClass,omitempty"`
	ObservedType     string                    `json:"observedType"`
	Qualifiers       []observer.Qualifier      `json:"qualifiers"`
	Reception        observer.Reception        `json:"reception"`
	TransactionPhase observer.TransactionPhase `json:"transactionPhase"`
	Priority         int                       `json:"priority"`
	Async            bool                      `json:"async"`
}

func Describe(om observer.ObserverMethod[any]) Description {
	d := Description{
		ObservedType:     typeName(om.ObservedType()),
		Qualifiers:       om.ObservedQualifiers().Slice(),
		Reception:        om.Reception(),
		TransactionPhase: om.TransactionPhase(),
		Priority:         om.Priority(),
		Async:            om.IsAsync(),
	}
	if om.BeanClass() != nil {
		d.BeanClass = typeName(om.BeanClass())
	}
	return d
}

// Describe returns descriptions of every registered observer in
// registration order.
func (b *Bus) Describe() []Description {
	observers := b.Observers()
	out := make([]Description, 0, len(observers))
	for _, om := range observers {
		out = append(out, Describe(om))
	}
	return out
}
