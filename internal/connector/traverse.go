package connector

import (
	"context"

	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
)

// Emitter is the part of Host needed to walk a document.
type Emitter interface {
	EmitAsync(ctx context.Context, name string, payload event.Payload) error
}

// Traverse emits traverse::start, one element::<tag> per element in
// document order, then traverse::end.
func Traverse(ctx context.Context, em Emitter, doc *dom.Document, resource string) error {
	if err := em.EmitAsync(ctx, event.TypeTraverseStart, event.Event{Resource: resource}); err != nil {
		return err
	}
	for _, el := range doc.Elements() {
		ev := &event.ElementFound{Event: event.Event{Resource: resource}, Element: el}
		if err := em.EmitAsync(ctx, event.TypeElement(el.TagName()), ev); err != nil {
			return err
		}
	}
	return em.EmitAsync(ctx, event.TypeTraverseEnd, event.Event{Resource: resource})
}
